package history

import (
	"time"

	"gorm.io/gorm"
)

// CallRecord is one completed P25 call persisted to the history
// database.
type CallRecord struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	StreamID  uint32    `gorm:"index;not null" json:"stream_id"`
	SourceID  uint32    `gorm:"index;not null" json:"source_id"`
	Talkgroup uint32    `gorm:"index;not null" json:"talkgroup"`
	StartTime time.Time `gorm:"index;not null" json:"start_time"`
	EndTime   time.Time `gorm:"not null" json:"end_time"`
	Duration  float64   `gorm:"not null" json:"duration"`
	LDU1Count int       `gorm:"default:0" json:"ldu1_count"`
	LDU2Count int       `gorm:"default:0" json:"ldu2_count"`
	EndReason string    `gorm:"not null;default:'timeout'" json:"end_reason"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for CallRecord.
func (CallRecord) TableName() string {
	return "call_history"
}

// BeforeCreate fills in CreatedAt if the caller left it zero.
func (c *CallRecord) BeforeCreate(tx *gorm.DB) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	return nil
}
