package history

import (
	"time"

	"gorm.io/gorm"
)

// CallRepository handles call-history database operations.
type CallRepository struct {
	db *gorm.DB
}

// NewCallRepository creates a repository backed by db.
func NewCallRepository(db *gorm.DB) *CallRepository {
	return &CallRepository{db: db}
}

// Create adds a new call record.
func (r *CallRepository) Create(c *CallRecord) error {
	return r.db.Create(c).Error
}

// GetRecent retrieves the most recent N calls.
func (r *CallRepository) GetRecent(limit int) ([]CallRecord, error) {
	var calls []CallRecord
	err := r.db.Order("start_time DESC").Limit(limit).Find(&calls).Error
	return calls, err
}

// GetByTalkgroup retrieves calls for a specific talkgroup.
func (r *CallRepository) GetByTalkgroup(talkgroup uint32, limit int) ([]CallRecord, error) {
	var calls []CallRecord
	err := r.db.Where("talkgroup = ?", talkgroup).
		Order("start_time DESC").
		Limit(limit).
		Find(&calls).Error
	return calls, err
}

// GetBySource retrieves calls from a specific source id.
func (r *CallRepository) GetBySource(sourceID uint32, limit int) ([]CallRecord, error) {
	var calls []CallRecord
	err := r.db.Where("source_id = ?", sourceID).
		Order("start_time DESC").
		Limit(limit).
		Find(&calls).Error
	return calls, err
}

// DeleteOlderThan deletes call records older than the given time.
func (r *CallRepository) DeleteOlderThan(before time.Time) (int64, error) {
	result := r.db.Where("start_time < ?", before).Delete(&CallRecord{})
	return result.RowsAffected, result.Error
}
