package history

import (
	"time"

	"github.com/hambridge/p25gw/pkg/logger"
)

// Tracker adapts a Store to callmgr.CallObserver, writing completed
// calls synchronously as they end. A nil or disabled Tracker is a
// legal no-op so the protocol path never blocks on persistence.
type Tracker struct {
	store       *Store
	minDuration time.Duration
	log         *logger.Logger
}

// NewTracker creates a Tracker backed by store. Pass a nil store to
// get a no-op tracker (history disabled).
func NewTracker(store *Store, minDuration time.Duration, log *logger.Logger) *Tracker {
	return &Tracker{
		store:       store,
		minDuration: minDuration,
		log:         log.WithComponent("history"),
	}
}

// CallStarted is a no-op; the tracker only persists completed calls.
func (t *Tracker) CallStarted(streamID, srcID, dstID uint32, start time.Time) {}

// CallEnded persists a completed call if it met the minimum duration
// threshold. Write failures are logged, never propagated, since a
// history write must never disrupt the live call path.
func (t *Tracker) CallEnded(streamID, srcID, dstID uint32, start, end time.Time, ldu1Count, ldu2Count int, endReason string) {
	if t == nil || t.store == nil {
		return
	}

	duration := end.Sub(start)
	if duration < t.minDuration {
		t.log.Debug("skipped saving short call",
			logger.Uint32("src", srcID), logger.Uint32("dst", dstID),
			logger.Float64("duration_seconds", duration.Seconds()))
		return
	}

	record := &CallRecord{
		StreamID:  streamID,
		SourceID:  srcID,
		Talkgroup: dstID,
		StartTime: start,
		EndTime:   end,
		Duration:  duration.Seconds(),
		LDU1Count: ldu1Count,
		LDU2Count: ldu2Count,
		EndReason: endReason,
	}

	if err := t.store.repo.Create(record); err != nil {
		t.log.Error("failed to save call record", logger.Error(err),
			logger.Uint32("src", srcID), logger.Uint32("dst", dstID))
		return
	}

	t.log.Debug("saved call record",
		logger.Uint32("src", srcID), logger.Uint32("dst", dstID),
		logger.Float64("duration_seconds", duration.Seconds()))
}
