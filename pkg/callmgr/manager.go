// Package callmgr tracks in-progress P25 calls, assembling inbound
// IMBE voice frames into complete LDU1/LDU2 units and driving the
// network session through call start, mid-call parameter changes, and
// timeout-based termination.
package callmgr

import (
	"context"
	"sync"
	"time"

	"github.com/hambridge/p25gw/pkg/logger"
	"github.com/hambridge/p25gw/pkg/protocol"
)

// State is the call manager's coarse call state.
type State int

const (
	StateIdle State = iota
	StateActive
)

// Session is the network-facing side of a call: whatever the call
// manager is relaying frames toward. pkg/fne's client satisfies it.
type Session interface {
	StartStream(streamID, srcID, dstID uint32)
	EndStream(srcID, dstID uint32)
	SendLDU1(voice protocol.VoiceGroup, srcID, dstID uint32, firstLDU bool)
	SendLDU2(voice protocol.VoiceGroup, srcID, dstID uint32)
}

// Call end reasons, recorded on every CallEnded event and persisted on
// the history record.
const (
	CallEndTimeout  = "timeout"
	CallEndRestart  = "restart"
	CallEndShutdown = "shutdown"
)

// CallObserver is notified of call lifecycle events. pkg/history's
// Tracker satisfies it to persist completed calls, and pkg/web
// satisfies it to push live events to the WebSocket feed.
type CallObserver interface {
	CallStarted(streamID, srcID, dstID uint32, start time.Time)
	CallEnded(streamID, srcID, dstID uint32, start, end time.Time, ldu1Count, ldu2Count int, endReason string)
}

// Manager assembles ingress frames into LDUs and manages call
// lifecycle. All public methods are safe for concurrent use.
type Manager struct {
	session   Session
	observers []CallObserver
	log       *logger.Logger

	talkgroupOverride uint32
	sourceOverride    uint32
	callTimeout       time.Duration

	mu              sync.Mutex
	state           State
	currentSrcID    uint32
	currentDstID    uint32
	currentStreamID uint32
	callStartTime   time.Time
	lastPacketTime  time.Time
	firstLDU        bool
	voice           protocol.VoiceGroup
	imbeCount       int
	expectingLDU2   bool

	callCount     uint64
	ldu1Count     uint64
	ldu2Count     uint64
	callLDU1Count int
	callLDU2Count int
}

// Config holds the tunables CallManager needs at construction time.
type Config struct {
	TalkgroupOverride uint32
	SourceOverride    uint32
	CallTimeout       time.Duration
}

// New creates a Manager driving session. Call Run to start the
// timeout supervisor before feeding it frames.
func New(session Session, cfg Config, log *logger.Logger) *Manager {
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = time.Duration(protocol.DefaultTimeoutMs) * time.Millisecond
	}
	return &Manager{
		session:           session,
		log:               log.WithComponent("callmgr"),
		talkgroupOverride: cfg.TalkgroupOverride,
		sourceOverride:    cfg.SourceOverride,
		callTimeout:       timeout,
		state:             StateIdle,
		firstLDU:          true,
	}
}

// AddObserver registers a call-lifecycle observer. Must be called
// before the manager starts processing frames; it is not safe to call
// concurrently with ProcessFrame.
func (m *Manager) AddObserver(observer CallObserver) {
	m.observers = append(m.observers, observer)
}

// Run polls for call timeout every 100ms until ctx is cancelled. Any
// call still active when ctx is cancelled is ended before Run returns.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.mu.Lock()
			if m.state == StateActive {
				m.endCallLocked(CallEndShutdown)
			}
			m.mu.Unlock()
			return
		case <-ticker.C:
			m.checkTimeout()
		}
	}
}

func (m *Manager) checkTimeout() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateActive {
		return
	}
	if time.Since(m.lastPacketTime) > m.callTimeout {
		m.log.Info("call timeout, ending call")
		m.endCallLocked(CallEndTimeout)
	}
}

// ProcessFrame feeds one decoded ingress frame through the state
// machine, assembling it into an LDU and dispatching to the session
// when the frame at voice index 8 (the last of a superframe) arrives.
// A frame with a voice index above 8 is dropped without changing state.
func (m *Manager) ProcessFrame(f protocol.IngressFrame) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if f.VoiceIdx > 8 {
		m.log.Warn("invalid voice index", logger.Int("voice_index", int(f.VoiceIdx)))
		return
	}

	srcID := f.SourceID
	if m.sourceOverride > 0 {
		srcID = m.sourceOverride
	}
	dstID := f.Talkgroup
	if m.talkgroupOverride > 0 {
		dstID = m.talkgroupOverride
	}

	if m.state == StateIdle {
		m.startCallLocked(srcID, dstID)
	}

	m.lastPacketTime = time.Now()

	if m.state == StateActive && (srcID != m.currentSrcID || dstID != m.currentDstID) {
		m.log.Info("call parameters changed, restarting",
			logger.Uint32("src", srcID), logger.Uint32("dst", dstID))
		m.endCallLocked(CallEndRestart)
		m.startCallLocked(srcID, dstID)
	}

	m.voice[f.VoiceIdx] = f.Voice
	m.imbeCount++

	m.log.Debug("frame assembled",
		logger.Int("voice_index", int(f.VoiceIdx)),
		logger.Int("frame_type", int(f.FrameType)),
		logger.Int("count", m.imbeCount))

	if f.VoiceIdx == 8 {
		m.sendLDULocked()
		m.imbeCount = 0
	}
}

func (m *Manager) startCallLocked(srcID, dstID uint32) {
	streamID, err := protocol.RandomStreamID()
	if err != nil {
		m.log.Error("failed to generate stream id", logger.Error(err))
	}

	m.state = StateActive
	m.currentSrcID = srcID
	m.currentDstID = dstID
	m.currentStreamID = streamID
	m.callStartTime = time.Now()
	m.firstLDU = true
	m.imbeCount = 0
	m.expectingLDU2 = false
	m.callLDU1Count = 0
	m.callLDU2Count = 0
	m.lastPacketTime = time.Now()
	m.callCount++

	m.log.Info("call started",
		logger.Uint32("src", srcID), logger.Uint32("dst", dstID),
		logger.Uint32("stream_id", streamID), logger.Uint64("call_number", m.callCount))

	m.session.StartStream(streamID, srcID, dstID)

	for _, o := range m.observers {
		o.CallStarted(streamID, srcID, dstID, m.callStartTime)
	}
}

func (m *Manager) endCallLocked(reason string) {
	if m.state == StateIdle {
		return
	}

	m.log.Info("call ended",
		logger.Uint32("src", m.currentSrcID), logger.Uint32("dst", m.currentDstID),
		logger.Uint64("ldu1_count", m.ldu1Count), logger.Uint64("ldu2_count", m.ldu2Count),
		logger.String("reason", reason))

	m.session.EndStream(m.currentSrcID, m.currentDstID)

	for _, o := range m.observers {
		o.CallEnded(m.currentStreamID, m.currentSrcID, m.currentDstID, m.callStartTime, time.Now(),
			m.callLDU1Count, m.callLDU2Count, reason)
	}

	m.state = StateIdle
	m.currentSrcID = 0
	m.currentDstID = 0
	m.currentStreamID = 0
	m.imbeCount = 0
	m.expectingLDU2 = false
	m.firstLDU = true
	m.voice = protocol.VoiceGroup{}
}

// sendLDULocked dispatches the accumulated voice buffer as an LDU1 or
// LDU2, alternating on each call, then clears the buffer regardless of
// whether every slot was actually filled this round.
func (m *Manager) sendLDULocked() {
	if m.state != StateActive {
		return
	}

	if !m.expectingLDU2 {
		m.session.SendLDU1(m.voice, m.currentSrcID, m.currentDstID, m.firstLDU)
		m.ldu1Count++
		m.callLDU1Count++
		m.firstLDU = false
		m.expectingLDU2 = true
		m.log.Debug("sent LDU1", logger.Uint64("count", m.ldu1Count))
	} else {
		m.session.SendLDU2(m.voice, m.currentSrcID, m.currentDstID)
		m.ldu2Count++
		m.callLDU2Count++
		m.expectingLDU2 = false
		m.log.Debug("sent LDU2", logger.Uint64("count", m.ldu2Count))
	}

	m.voice = protocol.VoiceGroup{}
}

// CallCount returns the number of calls started since the manager was
// created.
func (m *Manager) CallCount() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// LDU1Count returns the number of LDU1 superframes sent so far.
func (m *Manager) LDU1Count() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ldu1Count
}

// LDU2Count returns the number of LDU2 superframes sent so far.
func (m *Manager) LDU2Count() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ldu2Count
}

// State returns the manager's current call state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}
