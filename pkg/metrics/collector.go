package metrics

import (
	"sync"
	"time"
)

// Collector collects gateway-wide operational counters, aggregated
// from the ingress receiver, call manager, and FNE session.
type Collector struct {
	mu sync.RWMutex

	// Ingress metrics
	ingressReceived uint64
	ingressInvalid  uint64

	// Call metrics
	callsTotal uint64
	callActive bool
	ldu1Total  uint64
	ldu2Total  uint64

	// FNE session metrics
	fneConnected        bool
	fneHasConnectedOnce bool
	fneReconnectsTotal  uint64
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{}
}

// IngressFrameReceived records one successfully decoded ingress frame.
func (c *Collector) IngressFrameReceived() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ingressReceived++
}

// IngressFrameInvalid records one malformed/dropped ingress datagram.
func (c *Collector) IngressFrameInvalid() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ingressInvalid++
}

// CallStarted records the start of a new call. It satisfies
// callmgr.CallObserver, letting the call manager drive this counter
// directly rather than through a side channel.
func (c *Collector) CallStarted(streamID, srcID, dstID uint32, start time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callsTotal++
	c.callActive = true
}

// CallEnded records the end of the active call and folds its LDU
// counts into the running totals. It satisfies callmgr.CallObserver.
func (c *Collector) CallEnded(streamID, srcID, dstID uint32, start, end time.Time, ldu1Count, ldu2Count int, endReason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callActive = false
	c.ldu1Total += uint64(ldu1Count)
	c.ldu2Total += uint64(ldu2Count)
}

// SetFNEConnected records the current FNE session connection state,
// counting a reconnect whenever the state transitions false -> true
// after an initial connection has already happened. The first
// successful connect is not itself a reconnect.
func (c *Collector) SetFNEConnected(connected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if connected && !c.fneConnected {
		if c.fneHasConnectedOnce {
			c.fneReconnectsTotal++
		}
		c.fneHasConnectedOnce = true
	}
	c.fneConnected = connected
}

// Reset clears transient state (active call, connection state) while
// preserving cumulative counters. Useful for testing.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callActive = false
	c.fneConnected = false
}

// Getters for metrics.

func (c *Collector) GetIngressReceived() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ingressReceived
}

func (c *Collector) GetIngressInvalid() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ingressInvalid
}

func (c *Collector) GetCallsTotal() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.callsTotal
}

func (c *Collector) GetCallActive() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.callActive
}

func (c *Collector) GetLDU1Total() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ldu1Total
}

func (c *Collector) GetLDU2Total() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ldu2Total
}

func (c *Collector) GetFNEConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fneConnected
}

func (c *Collector) GetFNEReconnectsTotal() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fneReconnectsTotal
}
