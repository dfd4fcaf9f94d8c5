package metrics

import (
	"testing"
	"time"
)

func TestNewCollector(t *testing.T) {
	collector := NewCollector()
	if collector == nil {
		t.Fatal("expected non-nil collector")
	}
}

func TestCollector_IngressMetrics(t *testing.T) {
	collector := NewCollector()

	collector.IngressFrameReceived()
	collector.IngressFrameReceived()
	collector.IngressFrameInvalid()

	if got := collector.GetIngressReceived(); got != 2 {
		t.Errorf("expected 2 received frames, got %d", got)
	}
	if got := collector.GetIngressInvalid(); got != 1 {
		t.Errorf("expected 1 invalid frame, got %d", got)
	}
}

func TestCollector_CallMetrics(t *testing.T) {
	collector := NewCollector()

	start := time.Now()
	collector.CallStarted(777, 100, 200, start)
	if !collector.GetCallActive() {
		t.Error("expected call to be active after CallStarted")
	}
	if got := collector.GetCallsTotal(); got != 1 {
		t.Errorf("expected 1 total call, got %d", got)
	}

	collector.CallEnded(777, 100, 200, start, start.Add(time.Second), 2, 1, "timeout")
	if collector.GetCallActive() {
		t.Error("expected call to be inactive after CallEnded")
	}
	if got := collector.GetLDU1Total(); got != 2 {
		t.Errorf("expected 2 LDU1 frames, got %d", got)
	}
	if got := collector.GetLDU2Total(); got != 1 {
		t.Errorf("expected 1 LDU2 frame, got %d", got)
	}
}

func TestCollector_FNEConnectionMetrics(t *testing.T) {
	collector := NewCollector()

	collector.SetFNEConnected(true)
	if !collector.GetFNEConnected() {
		t.Error("expected FNE connected to be true")
	}
	if got := collector.GetFNEReconnectsTotal(); got != 0 {
		t.Errorf("expected 0 reconnects on first connect, got %d", got)
	}

	collector.SetFNEConnected(false)
	collector.SetFNEConnected(true)
	if got := collector.GetFNEReconnectsTotal(); got != 1 {
		t.Errorf("expected 1 reconnect after a disconnect/reconnect cycle, got %d", got)
	}
}

func TestCollector_Reset(t *testing.T) {
	collector := NewCollector()

	collector.CallStarted(777, 1, 2, time.Now())
	collector.SetFNEConnected(true)

	collector.Reset()

	if collector.GetCallActive() {
		t.Error("expected call active to be false after reset")
	}
	if collector.GetFNEConnected() {
		t.Error("expected FNE connected to be false after reset")
	}
	if got := collector.GetCallsTotal(); got != 1 {
		t.Errorf("expected cumulative calls total to survive reset, got %d", got)
	}
}

func TestCollector_Concurrent(t *testing.T) {
	collector := NewCollector()

	done := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		go func() {
			collector.IngressFrameReceived()
			collector.CallEnded(777, 1, 2, time.Now(), time.Now(), 1, 0, "timeout")
			done <- true
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}

	if got := collector.GetIngressReceived(); got != 10 {
		t.Errorf("expected 10 received frames, got %d", got)
	}
	if got := collector.GetLDU1Total(); got != 10 {
		t.Errorf("expected 10 LDU1 frames, got %d", got)
	}
}
