package fne

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/hambridge/p25gw/internal/testhelpers"
	"github.com/hambridge/p25gw/pkg/logger"
	"github.com/hambridge/p25gw/pkg/protocol"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Output: new(bytes.Buffer)})
}

func TestClient_ConnectAuthenticatesAndStaysConnected(t *testing.T) {
	fake, port, err := testhelpers.NewFakeFNE(0xDEADBEEF)
	if err != nil {
		t.Fatalf("failed to start fake FNE: %v", err)
	}
	defer fake.Close()

	client := New(Config{
		Host:              "127.0.0.1",
		Port:              port,
		PeerID:            9000999,
		Password:          "PASSWORD",
		Identity:          "test-gateway",
		SoftwareID:        "test-1.0",
		WACN:              0x92C19,
		SystemID:          0x50E,
		ReconnectInterval: time.Second,
		AutoReconnect:     false,
	}, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	if !client.IsConnected() {
		t.Fatal("expected client to be connected after handshake")
	}

	<-done
}

func TestClient_SendLDU1RelaysPayloadUpstream(t *testing.T) {
	fake, port, err := testhelpers.NewFakeFNE(0xDEADBEEF)
	if err != nil {
		t.Fatalf("failed to start fake FNE: %v", err)
	}
	defer fake.Close()

	client := New(Config{
		Host:              "127.0.0.1",
		Port:              port,
		PeerID:            9000999,
		Password:          "PASSWORD",
		WACN:              0x92C19,
		SystemID:          0x50E,
		ReconnectInterval: time.Second,
		AutoReconnect:     false,
	}, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	go client.Run(ctx)

	time.Sleep(100 * time.Millisecond)
	if !client.IsConnected() {
		t.Fatal("expected client to be connected")
	}

	client.StartStream(777, 100, 200)
	var voice protocol.VoiceGroup
	client.SendLDU1(voice, 100, 200, true)

	time.Sleep(100 * time.Millisecond)

	payloads := fake.ReceivedPayloads()
	if len(payloads) < 2 {
		t.Fatalf("expected at least 2 payloads (TDU grant + LDU1), got %d", len(payloads))
	}
	if len(payloads[1]) != protocol.LDU1Length {
		t.Errorf("expected LDU1-sized payload, got %d bytes", len(payloads[1]))
	}
}

func TestClient_ReconnectsAfterMidSessionDropWithoutDuplicateSends(t *testing.T) {
	fake, port, err := testhelpers.NewFakeFNE(0xDEADBEEF)
	if err != nil {
		t.Fatalf("failed to start fake FNE: %v", err)
	}

	client := New(Config{
		Host:              "127.0.0.1",
		Port:              port,
		PeerID:            9000999,
		Password:          "PASSWORD",
		WACN:              0x92C19,
		SystemID:          0x50E,
		ReconnectInterval: 100 * time.Millisecond,
		AutoReconnect:     true,
	}, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	go client.Run(ctx)

	waitFor(t, 1*time.Second, func() bool { return client.IsConnected() })

	// Drop the session out from under the client, the way a mid-call
	// network blip would, then send a frame: with nothing listening, the
	// refused datagram makes the client's next read fail, which is how
	// the receive loop notices the drop.
	fake.Close()
	client.StartStream(1, 100, 200)
	waitFor(t, 1*time.Second, func() bool { return !client.IsConnected() })

	// Bring the upstream server back on the same address. If the old
	// session's ping goroutine wasn't joined before the new one
	// started, it would resume sending on the new socket once
	// connect overwrites c.conn, duplicating heartbeats.
	fake2, err := testhelpers.NewFakeFNEOnPort(0xDEADBEEF, port)
	if err != nil {
		t.Fatalf("failed to rebind fake FNE on the same port: %v", err)
	}
	defer fake2.Close()

	waitFor(t, 1*time.Second, func() bool { return client.IsConnected() })

	client.StartStream(888, 100, 200)
	var voice protocol.VoiceGroup
	client.SendLDU1(voice, 100, 200, true)
	time.Sleep(150 * time.Millisecond)

	tduCount := 0
	for _, p := range fake2.ReceivedPayloads() {
		if len(p) == protocol.TDULength {
			tduCount++
		}
	}
	if tduCount != 1 {
		t.Errorf("expected exactly 1 TDU grant-demand on the new session, got %d (orphaned goroutine from the old session still sending?)", tduCount)
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestClient_ConnectFailsWithoutAckingServer(t *testing.T) {
	client := New(Config{
		Host:              "127.0.0.1",
		Port:              1, // nothing listens here
		PeerID:            9000999,
		Password:          "PASSWORD",
		ReconnectInterval: time.Second,
		AutoReconnect:     false,
	}, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err := client.Run(ctx)
	if err == nil {
		t.Fatal("expected connection error when no server is reachable")
	}
}
