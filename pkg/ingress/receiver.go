// Package ingress binds the local UDP socket that accepts decoded
// voice frames from the radio receiver and hands them to the call
// pipeline.
package ingress

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/hambridge/p25gw/pkg/logger"
	"github.com/hambridge/p25gw/pkg/protocol"
)

// FrameHandler is invoked synchronously for every successfully parsed
// ingress frame.
type FrameHandler func(protocol.IngressFrame)

// MetricsSink receives received/invalid frame counts as they happen.
// pkg/metrics's Collector satisfies this.
type MetricsSink interface {
	IngressFrameReceived()
	IngressFrameInvalid()
}

// Receiver binds a UDP socket and decodes ingress frame records from
// it, reporting received/invalid counts.
type Receiver struct {
	bind string
	port int
	log  *logger.Logger

	handler FrameHandler
	metrics MetricsSink

	mu   sync.Mutex
	conn *net.UDPConn

	received atomic.Uint64
	invalid  atomic.Uint64
}

// New creates a Receiver bound to bind:port once Start is called.
func New(bind string, port int, log *logger.Logger, handler FrameHandler) *Receiver {
	return &Receiver{
		bind:    bind,
		port:    port,
		log:     log.WithComponent("ingress"),
		handler: handler,
	}
}

// SetMetricsSink registers a counter sink for received/invalid
// frames. Must be called before Start; nil leaves metrics unrecorded.
func (r *Receiver) SetMetricsSink(sink MetricsSink) {
	r.metrics = sink
}

// Start binds the socket and runs the receive loop until ctx is
// cancelled. A bind failure is returned to the caller, who treats it
// as fatal.
func (r *Receiver) Start(ctx context.Context) error {
	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var sockErr error
			if err := c.Control(func(fd uintptr) {
				sockErr = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 1)
			}); err != nil {
				return err
			}
			return sockErr
		},
	}

	packetConn, err := lc.ListenPacket(ctx, "udp", fmt.Sprintf("%s:%d", r.bind, r.port))
	if err != nil {
		return fmt.Errorf("ingress: failed to bind udp port %d: %w", r.port, err)
	}
	conn := packetConn.(*net.UDPConn)

	r.mu.Lock()
	r.conn = conn
	r.mu.Unlock()

	r.log.Info("listening", logger.Int("port", r.port))

	buf := make([]byte, 256)
	for {
		select {
		case <-ctx.Done():
			r.close()
			return nil
		default:
		}

		conn.SetReadDeadline(time.Now().Add(1 * time.Second))
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			select {
			case <-ctx.Done():
				r.close()
				return nil
			default:
				continue
			}
		}

		frame, err := protocol.ParseIngressFrame(buf[:n])
		if err != nil {
			invalid := r.invalid.Add(1)
			if r.metrics != nil {
				r.metrics.IngressFrameInvalid()
			}
			if invalid%100 == 1 {
				r.log.Warn("invalid ingress packet", logger.Int("len", n), logger.Uint64("total_invalid", invalid))
			}
			continue
		}

		received := r.received.Add(1)
		if r.metrics != nil {
			r.metrics.IngressFrameReceived()
		}
		if received <= 5 || received%1000 == 0 {
			r.log.Debug("received frame",
				logger.Uint64("count", received),
				logger.Uint32("nac", uint32(frame.NAC)),
				logger.Uint32("talkgroup", frame.Talkgroup),
				logger.Uint32("source_id", frame.SourceID),
				logger.Int("voice_index", int(frame.VoiceIdx)))
		}

		r.handler(frame)
	}
}

// Stop closes the listening socket, unblocking the receive loop.
func (r *Receiver) Stop() {
	r.close()
}

func (r *Receiver) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn != nil {
		r.conn.Close()
		r.conn = nil
	}
}

// PacketsReceived returns the count of valid frames decoded so far.
func (r *Receiver) PacketsReceived() uint64 { return r.received.Load() }

// PacketsInvalid returns the count of dropped malformed datagrams.
func (r *Receiver) PacketsInvalid() uint64 { return r.invalid.Load() }
