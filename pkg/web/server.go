package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/hambridge/p25gw/pkg/config"
	"github.com/hambridge/p25gw/pkg/logger"
	"github.com/hambridge/p25gw/pkg/metrics"
)

// StatusSnapshot is the counter set exposed by /api/status, emitted in
// the per-minute log line, and pushed over the WebSocket feed.
type StatusSnapshot struct {
	Timestamp          time.Time `json:"timestamp"`
	IngressReceived     uint64    `json:"ingress_received"`
	IngressInvalid      uint64    `json:"ingress_invalid"`
	CallsTotal          uint64    `json:"calls_total"`
	CallActive          bool      `json:"call_active"`
	LDU1Total           uint64    `json:"ldu1_total"`
	LDU2Total           uint64    `json:"ldu2_total"`
	FNEConnected        bool      `json:"fne_connected"`
	FNEReconnectsTotal  uint64    `json:"fne_reconnects_total"`
}

func snapshotFrom(c *metrics.Collector) StatusSnapshot {
	return StatusSnapshot{
		Timestamp:          time.Now(),
		IngressReceived:    c.GetIngressReceived(),
		IngressInvalid:     c.GetIngressInvalid(),
		CallsTotal:         c.GetCallsTotal(),
		CallActive:         c.GetCallActive(),
		LDU1Total:          c.GetLDU1Total(),
		LDU2Total:          c.GetLDU2Total(),
		FNEConnected:       c.GetFNEConnected(),
		FNEReconnectsTotal: c.GetFNEReconnectsTotal(),
	}
}

// Server is the gateway's live status surface: a JSON status endpoint,
// a Prometheus text endpoint, and a WebSocket feed of the same
// counters plus discrete lifecycle events. It also satisfies
// callmgr.CallObserver so the call manager can push call-start/
// call-end events straight to connected dashboards.
type Server struct {
	config    config.StatusConfig
	collector *metrics.Collector
	logger    *logger.Logger
	hub       *WebSocketHub
	server    *http.Server
	addr      string
	mu        sync.RWMutex
}

// NewServer creates a new status server instance.
func NewServer(cfg config.StatusConfig, collector *metrics.Collector, log *logger.Logger) *Server {
	return &Server{
		config:    cfg,
		collector: collector,
		logger:    log.WithComponent("web"),
		hub:       NewWebSocketHub(log),
	}
}

// CallStarted satisfies callmgr.CallObserver.
func (s *Server) CallStarted(streamID, srcID, dstID uint32, start time.Time) {
	s.hub.BroadcastCallStarted(streamID, srcID, dstID, start)
}

// CallEnded satisfies callmgr.CallObserver.
func (s *Server) CallEnded(streamID, srcID, dstID uint32, start, end time.Time, ldu1Count, ldu2Count int, endReason string) {
	s.hub.BroadcastCallEnded(streamID, srcID, dstID, start, end, ldu1Count, ldu2Count, endReason)
}

// NotifySessionStateChanged pushes a session connect/disconnect event
// to subscribed dashboards. Wired as (part of) the FNE client's
// connection callback.
func (s *Server) NotifySessionStateChanged(connected bool) {
	s.hub.BroadcastSessionStateChanged(connected)
}

// Start runs the status HTTP/WebSocket server and its per-minute
// snapshot ticker until ctx is cancelled. A disabled server returns
// immediately with a nil error.
func (s *Server) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.logger.Info("status server disabled")
		return nil
	}

	go s.hub.Run(ctx)
	go s.tickSnapshots(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)

	prometheusPath := s.config.PrometheusPath
	if prometheusPath == "" {
		prometheusPath = "/metrics"
	}
	mux.Handle(prometheusPath, metrics.NewPrometheusHandler(s.collector))

	mux.Handle("/ws", s.hub.Handler())

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}

	s.mu.Lock()
	s.addr = listener.Addr().String()
	s.mu.Unlock()

	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting status server", logger.String("address", s.addr))

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down status server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown status server: %w", err)
		}
		return ctx.Err()
	case err := <-errChan:
		return err
	}
}

// tickSnapshots logs and broadcasts a counter snapshot once a minute.
func (s *Server) tickSnapshots(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snapshot := snapshotFrom(s.collector)
			s.logger.Info("status snapshot",
				logger.Uint64("ingress_received", snapshot.IngressReceived),
				logger.Uint64("ingress_invalid", snapshot.IngressInvalid),
				logger.Uint64("calls_total", snapshot.CallsTotal),
				logger.Bool("call_active", snapshot.CallActive),
				logger.Uint64("ldu1_total", snapshot.LDU1Total),
				logger.Uint64("ldu2_total", snapshot.LDU2Total),
				logger.Bool("fne_connected", snapshot.FNEConnected))
			s.hub.BroadcastStatusSnapshot(snapshot)
		}
	}
}

// GetAddr returns the address the server is listening on.
func (s *Server) GetAddr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

// GetHub returns the WebSocket hub.
func (s *Server) GetHub() *WebSocketHub {
	return s.hub
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(snapshotFrom(s.collector)); err != nil {
		s.logger.Warn("failed to encode status response", logger.Error(err))
	}
}
