// Command p25gw relays P25 voice traffic decoded by a local radio
// receiver to an upstream DVM/FNE network, the way the reference
// OP25-to-DVM gateway wires its receiver, call manager, and FNE
// client together.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hambridge/p25gw/pkg/callmgr"
	"github.com/hambridge/p25gw/pkg/config"
	"github.com/hambridge/p25gw/pkg/fne"
	"github.com/hambridge/p25gw/pkg/history"
	"github.com/hambridge/p25gw/pkg/ingress"
	"github.com/hambridge/p25gw/pkg/logger"
	"github.com/hambridge/p25gw/pkg/metrics"
	"github.com/hambridge/p25gw/pkg/web"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	configFile := flag.String("config", "config.yaml", "path to configuration file")
	showVersion := flag.Bool("version", false, "show version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("p25gw %s (built %s)\n", version, buildTime)
		os.Exit(0)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg.Log)
	log.Info("starting p25gw", logger.String("version", version), logger.String("build_time", buildTime))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	collector := metrics.NewCollector()

	historyStore, err := openHistory(cfg.History, log)
	if err != nil {
		log.Error("failed to open call history store", logger.Error(err))
		os.Exit(1)
	}
	if historyStore != nil {
		defer historyStore.Close()
	}
	tracker := history.NewTracker(historyStore, minDuration(cfg.History), log)

	statusServer := web.NewServer(cfg.Status, collector, log)

	fneClient := fne.New(fne.Config{
		Host:              cfg.FNE.Host,
		Port:              cfg.FNE.Port,
		PeerID:            cfg.FNE.PeerID,
		Password:          cfg.FNE.Password,
		Identity:          cfg.FNE.Identity,
		SoftwareID:        cfg.FNE.SoftwareID,
		WACN:              cfg.FNE.WACN,
		SystemID:          cfg.FNE.SystemID,
		RXFrequency:       cfg.FNE.RXFrequency,
		TXFrequency:       cfg.FNE.TXFrequency,
		TXPower:           cfg.FNE.TXPower,
		Latitude:          cfg.FNE.Latitude,
		Longitude:         cfg.FNE.Longitude,
		ReconnectInterval: time.Duration(cfg.FNE.ReconnectIntervalSecs) * time.Second,
		AutoReconnect:     cfg.FNE.AutoReconnect,
	}, log)

	fneClient.SetConnectionCallback(func(connected bool) {
		collector.SetFNEConnected(connected)
		statusServer.NotifySessionStateChanged(connected)
		if connected {
			log.Info("FNE connection established")
		} else {
			log.Warn("FNE connection lost")
		}
	})

	callManager := callmgr.New(fneClient, callmgr.Config{
		TalkgroupOverride: cfg.Gateway.TalkgroupOverride,
		SourceOverride:    cfg.Gateway.SourceOverride,
		CallTimeout:       time.Duration(cfg.Gateway.CallTimeoutMs) * time.Millisecond,
	}, log)
	callManager.AddObserver(collector)
	callManager.AddObserver(tracker)
	callManager.AddObserver(statusServer)

	receiver := ingress.New(cfg.Ingress.Bind, cfg.Ingress.Port, log, callManager.ProcessFrame)
	receiver.SetMetricsSink(collector)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := fneClient.Run(ctx); err != nil && err != context.Canceled {
			log.Error("FNE session error", logger.Error(err))
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		callManager.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := statusServer.Start(ctx); err != nil && err != context.Canceled {
			log.Error("status server error", logger.Error(err))
		}
	}()

	log.Info("waiting for FNE connection")
	waitForFNE(ctx, fneClient, 30*time.Second)
	if !fneClient.IsConnected() {
		log.Warn("could not connect to FNE, continuing anyway (will auto-reconnect)")
	}

	ingressErr := make(chan error, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		ingressErr <- receiver.Start(ctx)
	}()

	log.Info("gateway running")

	statsTicker := time.NewTicker(time.Minute)
	defer statsTicker.Stop()

runLoop:
	for {
		select {
		case sig := <-sigChan:
			log.Info("received shutdown signal", logger.String("signal", sig.String()))
			break runLoop
		case err := <-ingressErr:
			if err != nil {
				log.Error("ingress receiver failed", logger.Error(err))
				cancel()
				os.Exit(1)
			}
		case <-statsTicker.C:
			log.Info("stats",
				logger.Uint64("ingress_received", receiver.PacketsReceived()),
				logger.Uint64("ingress_invalid", receiver.PacketsInvalid()),
				logger.Uint64("calls", callManager.CallCount()),
				logger.Uint64("ldu1", callManager.LDU1Count()),
				logger.Uint64("ldu2", callManager.LDU2Count()),
				logger.Bool("fne_connected", fneClient.IsConnected()))
		case <-ctx.Done():
			break runLoop
		}
	}

	log.Info("shutting down")
	cancel()
	receiver.Stop()
	wg.Wait()

	log.Info("shutdown complete")
}

func newLogger(cfg config.LogConfig) *logger.Logger {
	var output *os.File
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file %s: %v\n", cfg.File, err)
		} else {
			output = f
		}
	}

	logCfg := logger.Config{Level: cfg.Level, Format: cfg.Format}
	if output != nil {
		logCfg.Output = output
	}
	return logger.New(logCfg)
}

func openHistory(cfg config.HistoryConfig, log *logger.Logger) (*history.Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	store, err := history.Open(history.Config{
		Path:        cfg.Path,
		MinDuration: time.Duration(cfg.MinDurationSecs * float64(time.Second)),
	}, log)
	if err != nil {
		return nil, fmt.Errorf("open call history: %w", err)
	}
	return store, nil
}

func minDuration(cfg config.HistoryConfig) time.Duration {
	return time.Duration(cfg.MinDurationSecs * float64(time.Second))
}

func waitForFNE(ctx context.Context, client *fne.Client, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if client.IsConnected() {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}
