package config

import "fmt"

// validate checks the resolved configuration for obviously invalid
// values before the gateway starts binding sockets.
func validate(cfg *Config) error {
	if cfg.Ingress.Port <= 0 || cfg.Ingress.Port > 65535 {
		return fmt.Errorf("ingress.port must be between 1 and 65535")
	}

	if cfg.FNE.Host == "" {
		return fmt.Errorf("fne.host is required")
	}
	if cfg.FNE.Port <= 0 || cfg.FNE.Port > 65535 {
		return fmt.Errorf("fne.port must be between 1 and 65535")
	}
	if cfg.FNE.PeerID == 0 {
		return fmt.Errorf("fne.peer_id must be non-zero")
	}
	if cfg.FNE.ReconnectIntervalSecs <= 0 {
		return fmt.Errorf("fne.reconnect_interval_seconds must be positive")
	}

	if cfg.Gateway.CallTimeoutMs <= 0 {
		return fmt.Errorf("gateway.call_timeout_ms must be positive")
	}

	if cfg.History.Enabled && cfg.History.Path == "" {
		return fmt.Errorf("history.path is required when history.enabled is true")
	}
	if cfg.History.MinDurationSecs < 0 {
		return fmt.Errorf("history.min_duration_seconds must not be negative")
	}

	if cfg.Status.Enabled {
		if cfg.Status.Port <= 0 || cfg.Status.Port > 65535 {
			return fmt.Errorf("status.port must be between 1 and 65535")
		}
	}

	return nil
}
