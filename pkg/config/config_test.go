package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
)

func TestLoad_UsesDefaults_WhenNoFile(t *testing.T) {
	viper.Reset()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("Chdir failed: %v", err)
	}
	t.Cleanup(func() { os.Chdir(wd) })

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Ingress.Port != 9999 {
		t.Errorf("expected default ingress port 9999, got %d", cfg.Ingress.Port)
	}
	if cfg.FNE.Port != 62031 {
		t.Errorf("expected default fne port 62031, got %d", cfg.FNE.Port)
	}
	if cfg.FNE.PeerID != 9000999 {
		t.Errorf("expected default peer id 9000999, got %d", cfg.FNE.PeerID)
	}
	if cfg.Gateway.CallTimeoutMs != 1000 {
		t.Errorf("expected default call timeout 1000ms, got %d", cfg.Gateway.CallTimeoutMs)
	}
	if cfg.FNE.WACN != 0x92C19 {
		t.Errorf("expected default WACN 0x92C19, got 0x%X", cfg.FNE.WACN)
	}
	if !cfg.History.Enabled {
		t.Errorf("expected history.enabled default true")
	}
}

func TestLoad_OverridesFromFile(t *testing.T) {
	viper.Reset()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := `
ingress:
  port: 7777
fne:
  host: fne.example.org
  peer_id: 123456
gateway:
  talkgroup_override: 42
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Ingress.Port != 7777 {
		t.Errorf("expected overridden port 7777, got %d", cfg.Ingress.Port)
	}
	if cfg.FNE.Host != "fne.example.org" {
		t.Errorf("expected overridden host, got %s", cfg.FNE.Host)
	}
	if cfg.Gateway.TalkgroupOverride != 42 {
		t.Errorf("expected talkgroup override 42, got %d", cfg.Gateway.TalkgroupOverride)
	}
}

func TestValidate_Errors(t *testing.T) {
	t.Run("invalid ingress port", func(t *testing.T) {
		cfg := &Config{
			Ingress: IngressConfig{Port: 99999},
			FNE:     FNEConfig{Host: "x", Port: 1, PeerID: 1, ReconnectIntervalSecs: 1},
			Gateway: GatewayConfig{CallTimeoutMs: 100},
		}
		if err := validate(cfg); err == nil {
			t.Fatal("expected error for out-of-range ingress port")
		}
	})

	t.Run("missing fne host", func(t *testing.T) {
		cfg := &Config{
			Ingress: IngressConfig{Port: 9999},
			FNE:     FNEConfig{Port: 1, PeerID: 1, ReconnectIntervalSecs: 1},
			Gateway: GatewayConfig{CallTimeoutMs: 100},
		}
		if err := validate(cfg); err == nil {
			t.Fatal("expected error for missing fne.host")
		}
	})

	t.Run("zero peer id", func(t *testing.T) {
		cfg := &Config{
			Ingress: IngressConfig{Port: 9999},
			FNE:     FNEConfig{Host: "x", Port: 1, PeerID: 0, ReconnectIntervalSecs: 1},
			Gateway: GatewayConfig{CallTimeoutMs: 100},
		}
		if err := validate(cfg); err == nil {
			t.Fatal("expected error for zero peer id")
		}
	})

	t.Run("history enabled without path", func(t *testing.T) {
		cfg := &Config{
			Ingress: IngressConfig{Port: 9999},
			FNE:     FNEConfig{Host: "x", Port: 1, PeerID: 1, ReconnectIntervalSecs: 1},
			Gateway: GatewayConfig{CallTimeoutMs: 100},
			History: HistoryConfig{Enabled: true, Path: ""},
		}
		if err := validate(cfg); err == nil {
			t.Fatal("expected error for history enabled without path")
		}
	})
}
