package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config is the fully resolved gateway configuration.
type Config struct {
	Ingress IngressConfig `mapstructure:"ingress"`
	FNE     FNEConfig     `mapstructure:"fne"`
	Gateway GatewayConfig `mapstructure:"gateway"`
	Log     LogConfig     `mapstructure:"log"`
	History HistoryConfig `mapstructure:"history"`
	Status  StatusConfig  `mapstructure:"status"`
}

// IngressConfig configures the UDP listener that accepts ingress frame
// records from the local voice decoder.
type IngressConfig struct {
	Port int    `mapstructure:"port"`
	Bind string `mapstructure:"bind"`
}

// FNEConfig configures the upstream network server session.
type FNEConfig struct {
	Host                   string  `mapstructure:"host"`
	Port                   int     `mapstructure:"port"`
	Password               string  `mapstructure:"password"`
	PeerID                 uint32  `mapstructure:"peer_id"`
	Identity               string  `mapstructure:"identity"`
	SoftwareID             string  `mapstructure:"software_id"`
	RXFrequency            int     `mapstructure:"rx_frequency"`
	TXFrequency            int     `mapstructure:"tx_frequency"`
	TXPower                int     `mapstructure:"tx_power"`
	Latitude               float64 `mapstructure:"latitude"`
	Longitude              float64 `mapstructure:"longitude"`
	WACN                   uint32  `mapstructure:"wacn"`
	SystemID               uint16  `mapstructure:"system_id"`
	ReconnectIntervalSecs  int     `mapstructure:"reconnect_interval_seconds"`
	AutoReconnect          bool    `mapstructure:"auto_reconnect"`
}

// GatewayConfig configures call-level behavior of the gateway itself.
type GatewayConfig struct {
	TalkgroupOverride uint32 `mapstructure:"talkgroup_override"`
	SourceOverride    uint32 `mapstructure:"source_override"`
	CallTimeoutMs     int    `mapstructure:"call_timeout_ms"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	File   string `mapstructure:"file"`
	Format string `mapstructure:"format"`
}

// HistoryConfig configures call-history persistence.
type HistoryConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	Path              string  `mapstructure:"path"`
	MinDurationSecs   float64 `mapstructure:"min_duration_seconds"`
}

// StatusConfig configures the live status/metrics surface.
type StatusConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	PrometheusPath string `mapstructure:"prometheus_path"`
}

// Load reads configuration from configFile (or the default search
// path when empty), overlays environment variables prefixed GATEWAY_,
// and validates the result.
func Load(configFile string) (*Config, error) {
	setDefaults()

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath("/etc/p25gw")
	}

	viper.SetEnvPrefix("GATEWAY")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// No config file is fine; defaults stand.
		} else if os.IsNotExist(err) {
			// Explicitly named file missing is also fine.
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("ingress.port", 9999)
	viper.SetDefault("ingress.bind", "0.0.0.0")

	viper.SetDefault("fne.host", "127.0.0.1")
	viper.SetDefault("fne.port", 62031)
	viper.SetDefault("fne.password", "PASSWORD")
	viper.SetDefault("fne.peer_id", 9000999)
	viper.SetDefault("fne.identity", "OP25-Gateway")
	viper.SetDefault("fne.software_id", "OP25-Gateway-1.0")
	viper.SetDefault("fne.rx_frequency", 449000000)
	viper.SetDefault("fne.tx_frequency", 444000000)
	viper.SetDefault("fne.tx_power", 1)
	viper.SetDefault("fne.latitude", 0.0)
	viper.SetDefault("fne.longitude", 0.0)
	viper.SetDefault("fne.wacn", 0x92C19)
	viper.SetDefault("fne.system_id", 0x50E)
	viper.SetDefault("fne.reconnect_interval_seconds", 10)
	viper.SetDefault("fne.auto_reconnect", true)

	viper.SetDefault("gateway.talkgroup_override", 0)
	viper.SetDefault("gateway.source_override", 0)
	viper.SetDefault("gateway.call_timeout_ms", 1000)

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
	viper.SetDefault("log.file", "")

	viper.SetDefault("history.enabled", true)
	viper.SetDefault("history.path", "gateway.db")
	viper.SetDefault("history.min_duration_seconds", 0.5)

	viper.SetDefault("status.enabled", true)
	viper.SetDefault("status.host", "0.0.0.0")
	viper.SetDefault("status.port", 8080)
	viper.SetDefault("status.prometheus_path", "/metrics")
}
