// manager.go - configuration loading for the alert notifier.
//
// Adapted from the teacher's internal/core/config/manager.go: same
// viper + mapstructure LoadConfig/setDefaults pattern, narrowed to the
// alert notification engine's ambient concerns (the notifier's own
// server/metrics endpoint, logging, and the list of configured alert
// targets) instead of the teacher's full webwork server configuration
// (security, bridge protocols, discovery, dashboards). The teacher's
// Manager/Provider/ChangeEvent plumbing is dropped: it duplicated its own
// type declarations between manager.go and types.go and had no caller
// anywhere in the teacher tree (see DESIGN.md).
package config

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration for the notifier process.
type Config struct {
	Server  ServerConfig    `mapstructure:"server"`
	Logging LoggingConfig   `mapstructure:"logging"`
	Metrics MetricsConfig   `mapstructure:"metrics"`
	Targets []TargetSection `mapstructure:"targets"`
}

// ServerConfig holds process-level server settings. Only ShutdownTimeout
// is read (it bounds the metrics server's shutdown); Host and Port are not
// used, and /health is served by the metrics server on MetricsConfig.Port.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig controls zap logger construction.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	Dev   bool   `mapstructure:"dev"`
}

// MetricsConfig controls the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// TargetSection is one raw target document from the config file. Viper
// decodes it as a generic map so alerts.Parse (which re-validates exact
// field presence) sees the same document a hand-written JSON/YAML target
// file would produce.
type TargetSection map[string]interface{}

// JSON re-serializes the section back to the wire form alerts.Parse expects.
func (t TargetSection) JSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}(t))
}

// LoadConfig reads and validates the notifier configuration file at path.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvPrefix("ALERTNOTIFY")
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.dev", false)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
}
