// Package config loads bridge configuration from YAML, environment
// variables, and defaults, in that order of increasing precedence for the
// environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full bridge configuration.
type Config struct {
	Engine   EngineConfig   `mapstructure:"engine"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	EventLog EventLogConfig `mapstructure:"event_log"`
	Gateway  GatewayConfig  `mapstructure:"gateway"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
}

// EngineConfig describes how to launch and talk to the rules engine process.
type EngineConfig struct {
	// Command is the engine executable, e.g. "node".
	Command string `mapstructure:"command"`
	// Args are passed to the executable, e.g. the bridge server script path.
	Args []string `mapstructure:"args"`
	// Dir is the child process working directory.
	Dir string `mapstructure:"dir"`
	// ReadTimeout bounds each response read. Zero keeps the reference
	// behavior of blocking indefinitely.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// ShutdownGrace bounds the graceful-shutdown wait before the process is
	// killed.
	ShutdownGrace time.Duration `mapstructure:"shutdown_grace"`
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// EventLogConfig controls per-session event log files.
type EventLogConfig struct {
	Dir string `mapstructure:"dir"`
}

// GatewayConfig controls the WebSocket controller gateway.
type GatewayConfig struct {
	Address string `mapstructure:"address"`
}

// ArchiveConfig controls optional Postgres history archiving.
type ArchiveConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
}

// Load reads configuration from the given file path (optional) with
// BRIDGE_-prefixed environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("engine.command", "node")
	v.SetDefault("engine.args", []string{"bridge/bridge_server.js"})
	v.SetDefault("engine.dir", "")
	v.SetDefault("engine.read_timeout", time.Duration(0))
	v.SetDefault("engine.shutdown_grace", 2*time.Second)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("event_log.dir", "logs")
	v.SetDefault("gateway.address", ":8089")
	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.dsn", "")

	v.SetEnvPrefix("BRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Engine.Command == "" {
		return nil, fmt.Errorf("engine.command must not be empty")
	}
	return &cfg, nil
}
