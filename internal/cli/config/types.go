// Package config provides configuration management for the dbscope CLI.
//
// Values are layered with koanf: defaults, then the YAML config file, then
// DBSCOPE_ environment variables, then explicitly set flags.
package config

import (
	"log/slog"
	"time"
)

// Config holds all CLI configuration options.
type Config struct {
	// Transport selects how commands reach the backend: local, stdio or http.
	Transport string `koanf:"transport"`
	// Remote is the base URL of an HTTP backend.
	Remote       string                    `koanf:"remote"`
	OutputFormat string                    `koanf:"output"`
	LogLevel     slog.Level                `koanf:"log_level"`
	Verbose      bool                      `koanf:"verbose"`
	StatePath    string                    `koanf:"state_path"`
	Backend      BackendConfig             `koanf:"backend"`
	HTTP         HTTPConfig                `koanf:"http"`
	Adapters     map[string]map[string]any `koanf:"adapters"`

	// ConfigFile is the config file that was loaded, if any.
	ConfigFile string `koanf:"-"`
}

// BackendConfig configures the backend side.
type BackendConfig struct {
	QueryTimeout time.Duration `koanf:"query_timeout"`
	// Executable is the binary spawned by the stdio transport.
	// Empty means the running dbscope binary.
	Executable string `koanf:"executable"`
}

// HTTPConfig configures `dbscope serve`.
type HTTPConfig struct {
	Addr string `koanf:"addr"`
}

// Transports.
const (
	TransportLocal = "local"
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Default configuration values.
const (
	DefaultTransport    = TransportLocal
	DefaultOutput       = "auto" // TTY=table, non-TTY=json
	DefaultLogLevel     = "warn"
	DefaultStateFile    = ".dbscope/state.db"
	DefaultQueryTimeout = 60 * time.Second
	DefaultHTTPAddr     = "127.0.0.1:8765"
)

// Transports lists the accepted --transport values.
func Transports() []string {
	return []string{TransportLocal, TransportStdio, TransportHTTP}
}

// Default returns the configuration used when nothing is loaded.
func Default() *Config {
	return &Config{
		Transport:    DefaultTransport,
		OutputFormat: DefaultOutput,
		LogLevel:     slog.LevelWarn,
		StatePath:    DefaultStateFile,
		Backend:      BackendConfig{QueryTimeout: DefaultQueryTimeout},
		HTTP:         HTTPConfig{Addr: DefaultHTTPAddr},
	}
}
