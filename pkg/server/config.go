package server

import (
	"log/slog"
	"time"

	"github.com/blade-go/blade/internal/config"
)

// ServerConfig holds HTTP serving configuration.
type ServerConfig struct {
	// Address is the listen address.
	// Default: ":9000".
	Address string

	// ShutdownTimeout bounds how long in-flight requests may drain.
	// Default: 10 seconds.
	ShutdownTimeout time.Duration

	// ReadHeaderTimeout is the maximum duration for reading request headers.
	// Default: 5 seconds.
	ReadHeaderTimeout time.Duration

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 60 seconds.
	IdleTimeout time.Duration

	// MetricsPath is where Prometheus metrics are served. Empty disables
	// the endpoint; metrics are still recorded.
	// Default: "/metrics".
	MetricsPath string

	// Metrics configures the Prometheus collectors.
	Metrics []MetricsOption

	// Tracing configures OpenTelemetry spans.
	Tracing []TracingOption

	// Logger is the structured logger. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// DefaultServerConfig returns a ServerConfig with sensible defaults.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Address:           config.DefaultAddress,
		ShutdownTimeout:   10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		MetricsPath:       config.DefaultMetricsPath,
	}
}

// FromConfig builds a ServerConfig from the server section of a
// configuration file.
func FromConfig(c *config.Config) *ServerConfig {
	sc := DefaultServerConfig()
	if c.Server.Address != "" {
		sc.Address = c.Server.Address
	}
	sc.ShutdownTimeout = c.ShutdownTimeout()
	switch {
	case !c.MetricsEnabled():
		sc.MetricsPath = ""
	case c.Server.MetricsPath != "":
		sc.MetricsPath = c.Server.MetricsPath
	}
	return sc
}

func (c *ServerConfig) withDefaults() *ServerConfig {
	defaults := DefaultServerConfig()
	if c == nil {
		return defaults
	}
	out := *c
	if out.Address == "" {
		out.Address = defaults.Address
	}
	if out.ShutdownTimeout == 0 {
		out.ShutdownTimeout = defaults.ShutdownTimeout
	}
	if out.ReadHeaderTimeout == 0 {
		out.ReadHeaderTimeout = defaults.ReadHeaderTimeout
	}
	if out.IdleTimeout == 0 {
		out.IdleTimeout = defaults.IdleTimeout
	}
	return &out
}
