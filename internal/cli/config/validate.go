package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/leapstack-labs/dbscope/internal/cli/output"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if !slices.Contains(Transports(), c.Transport) {
		return fmt.Errorf("invalid transport %q (expected one of: %s)", c.Transport, strings.Join(Transports(), ", "))
	}

	if c.Transport == TransportHTTP {
		if c.Remote == "" {
			return fmt.Errorf("remote is required for the http transport\nHint: pass --remote http://host:port or set DBSCOPE_REMOTE")
		}
		u, err := url.Parse(c.Remote)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid remote URL %q: expected http(s)://host[:port]", c.Remote)
		}
	}

	if !output.Mode(c.OutputFormat).Valid() {
		return fmt.Errorf("invalid output format %q (expected one of: %s)", c.OutputFormat, strings.Join(output.Modes(), ", "))
	}

	if c.Backend.QueryTimeout <= 0 {
		return fmt.Errorf("backend.query_timeout must be positive, got %s", c.Backend.QueryTimeout)
	}

	if c.StatePath == "" {
		return fmt.Errorf("state_path is required")
	}
	return nil
}
