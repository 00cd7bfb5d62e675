package adapter

import (
	"net/url"
	"path/filepath"
	"strings"
)

// Detect picks the adapter type for a database path or URL.
//
//	postgres://..., postgresql://...  -> postgres
//	mysql://...                       -> mysql
//	*.duckdb, *.ddb                   -> duckdb
//	anything else                     -> sqlite
func Detect(path string) string {
	lower := strings.ToLower(path)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return "postgres"
	case strings.HasPrefix(lower, "mysql://"):
		return "mysql"
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".duckdb", ".ddb":
		return "duckdb"
	}
	return "sqlite"
}

// IsURL reports whether path is a connection URL rather than a file.
func IsURL(path string) bool {
	return strings.Contains(path, "://")
}

// DisplayName returns a short, credential-free name for path: the base file
// name for files, the database name (or host) for URLs.
func DisplayName(path string) string {
	if !IsURL(path) {
		return filepath.Base(path)
	}

	u, err := url.Parse(path)
	if err != nil {
		return path
	}
	if name := strings.Trim(u.Path, "/"); name != "" {
		return name
	}
	return u.Host
}
