// Package state persists dbscope's local state: database aliases and the
// history of successful connections.
package state

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// ErrAliasNotFound is returned when no alias matches.
var ErrAliasNotFound = errors.New("alias not found")

// Alias is a user-assigned short name for a database path.
type Alias struct {
	Path      string    `json:"path" yaml:"path"`
	Alias     string    `json:"alias" yaml:"alias"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// Connection is one successful connect recorded by the backend.
type Connection struct {
	ID          string    `json:"id" yaml:"id"`
	Path        string    `json:"path" yaml:"path"`
	Adapter     string    `json:"adapter" yaml:"adapter"`
	TableCount  int       `json:"table_count" yaml:"table_count"`
	ConnectedAt time.Time `json:"connected_at" yaml:"connected_at"`
}

// Store is the SQLite-backed state store.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewStore creates a new state store instance.
// If logger is nil, a discard logger is used.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{logger: logger}
}

// Open opens the state database at path, creating it if needed.
// Use ":memory:" for an in-memory database.
func (s *Store) Open(path string) error {
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
	if path != ":memory:" {
		dsn += "&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open state database: %w", err)
	}
	if path == ":memory:" {
		// each connection would get its own empty database
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping state database: %w", err)
	}

	s.logger.Debug("opened state database", slog.String("path", path))
	s.db = db
	s.path = path
	return nil
}

// Close closes the state database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the path the store was opened with.
func (s *Store) Path() string {
	return s.path
}

// generateID creates a new UUID.
func generateID() string {
	return uuid.New().String()
}

func (s *Store) ensureOpen() error {
	if s.db == nil {
		return fmt.Errorf("state database not opened")
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
