package state

import (
	"context"
	"fmt"
	"time"
)

// RecordConnection stores a successful connection. ID and ConnectedAt are
// filled in when empty.
func (s *Store) RecordConnection(ctx context.Context, c Connection) (*Connection, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}

	if c.ID == "" {
		c.ID = generateID()
	}
	if c.ConnectedAt.IsZero() {
		c.ConnectedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO connections (id, path, adapter, table_count, connected_at)
		VALUES (?, ?, ?, ?, ?)
	`, c.ID, c.Path, c.Adapter, c.TableCount, c.ConnectedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to record connection: %w", err)
	}
	return &c, nil
}

// RecentConnections returns the latest connections, newest first.
// limit <= 0 returns all of them.
func (s *Store) RecentConnections(ctx context.Context, limit int) ([]Connection, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}

	query := "SELECT id, path, adapter, table_count, connected_at FROM connections ORDER BY connected_at DESC, rowid DESC"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	conns := make([]Connection, 0)
	for rows.Next() {
		var c Connection
		if err := rows.Scan(&c.ID, &c.Path, &c.Adapter, &c.TableCount, &c.ConnectedAt); err != nil {
			return nil, fmt.Errorf("failed to scan connection: %w", err)
		}
		conns = append(conns, c)
	}
	return conns, rows.Err()
}
