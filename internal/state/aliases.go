package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// SetAlias assigns alias to path, replacing any previous alias of path.
// Aliases are unique across paths.
func (s *Store) SetAlias(ctx context.Context, path, alias string) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	if alias == "" {
		return fmt.Errorf("alias must not be empty")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO aliases (path, alias, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET alias = excluded.alias, updated_at = excluded.updated_at
	`, path, alias, time.Now().UTC())
	if isUniqueViolation(err) {
		return fmt.Errorf("alias %q is already used by another database", alias)
	}
	if err != nil {
		return fmt.Errorf("failed to set alias: %w", err)
	}

	s.logger.Debug("alias set", slog.String("path", path), slog.String("alias", alias))
	return nil
}

// Alias returns the alias of path, or "" when it has none.
func (s *Store) Alias(ctx context.Context, path string) (string, error) {
	if err := s.ensureOpen(); err != nil {
		return "", err
	}

	var alias string
	err := s.db.QueryRowContext(ctx, "SELECT alias FROM aliases WHERE path = ?", path).Scan(&alias)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get alias: %w", err)
	}
	return alias, nil
}

// ResolveAlias returns the path registered under alias.
func (s *Store) ResolveAlias(ctx context.Context, alias string) (string, error) {
	if err := s.ensureOpen(); err != nil {
		return "", err
	}

	var path string
	err := s.db.QueryRowContext(ctx, "SELECT path FROM aliases WHERE alias = ?", alias).Scan(&path)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrAliasNotFound, alias)
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve alias: %w", err)
	}
	return path, nil
}

// DeleteAlias removes the alias of path.
func (s *Store) DeleteAlias(ctx context.Context, path string) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, "DELETE FROM aliases WHERE path = ?", path)
	if err != nil {
		return fmt.Errorf("failed to delete alias: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete alias: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrAliasNotFound, path)
	}
	return nil
}

// ListAliases returns all aliases ordered by alias.
func (s *Store) ListAliases(ctx context.Context) ([]Alias, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, "SELECT path, alias, updated_at FROM aliases ORDER BY alias")
	if err != nil {
		return nil, fmt.Errorf("failed to list aliases: %w", err)
	}
	defer func() { _ = rows.Close() }()

	aliases := make([]Alias, 0)
	for rows.Next() {
		var a Alias
		if err := rows.Scan(&a.Path, &a.Alias, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan alias: %w", err)
		}
		aliases = append(aliases, a)
	}
	return aliases, rows.Err()
}
