// Package backend owns database connections and serves the dbscope commands.
//
// A Manager keeps one adapter per connected path. Register binds the
// Manager's operations to an invoke.Router under the command names the
// client uses.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/dbscope/internal/schemadiff"
	"github.com/leapstack-labs/dbscope/internal/state"
	"github.com/leapstack-labs/dbscope/pkg/adapter"
	"github.com/leapstack-labs/dbscope/pkg/core"
)

// ErrNotConnected is returned for operations on a path that was never connected.
var ErrNotConnected = errors.New("database not connected")

// Store is the subset of the state store the backend uses.
type Store interface {
	Alias(ctx context.Context, path string) (string, error)
	RecordConnection(ctx context.Context, c state.Connection) (*state.Connection, error)
}

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	// Store records connections and supplies aliases. Optional.
	Store Store
	// AdapterParams holds per-adapter params keyed by adapter name.
	AdapterParams map[string]map[string]any
}

// Manager holds open database connections keyed by the path they were
// opened with. It is safe for concurrent use.
type Manager struct {
	mu     sync.Mutex
	conns  map[string]*conn
	cfg    ManagerConfig
	logger *slog.Logger
}

// conn is a connection with the number of operations using it. A retired
// conn was replaced or disconnected and closes when its last user is done.
type conn struct {
	adapter.Adapter
	path    string
	refs    int
	retired bool
}

// NewManager creates a Manager.
// If logger is nil, a discard logger is used.
func NewManager(cfg ManagerConfig, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		conns:  make(map[string]*conn),
		cfg:    cfg,
		logger: logger,
	}
}

// Connect opens the database at path and keeps the connection for later
// calls. Connecting a path again replaces the previous connection.
func (m *Manager) Connect(ctx context.Context, path, password string) (*core.DatabaseInfo, error) {
	name := adapter.Detect(path)
	m.logger.Info("attempting to connect to database",
		slog.String("name", adapter.DisplayName(path)),
		slog.String("adapter", name))

	adp, err := adapter.NewAdapter(name, m.logger.With(slog.String("adapter", name)))
	if err != nil {
		return nil, err
	}

	cfg := adapter.Config{Path: path, Password: password, Params: m.cfg.AdapterParams[name]}
	if err := adp.Connect(ctx, cfg); err != nil {
		return nil, err
	}

	tables, err := adp.ListTables(ctx)
	if err != nil {
		_ = adp.Close()
		return nil, err
	}

	m.mu.Lock()
	old := m.conns[path]
	m.conns[path] = &conn{Adapter: adp, path: path}
	closeOld := old != nil && m.retire(old)
	m.mu.Unlock()
	if closeOld {
		m.closeConn(old)
	}

	info := &core.DatabaseInfo{
		Path:        path,
		Name:        adapter.DisplayName(path),
		TableCount:  len(tables),
		IsConnected: true,
		IsEncrypted: adp.IsEncrypted(),
		Adapter:     name,
	}
	m.remember(ctx, info)
	return info, nil
}

// remember attaches the stored alias and records the connection.
// Store failures never fail a connect.
func (m *Manager) remember(ctx context.Context, info *core.DatabaseInfo) {
	if m.cfg.Store == nil {
		return
	}

	alias, err := m.cfg.Store.Alias(ctx, info.Path)
	if err != nil {
		m.logger.Warn("failed to look up alias", slog.String("error", err.Error()))
	} else if alias != "" {
		info.Alias = core.StrPtr(alias)
	}

	_, err = m.cfg.Store.RecordConnection(ctx, state.Connection{
		Path:       info.Path,
		Adapter:    info.Adapter,
		TableCount: info.TableCount,
	})
	if err != nil {
		m.logger.Warn("failed to record connection", slog.String("error", err.Error()))
	}
}

// acquire returns the connection for path. The caller must release it;
// a reconnect or disconnect in the meantime defers the close until then.
func (m *Manager) acquire(path string) (*conn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conns[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotConnected, path)
	}
	c.refs++
	return c, nil
}

func (m *Manager) release(c *conn) {
	m.mu.Lock()
	c.refs--
	closeNow := c.retired && c.refs == 0
	m.mu.Unlock()
	if closeNow {
		m.closeConn(c)
	}
}

// retire marks c as no longer reachable and reports whether it can be
// closed right away. m.mu must be held.
func (m *Manager) retire(c *conn) bool {
	c.retired = true
	return c.refs == 0
}

func (m *Manager) closeConn(c *conn) {
	if err := c.Close(); err != nil {
		m.logger.Warn("failed to close connection",
			slog.String("name", adapter.DisplayName(c.path)), slog.String("error", err.Error()))
	}
}

// Tables lists the user tables of a connected database with row counts and
// columns. A table whose rows cannot be counted reports 0 rows.
func (m *Manager) Tables(ctx context.Context, path string) ([]core.TableInfo, error) {
	adp, err := m.acquire(path)
	if err != nil {
		return nil, err
	}
	defer m.release(adp)

	names, err := adp.ListTables(ctx)
	if err != nil {
		return nil, err
	}

	tables := make([]core.TableInfo, 0, len(names))
	for _, name := range names {
		count, err := adp.CountRows(ctx, name)
		if err != nil {
			m.logger.Debug("row count failed", slog.String("table", name), slog.String("error", err.Error()))
			count = 0
		}

		columns, err := adp.Columns(ctx, name)
		if err != nil {
			return nil, err
		}

		tables = append(tables, core.TableInfo{Name: name, RowCount: count, Columns: columns})
	}
	return tables, nil
}

// TableData reads up to limit rows of table, all rows when limit <= 0.
// TotalCount is the table's full row count.
func (m *Manager) TableData(ctx context.Context, path, table string, limit int) (*core.TableData, error) {
	adp, err := m.acquire(path)
	if err != nil {
		return nil, err
	}
	defer m.release(adp)

	columns, err := adp.Columns(ctx, table)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}

	total, err := adp.CountRows(ctx, table)
	if err != nil {
		return nil, err
	}

	rows, err := adp.SelectRows(ctx, table, names, limit)
	if err != nil {
		return nil, err
	}

	return &core.TableData{Columns: names, Rows: rows, TotalCount: total}, nil
}

// CompareSchemas diffs the schemas of two connected databases.
func (m *Manager) CompareSchemas(ctx context.Context, db1, db2 string) (*core.SchemaComparison, error) {
	var left, right []core.TableInfo

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		left, err = m.Tables(gctx, db1)
		return err
	})
	g.Go(func() error {
		var err error
		right, err = m.Tables(gctx, db2)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return schemadiff.Compare(db1, db2, left, right), nil
}

// Connected returns the connected paths (sorted).
func (m *Manager) Connected() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	paths := make([]string, 0, len(m.conns))
	for p := range m.conns {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Disconnect closes the connection for path once no operation uses it.
func (m *Manager) Disconnect(path string) error {
	m.mu.Lock()
	c, ok := m.conns[path]
	delete(m.conns, path)
	closeNow := ok && m.retire(c)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNotConnected, path)
	}
	if closeNow {
		return c.Close()
	}
	return nil
}

// Close closes every connection. Connections still in use close when
// their operations finish.
func (m *Manager) Close() error {
	m.mu.Lock()
	var idle []*conn
	for _, c := range m.conns {
		if m.retire(c) {
			idle = append(idle, c)
		}
	}
	m.conns = make(map[string]*conn)
	m.mu.Unlock()

	var errs []error
	for _, c := range idle {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close %s: %w", adapter.DisplayName(c.path), err))
		}
	}
	return errors.Join(errs...)
}
