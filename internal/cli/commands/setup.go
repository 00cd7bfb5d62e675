// Package commands implements the dbscope subcommands.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/dbscope/internal/backend"
	"github.com/leapstack-labs/dbscope/internal/cli/config"
	"github.com/leapstack-labs/dbscope/internal/cli/output"
	"github.com/leapstack-labs/dbscope/internal/client"
	"github.com/leapstack-labs/dbscope/internal/httpapi"
	"github.com/leapstack-labs/dbscope/internal/invoke"
	"github.com/leapstack-labs/dbscope/internal/rpc"
	"github.com/leapstack-labs/dbscope/internal/state"
	"github.com/leapstack-labs/dbscope/pkg/adapter"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Client   *client.Client
	Renderer *output.Renderer

	// Store is nil when the state database could not be opened;
	// StoreErr then says why.
	Store    *state.Store
	StoreErr error
}

// NewCommandContext creates a CommandContext with a client on the
// configured transport. The returned cleanup function must be called
// (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cc := NewCommandContextWithoutClient(cmd)

	invoker, closeInvoker, err := newInvoker(cmd.Context(), cc.Cfg, cc.Logger, cc.Store)
	if err != nil {
		cc.CloseStore()
		return nil, nil, err
	}
	cc.Client = client.New(invoker, cc.Logger)

	cleanup := func() {
		closeInvoker()
		cc.CloseStore()
	}
	return cc, cleanup, nil
}

// NewCommandContextWithoutClient creates a CommandContext with the state
// store but no backend client. Callers must call CloseStore.
func NewCommandContextWithoutClient(cmd *cobra.Command) *CommandContext {
	cfg := config.GetConfig(cmd.Context())
	logger := config.GetLogger(cmd.Context())

	cc := &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
	}

	store, err := openStore(cfg.StatePath, logger)
	if err != nil {
		logger.Warn("state store unavailable", slog.String("path", cfg.StatePath), slog.String("error", err.Error()))
		cc.StoreErr = err
	} else {
		cc.Store = store
	}
	return cc
}

// CloseStore closes the state store if it is open.
func (cc *CommandContext) CloseStore() {
	if cc.Store != nil {
		_ = cc.Store.Close()
	}
}

// RequireStore returns the state store or the reason it is unavailable.
func (cc *CommandContext) RequireStore() (*state.Store, error) {
	if cc.Store == nil {
		return nil, fmt.Errorf("state store unavailable: %w", cc.StoreErr)
	}
	return cc.Store, nil
}

// ResolvePath expands an "@alias" argument into its database path.
// Other arguments are returned unchanged.
func (cc *CommandContext) ResolvePath(ctx context.Context, arg string) (string, error) {
	alias, ok := strings.CutPrefix(arg, "@")
	if !ok {
		return arg, nil
	}

	store, err := cc.RequireStore()
	if err != nil {
		return "", fmt.Errorf("cannot resolve %s: %w", arg, err)
	}
	path, err := store.ResolveAlias(ctx, alias)
	if errors.Is(err, state.ErrAliasNotFound) {
		return "", fmt.Errorf("unknown alias %q\nHint: list aliases with 'dbscope alias ls'", alias)
	}
	return path, err
}

// absDBPath makes a database file path absolute so an alias resolves the
// same from any directory. URLs and SQLite URIs are returned unchanged.
func absDBPath(path string) (string, error) {
	if adapter.IsURL(path) || strings.HasPrefix(path, "file:") {
		return path, nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	return abs, nil
}

// openStore opens and migrates the state database, creating its directory.
func openStore(path string, logger *slog.Logger) (*state.Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" && path != ":memory:" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	store := state.NewStore(logger)
	if err := store.Open(path); err != nil {
		return nil, err
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// NewBackend wires a Manager and its commands onto a fresh Router.
// store may be nil.
func NewBackend(cfg *config.Config, logger *slog.Logger, store *state.Store) (*invoke.Router, *backend.Manager) {
	mcfg := backend.ManagerConfig{AdapterParams: cfg.Adapters}
	if store != nil {
		mcfg.Store = store
	}
	manager := backend.NewManager(mcfg, logger)

	router := invoke.NewRouter(logger)
	backend.Register(router, manager, backend.Options{QueryTimeout: cfg.Backend.QueryTimeout}, logger)
	return router, manager
}

// newInvoker builds the Invoker for the configured transport.
func newInvoker(ctx context.Context, cfg *config.Config, logger *slog.Logger, store *state.Store) (invoke.Invoker, func(), error) {
	switch cfg.Transport {
	case config.TransportStdio:
		exe := cfg.Backend.Executable
		if exe == "" {
			self, err := os.Executable()
			if err != nil {
				return nil, nil, fmt.Errorf("failed to locate dbscope executable: %w", err)
			}
			exe = self
		}
		proc, err := rpc.Spawn(ctx, logger, exe, backendArgs(cfg)...)
		if err != nil {
			return nil, nil, err
		}
		return proc, func() { _ = proc.Close() }, nil

	case config.TransportHTTP:
		return httpapi.NewClient(cfg.Remote, nil), func() {}, nil

	default:
		router, manager := NewBackend(cfg, logger, store)
		return invoke.NewLocal(router), func() { _ = manager.Close() }, nil
	}
}

// backendArgs are the arguments for a spawned `dbscope backend`.
func backendArgs(cfg *config.Config) []string {
	args := []string{"backend", "--log-level", cfg.LogLevel.String(), "--state", cfg.StatePath}
	if cfg.ConfigFile != "" {
		args = append(args, "--config", cfg.ConfigFile)
	}
	return args
}
