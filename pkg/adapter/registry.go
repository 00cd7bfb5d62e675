package adapter

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
)

// Factory creates an unconnected adapter that logs to the given logger.
type Factory func(*slog.Logger) Adapter

// factories maps adapter names to constructors. Adapter packages fill it
// from init(); the backend links them all in.
var factories = struct {
	sync.RWMutex
	m map[string]Factory
}{m: make(map[string]Factory)}

// Register makes an adapter available under name. A later registration
// for the same name replaces the earlier one.
func Register(name string, factory Factory) {
	factories.Lock()
	defer factories.Unlock()
	factories.m[name] = factory
}

// Get returns the factory registered under name.
func Get(name string) (Factory, bool) {
	factories.RLock()
	defer factories.RUnlock()
	f, ok := factories.m[name]
	return f, ok
}

// IsRegistered reports whether an adapter named name was linked in.
func IsRegistered(name string) bool {
	_, ok := Get(name)
	return ok
}

// ListAdapters returns the registered adapter names in sorted order.
func ListAdapters() []string {
	factories.RLock()
	defer factories.RUnlock()
	return slices.Sorted(maps.Keys(factories.m))
}

// NewAdapter builds an unconnected adapter of the named type.
// A nil logger is replaced by a discard logger.
func NewAdapter(name string, logger *slog.Logger) (Adapter, error) {
	if name == "" {
		return nil, errors.New("adapter type not specified")
	}

	factory, ok := Get(name)
	if !ok {
		return nil, &UnknownAdapterError{Type: name, Available: ListAdapters()}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return factory(logger), nil
}

// UnknownAdapterError reports a database whose detected type has no
// registered adapter.
type UnknownAdapterError struct {
	Type      string
	Available []string
}

func (e *UnknownAdapterError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("no adapter for %q databases (none registered)", e.Type)
	}
	return fmt.Sprintf("no adapter for %q databases (available: %s)", e.Type, strings.Join(e.Available, ", "))
}
