package invoke

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// HandlerFunc handles one command. It receives the raw argument bag (nil
// when the caller sent none) and returns a JSON-encodable result.
type HandlerFunc func(ctx context.Context, args json.RawMessage) (any, error)

// Command adapts a typed handler into a HandlerFunc.
// Missing or null arguments decode into the zero A.
func Command[A, R any](fn func(ctx context.Context, args A) (R, error)) HandlerFunc {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var args A
		if len(bytes.TrimSpace(raw)) > 0 {
			if err := json.Unmarshal(raw, &args); err != nil {
				return nil, &Error{Code: CodeBadArgs, Message: fmt.Sprintf("invalid arguments: %v", err)}
			}
		}
		return fn(ctx, args)
	}
}

// Router maps command names to handlers.
type Router struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	logger   *slog.Logger
}

// NewRouter creates an empty router.
// If logger is nil, a discard logger is used.
func NewRouter(logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Router{
		handlers: make(map[string]HandlerFunc),
		logger:   logger,
	}
}

// Handle registers fn under name, replacing any previous handler.
func (r *Router) Handle(name string, fn HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = fn
}

// Commands returns the registered command names (sorted).
func (r *Router) Commands() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch runs the handler registered for name and returns its
// JSON-encoded result. Every error returned is an *Error.
func (r *Router) Dispatch(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, error) {
	r.mu.RLock()
	fn, ok := r.handlers[name]
	r.mu.RUnlock()
	if !ok {
		return nil, Errorf(name, CodeNotFound, "command %s not found", name)
	}

	r.logger.Debug("dispatching command", slog.String("command", name))

	result, err := fn(ctx, args)
	if err != nil {
		if ie, ok := err.(*Error); ok {
			out := *ie
			if out.Command == "" {
				out.Command = name
			}
			return nil, &out
		}
		return nil, &Error{Command: name, Code: CodeBackend, Message: err.Error()}
	}

	data, err := json.Marshal(result)
	if err != nil {
		return nil, Errorf(name, CodeSerialization, "failed to encode result of %s: %v", name, err)
	}
	return data, nil
}
