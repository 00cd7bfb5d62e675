package invoke

import (
	"context"
	"encoding/json"
)

// Invoker sends a named command to a backend.
//
// args must be JSON-encodable; nil sends no arguments. result must be a
// pointer the response is decoded into, or nil to discard it. Failures are
// reported as *Error.
type Invoker interface {
	Invoke(ctx context.Context, command string, args any, result any) error
}

// InvokerFunc adapts a function to the Invoker interface.
type InvokerFunc func(ctx context.Context, command string, args any, result any) error

// Invoke calls f.
func (f InvokerFunc) Invoke(ctx context.Context, command string, args any, result any) error {
	return f(ctx, command, args, result)
}

// EncodeArgs marshals an argument bag. nil encodes to no payload.
func EncodeArgs(command string, args any) (json.RawMessage, error) {
	if args == nil {
		return nil, nil
	}
	if raw, ok := args.(json.RawMessage); ok {
		return raw, nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return nil, Errorf(command, CodeSerialization, "failed to encode arguments for %s: %v", command, err)
	}
	return data, nil
}

// DecodeResult unmarshals a raw result into result. A nil result discards it.
func DecodeResult(command string, raw json.RawMessage, result any) error {
	if result == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, result); err != nil {
		return Errorf(command, CodeSerialization, "failed to decode result of %s: %v", command, err)
	}
	return nil
}
