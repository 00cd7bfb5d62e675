// Package invoketest provides a recording Invoker for tests.
package invoketest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/leapstack-labs/dbscope/internal/invoke"
)

// Call is one recorded invocation.
type Call struct {
	Command string
	// Args is the JSON encoding of the argument bag, nil when none was sent.
	Args json.RawMessage
}

// Recorder is an Invoker that records calls and answers with canned
// responses. It is safe for concurrent use.
type Recorder struct {
	mu        sync.Mutex
	calls     []Call
	responses map[string]json.RawMessage
	errs      map[string]error
	err       error
}

// NewRecorder creates a Recorder with no canned responses.
func NewRecorder() *Recorder {
	return &Recorder{
		responses: make(map[string]json.RawMessage),
		errs:      make(map[string]error),
	}
}

// Respond sets the JSON result returned for command.
func (r *Recorder) Respond(command, resultJSON string) *Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses[command] = json.RawMessage(resultJSON)
	return r
}

// Fail makes command return err.
func (r *Recorder) Fail(command string, err error) *Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs[command] = err
	return r
}

// FailAll makes every command return err.
func (r *Recorder) FailAll(err error) *Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
	return r
}

// Calls returns a copy of the recorded calls in order.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// LastCall returns the most recent call.
func (r *Recorder) LastCall() (Call, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) == 0 {
		return Call{}, false
	}
	return r.calls[len(r.calls)-1], true
}

// Invoke implements invoke.Invoker.
func (r *Recorder) Invoke(_ context.Context, command string, args any, result any) error {
	raw, err := invoke.EncodeArgs(command, args)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.calls = append(r.calls, Call{Command: command, Args: raw})
	callErr := r.err
	if e, ok := r.errs[command]; ok {
		callErr = e
	}
	resp, ok := r.responses[command]
	r.mu.Unlock()

	if callErr != nil {
		return callErr
	}
	if !ok {
		return fmt.Errorf("no response configured for %s", command)
	}
	return invoke.DecodeResult(command, resp, result)
}
