package invoke

import (
	"errors"
	"fmt"
)

// Code classifies an invocation failure.
type Code string

// Failure codes.
const (
	// CodeBackend means the command handler returned an error.
	CodeBackend Code = "backend"
	// CodeNotFound means no handler is registered for the command.
	CodeNotFound Code = "not_found"
	// CodeBadArgs means the argument bag could not be decoded.
	CodeBadArgs Code = "bad_args"
	// CodeSerialization means a result could not be encoded or decoded.
	CodeSerialization Code = "serialization"
	// CodeTransport means the call could not be delivered or answered.
	CodeTransport Code = "transport"
)

// Error is an invocation failure.
// Its message is exactly the text reported by the side that failed.
type Error struct {
	Command string `json:"command,omitempty"`
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

// Errorf builds an Error for command with a formatted message.
func Errorf(command string, code Code, format string, args ...any) *Error {
	return &Error{Command: command, Code: code, Message: fmt.Sprintf(format, args...)}
}

// AsError extracts an *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var ie *Error
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}

// IsCode reports whether err is an *Error with the given code.
func IsCode(err error, code Code) bool {
	ie, ok := AsError(err)
	return ok && ie.Code == code
}
