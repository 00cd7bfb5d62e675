// Package rpc carries invoke commands over a JSON-RPC 2.0 byte stream with
// Content-Length framing, the same framing language servers use.
//
// The backend runs a Server on its stdin/stdout; a Client on the other end
// implements invoke.Invoker.
package rpc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/leapstack-labs/dbscope/internal/invoke"
)

// JSON-RPC error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeServerError    = -32000
)

// Body size limits for framed messages. Requests carry small argument
// bags; responses may carry a page of table rows.
const (
	MaxRequestBytes  = 10 << 20
	MaxResponseBytes = 512 << 20
)

// Message is a JSON-RPC 2.0 request, response or notification.
type Message struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      *json.RawMessage `json:"id,omitempty"`
	Method  string           `json:"method,omitempty"`
	Params  json.RawMessage  `json:"params,omitempty"`
	Result  json.RawMessage  `json:"result,omitempty"`
	Error   *ResponseError   `json:"error,omitempty"`
}

// ResponseError is the error member of a response.
type ResponseError struct {
	Code    int        `json:"code"`
	Message string     `json:"message"`
	Data    *ErrorData `json:"data,omitempty"`
}

// ErrorData carries the invoke failure details.
type ErrorData struct {
	Command string      `json:"command,omitempty"`
	Kind    invoke.Code `json:"kind"`
}

// ParseError reports a frame whose body is not valid JSON.
// The stream stays in sync after a ParseError.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid message body: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// readMessage reads one framed message whose body is at most limit bytes.
func readMessage(r *bufio.Reader, limit int) (*Message, error) {
	var contentLength int
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			break
		}

		if strings.HasPrefix(line, "Content-Length: ") {
			contentLength, err = strconv.Atoi(strings.TrimPrefix(line, "Content-Length: "))
			if err != nil {
				return nil, fmt.Errorf("invalid Content-Length: %w", err)
			}
		}
	}

	if contentLength <= 0 {
		return nil, fmt.Errorf("missing Content-Length header")
	}
	if contentLength > limit {
		return nil, fmt.Errorf("message of %d bytes exceeds the %d byte limit", contentLength, limit)
	}

	body := make([]byte, contentLength)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("error reading body: %w", err)
	}

	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, &ParseError{Err: err}
	}
	return &msg, nil
}

// writeMessage writes one framed message in a single Write call.
func writeMessage(w io.Writer, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	frame := make([]byte, 0, len(body)+32)
	frame = fmt.Appendf(frame, "Content-Length: %d\r\n\r\n", len(body))
	frame = append(frame, body...)
	_, err = w.Write(frame)
	return err
}

// toResponseError maps an invoke failure onto a JSON-RPC error.
func toResponseError(command string, err error) *ResponseError {
	ie, ok := invoke.AsError(err)
	if !ok {
		ie = &invoke.Error{Command: command, Code: invoke.CodeBackend, Message: err.Error()}
	}

	code := CodeServerError
	switch ie.Code {
	case invoke.CodeNotFound:
		code = CodeMethodNotFound
	case invoke.CodeBadArgs:
		code = CodeInvalidParams
	}
	return &ResponseError{
		Code:    code,
		Message: ie.Message,
		Data:    &ErrorData{Command: ie.Command, Kind: ie.Code},
	}
}

// fromResponseError rebuilds the invoke failure carried by a response.
func fromResponseError(command string, re *ResponseError) *invoke.Error {
	out := &invoke.Error{Command: command, Message: re.Message}
	if re.Data != nil && re.Data.Kind != "" {
		out.Code = re.Data.Kind
		if re.Data.Command != "" {
			out.Command = re.Data.Command
		}
		return out
	}

	switch re.Code {
	case CodeMethodNotFound:
		out.Code = invoke.CodeNotFound
	case CodeInvalidParams:
		out.Code = invoke.CodeBadArgs
	default:
		out.Code = invoke.CodeBackend
	}
	return out
}
