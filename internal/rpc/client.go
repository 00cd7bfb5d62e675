package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"strconv"
	"sync"

	"github.com/leapstack-labs/dbscope/internal/invoke"
)

var (
	errClientClosed     = errors.New("rpc client closed")
	errConnectionClosed = errors.New("backend connection closed")
)

// Client is an invoke.Invoker that talks to a Server over a byte stream.
// Concurrent calls share the stream and are matched to responses by ID.
type Client struct {
	reader *bufio.Reader
	writer io.Writer
	logger *slog.Logger

	writeMu sync.Mutex

	mu       sync.Mutex
	nextID   int64
	pending  map[int64]chan *Message
	closed   bool
	closeErr error
}

// NewClient creates a Client reading responses from r and writing requests
// to w, and starts its response reader. If w is an io.Closer, Close closes it.
// If logger is nil, a discard logger is used.
func NewClient(r io.Reader, w io.Writer, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &Client{
		reader:  bufio.NewReader(r),
		writer:  w,
		logger:  logger,
		pending: make(map[int64]chan *Message),
	}
	go c.readLoop()
	return c
}

// Invoke implements invoke.Invoker.
func (c *Client) Invoke(ctx context.Context, command string, args any, result any) error {
	params, err := invoke.EncodeArgs(command, args)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		cause := c.closeErr
		c.mu.Unlock()
		return invoke.Errorf(command, invoke.CodeTransport, "%v", cause)
	}
	c.nextID++
	id := c.nextID
	ch := make(chan *Message, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	rawID := json.RawMessage(strconv.FormatInt(id, 10))
	req := &Message{JSONRPC: "2.0", ID: &rawID, Method: command, Params: params}

	c.writeMu.Lock()
	err = writeMessage(c.writer, req)
	c.writeMu.Unlock()
	if err != nil {
		c.forget(id)
		return invoke.Errorf(command, invoke.CodeTransport, "failed to send request: %v", err)
	}

	select {
	case <-ctx.Done():
		c.forget(id)
		return invoke.Errorf(command, invoke.CodeTransport, "%v", ctx.Err())
	case resp, ok := <-ch:
		if !ok {
			c.mu.Lock()
			cause := c.closeErr
			c.mu.Unlock()
			return invoke.Errorf(command, invoke.CodeTransport, "%v", cause)
		}
		if resp.Error != nil {
			return fromResponseError(command, resp.Error)
		}
		return invoke.DecodeResult(command, resp.Result, result)
	}
}

// Close fails all pending calls and closes the request stream.
func (c *Client) Close() error {
	c.shutdown(errClientClosed)
	if closer, ok := c.writer.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (c *Client) forget(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, id)
}

// shutdown marks the client closed and releases every waiting caller.
func (c *Client) shutdown(cause error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.closeErr = cause
	pending := c.pending
	c.pending = make(map[int64]chan *Message)
	c.mu.Unlock()

	for _, ch := range pending {
		close(ch)
	}
}

func (c *Client) readLoop() {
	for {
		msg, err := readMessage(c.reader, MaxResponseBytes)
		if err != nil {
			var pe *ParseError
			if errors.As(err, &pe) {
				c.logger.Warn("malformed response", slog.String("error", pe.Error()))
				continue
			}
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) && !errors.Is(err, io.ErrClosedPipe) {
				c.logger.Error("failed to read response", slog.String("error", err.Error()))
			}
			c.shutdown(errConnectionClosed)
			return
		}

		if msg.ID == nil {
			c.logger.Debug("ignoring message without id", slog.String("method", msg.Method))
			continue
		}
		id, err := strconv.ParseInt(string(*msg.ID), 10, 64)
		if err != nil {
			c.logger.Warn("ignoring response with unexpected id", slog.String("id", string(*msg.ID)))
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[id]
		delete(c.pending, id)
		c.mu.Unlock()
		if ok {
			ch <- msg
		}
	}
}
