package rpc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/leapstack-labs/dbscope/internal/invoke"
)

// Server answers JSON-RPC requests by dispatching them to a Router.
// Requests are handled concurrently; responses may be written out of order.
type Server struct {
	router *invoke.Router
	reader *bufio.Reader
	writer io.Writer
	logger *slog.Logger

	writeMu sync.Mutex
	wg      sync.WaitGroup
}

// NewServer creates a Server reading requests from r and writing responses to w.
// If logger is nil, a discard logger is used.
func NewServer(router *invoke.Router, r io.Reader, w io.Writer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		router: router,
		reader: bufio.NewReader(r),
		writer: w,
		logger: logger,
	}
}

type readResult struct {
	msg *Message
	err error
}

// Serve processes requests until the input ends or ctx is canceled, then
// waits for in-flight requests. A clean end of input returns nil.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("rpc server starting", slog.Any("commands", s.router.Commands()))
	defer s.wg.Wait()

	msgs := make(chan readResult)
	go s.readLoop(ctx, msgs)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("rpc server stopping")
			return nil
		case r := <-msgs:
			if r.err != nil {
				var pe *ParseError
				if errors.As(r.err, &pe) {
					s.logger.Warn("malformed message", slog.String("error", pe.Error()))
					s.send(&Message{JSONRPC: "2.0", Error: &ResponseError{Code: CodeParseError, Message: pe.Error()}})
					continue
				}
				if errors.Is(r.err, io.EOF) {
					s.logger.Info("client disconnected")
					return nil
				}
				return fmt.Errorf("failed to read message: %w", r.err)
			}
			s.handle(ctx, r.msg)
		}
	}
}

// readLoop feeds framed messages to msgs. It stops after the first
// non-recoverable read error or when ctx is canceled.
func (s *Server) readLoop(ctx context.Context, msgs chan<- readResult) {
	for {
		msg, err := readMessage(s.reader, MaxRequestBytes)
		select {
		case msgs <- readResult{msg: msg, err: err}:
		case <-ctx.Done():
			return
		}
		var pe *ParseError
		if err != nil && !errors.As(err, &pe) {
			return
		}
	}
}

func (s *Server) handle(ctx context.Context, msg *Message) {
	if msg.Method == "" {
		if msg.ID != nil {
			s.send(&Message{JSONRPC: "2.0", ID: msg.ID, Error: &ResponseError{Code: CodeInvalidRequest, Message: "missing method"}})
		}
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		result, err := s.router.Dispatch(ctx, msg.Method, msg.Params)
		if msg.ID == nil {
			// notification
			if err != nil {
				s.logger.Debug("notification failed", slog.String("method", msg.Method), slog.String("error", err.Error()))
			}
			return
		}

		if err != nil {
			s.send(&Message{JSONRPC: "2.0", ID: msg.ID, Error: toResponseError(msg.Method, err)})
			return
		}
		s.send(&Message{JSONRPC: "2.0", ID: msg.ID, Result: result})
	}()
}

func (s *Server) send(msg *Message) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := writeMessage(s.writer, msg); err != nil {
		s.logger.Error("failed to write response", slog.String("error", err.Error()))
	}
}
