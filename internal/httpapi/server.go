// Package httpapi exposes an invoke.Router over HTTP and provides the
// matching invoke.Invoker client.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/dbscope/internal/invoke"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = "127.0.0.1:8765"

const maxBodyBytes = 10 << 20

// Envelope is the body of every /invoke response.
type Envelope struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  *invoke.Error   `json:"error,omitempty"`
}

// Server serves invoke commands over HTTP.
type Server struct {
	router *invoke.Router
	addr   string
	logger *slog.Logger
}

// NewServer creates a Server listening on addr (DefaultAddr when empty).
// If logger is nil, a discard logger is used.
func NewServer(router *invoke.Router, addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if addr == "" {
		addr = DefaultAddr
	}
	return &Server{router: router, addr: addr, logger: logger}
}

// Handler returns the HTTP handler with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		s.logRequests,
		middleware.Recoverer,
	)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, "ok")
	})
	r.Get("/commands", s.handleCommands)
	r.Post("/invoke/{command}", s.handleInvoke)
	return r
}

// Serve listens and serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.logger.Info("starting HTTP backend", slog.String("addr", "http://"+ln.Addr().String()))

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down HTTP backend")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	command := chi.URLParam(r, "command")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeEnvelope(w, http.StatusBadRequest, Envelope{
			Error: invoke.Errorf(command, invoke.CodeBadArgs, "failed to read request body: %v", err),
		})
		return
	}

	result, err := s.router.Dispatch(r.Context(), command, body)
	if err != nil {
		ie, ok := invoke.AsError(err)
		if !ok {
			ie = &invoke.Error{Command: command, Code: invoke.CodeBackend, Message: err.Error()}
		}
		writeEnvelope(w, statusFor(ie.Code), Envelope{Error: ie})
		return
	}

	writeEnvelope(w, http.StatusOK, Envelope{Result: result})
}

func (s *Server) handleCommands(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.router.Commands())
}

// logRequests logs one line per request after it completes.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		s.logger.Info("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Int("bytes", ww.BytesWritten()),
			slog.Duration("elapsed", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func statusFor(code invoke.Code) int {
	switch code {
	case invoke.CodeNotFound:
		return http.StatusNotFound
	case invoke.CodeBadArgs:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeEnvelope(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}
