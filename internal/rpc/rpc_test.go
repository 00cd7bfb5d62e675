package rpc

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/dbscope/internal/invoke"
	"github.com/leapstack-labs/dbscope/internal/testutil"
)

type echoArgs struct {
	Text  string `json:"text"`
	Delay int    `json:"delay"`
}

func newTestRouter(t *testing.T) *invoke.Router {
	t.Helper()
	router := invoke.NewRouter(testutil.NewTestLogger(t))
	router.Handle("echo", invoke.Command(func(_ context.Context, a echoArgs) (string, error) {
		time.Sleep(time.Duration(a.Delay) * time.Millisecond)
		return a.Text, nil
	}))
	router.Handle("fail", invoke.Command(func(_ context.Context, _ struct{}) (string, error) {
		return "", errors.New("database error: boom")
	}))
	return router
}

// startPair connects a Client to a Server over in-memory pipes.
func startPair(t *testing.T, router *invoke.Router) *Client {
	t.Helper()
	logger := testutil.NewTestLogger(t)

	reqR, reqW := io.Pipe()
	respR, respW := io.Pipe()

	srv := NewServer(router, reqR, respW, logger)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(ctx)
		_ = respW.Close()
	}()

	c := NewClient(respR, reqW, logger)
	t.Cleanup(func() {
		_ = c.Close()
		cancel()
		require.NoError(t, <-done)
	})
	return c
}

func TestFraming_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	id := json.RawMessage(`7`)
	in := &Message{JSONRPC: "2.0", ID: &id, Method: "echo", Params: json.RawMessage(`{"text":"hi"}`)}
	require.NoError(t, writeMessage(&buf, in))
	assert.True(t, strings.HasPrefix(buf.String(), "Content-Length: "))

	out, err := readMessage(bufio.NewReader(&buf), MaxRequestBytes)
	require.NoError(t, err)
	assert.Equal(t, "echo", out.Method)
	assert.Equal(t, "7", string(*out.ID))
	assert.JSONEq(t, `{"text":"hi"}`, string(out.Params))
}

func TestFraming_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"missing length", "X-Other: 1\r\n\r\n{}", "missing Content-Length header"},
		{"bad length", "Content-Length: abc\r\n\r\n", "invalid Content-Length"},
		{"short body", "Content-Length: 10\r\n\r\n{}", "error reading body"},
		{"bad json", "Content-Length: 3\r\n\r\n{x}", "invalid message body"},
		{"oversized", "Content-Length: 10485761\r\n\r\n{}", "exceeds the 10485760 byte limit"},
		{"huge length", "Content-Length: 9223372036854775807\r\n\r\n{}", "exceeds the 10485760 byte limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := readMessage(bufio.NewReader(strings.NewReader(tt.input)), MaxRequestBytes)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestClient_RoundTrip(t *testing.T) {
	c := startPair(t, newTestRouter(t))

	var out string
	require.NoError(t, c.Invoke(context.Background(), "echo", echoArgs{Text: "hello"}, &out))
	assert.Equal(t, "hello", out)
}

func TestClient_BackendError(t *testing.T) {
	c := startPair(t, newTestRouter(t))

	err := c.Invoke(context.Background(), "fail", nil, nil)
	require.Error(t, err)
	assert.Equal(t, "database error: boom", err.Error())

	ie, ok := invoke.AsError(err)
	require.True(t, ok)
	assert.Equal(t, invoke.CodeBackend, ie.Code)
	assert.Equal(t, "fail", ie.Command)
}

func TestClient_UnknownCommandAndBadArgs(t *testing.T) {
	c := startPair(t, newTestRouter(t))
	ctx := context.Background()

	err := c.Invoke(ctx, "nope", nil, nil)
	require.Error(t, err)
	assert.True(t, invoke.IsCode(err, invoke.CodeNotFound))
	assert.Equal(t, "command nope not found", err.Error())

	err = c.Invoke(ctx, "echo", json.RawMessage(`{"text":5}`), nil)
	require.Error(t, err)
	assert.True(t, invoke.IsCode(err, invoke.CodeBadArgs))
}

func TestClient_ConcurrentCalls(t *testing.T) {
	c := startPair(t, newTestRouter(t))

	const n = 20
	var wg sync.WaitGroup
	results := make([]string, n)
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// later calls finish first
			args := echoArgs{Text: fmt.Sprintf("call-%d", i), Delay: (n - i) * 2}
			errs[i] = c.Invoke(context.Background(), "echo", args, &results[i])
		}(i)
	}
	wg.Wait()

	for i := range n {
		require.NoError(t, errs[i])
		assert.Equal(t, fmt.Sprintf("call-%d", i), results[i])
	}
}

func TestClient_CloseFailsPending(t *testing.T) {
	router := newTestRouter(t)
	release := make(chan struct{})
	started := make(chan struct{})
	router.Handle("block", invoke.Command(func(_ context.Context, _ struct{}) (string, error) {
		close(started)
		<-release
		return "late", nil
	}))
	c := startPair(t, router)
	// runs before the pair cleanup so the blocked handler can finish
	t.Cleanup(func() { close(release) })

	errc := make(chan error, 1)
	go func() { errc <- c.Invoke(context.Background(), "block", nil, nil) }()
	<-started

	require.NoError(t, c.Close())
	err := <-errc
	require.Error(t, err)
	assert.True(t, invoke.IsCode(err, invoke.CodeTransport))

	err = c.Invoke(context.Background(), "echo", nil, nil)
	assert.True(t, invoke.IsCode(err, invoke.CodeTransport))
	assert.Equal(t, "rpc client closed", err.Error())
}

func TestClient_ContextCanceled(t *testing.T) {
	c := startPair(t, newTestRouter(t))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := c.Invoke(ctx, "echo", echoArgs{Text: "slow", Delay: 200}, nil)
	require.Error(t, err)
	assert.True(t, invoke.IsCode(err, invoke.CodeTransport))
}

func TestClient_ServerGone(t *testing.T) {
	respR, respW := io.Pipe()
	c := NewClient(respR, io.Discard, nil)
	require.NoError(t, respW.Close())

	assert.Eventually(t, func() bool {
		err := c.Invoke(context.Background(), "echo", nil, nil)
		return err != nil && err.Error() == "backend connection closed"
	}, time.Second, 5*time.Millisecond)
}

func TestServer_ParseErrorAndNotification(t *testing.T) {
	reqR, reqW := io.Pipe()
	respR, respW := io.Pipe()

	called := make(chan string, 1)
	router := invoke.NewRouter(nil)
	router.Handle("note", invoke.Command(func(_ context.Context, a echoArgs) (struct{}, error) {
		called <- a.Text
		return struct{}{}, nil
	}))

	srv := NewServer(router, reqR, respW, testutil.NewTestLogger(t))
	done := make(chan error, 1)
	go func() { done <- srv.Serve(context.Background()) }()

	go func() {
		_, _ = io.WriteString(reqW, "Content-Length: 3\r\n\r\n{x}")
		_ = writeMessage(reqW, &Message{JSONRPC: "2.0", Method: "note", Params: json.RawMessage(`{"text":"n"}`)})
	}()

	resp, err := readMessage(bufio.NewReader(respR), MaxResponseBytes)
	require.NoError(t, err)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeParseError, resp.Error.Code)

	assert.Equal(t, "n", <-called)

	require.NoError(t, reqW.Close())
	require.NoError(t, <-done)
}

func TestServer_RejectsOversizedRequest(t *testing.T) {
	input := fmt.Sprintf("Content-Length: %d\r\n\r\n{}", MaxRequestBytes+1)
	srv := NewServer(invoke.NewRouter(nil), strings.NewReader(input), io.Discard, testutil.NewTestLogger(t))

	err := srv.Serve(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds the 10485760 byte limit")
}

func TestServer_StopsOnCancel(t *testing.T) {
	reqR, _ := io.Pipe()
	srv := NewServer(invoke.NewRouter(nil), reqR, io.Discard, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("server did not stop")
	}
}

func TestResponseErrorMapping(t *testing.T) {
	re := toResponseError("x", invoke.Errorf("x", invoke.CodeNotFound, "command x not found"))
	assert.Equal(t, CodeMethodNotFound, re.Code)
	assert.Equal(t, invoke.CodeNotFound, re.Data.Kind)

	re = toResponseError("x", errors.New("plain"))
	assert.Equal(t, CodeServerError, re.Code)
	assert.Equal(t, "plain", re.Message)

	ie := fromResponseError("y", &ResponseError{Code: CodeInvalidParams, Message: "bad"})
	assert.Equal(t, invoke.CodeBadArgs, ie.Code)
	assert.Equal(t, "y", ie.Command)
}

func TestSpawn_MissingExecutable(t *testing.T) {
	_, err := Spawn(context.Background(), nil, "/nonexistent/dbscope-backend")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start backend")
}
