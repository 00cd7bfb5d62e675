package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/dbscope/internal/invoke"
	"github.com/leapstack-labs/dbscope/internal/testutil"
)

type greetArgs struct {
	Name string `json:"name"`
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := testutil.NewTestLogger(t)
	router := invoke.NewRouter(logger)
	router.Handle("greet", invoke.Command(func(_ context.Context, a greetArgs) (string, error) {
		return "hello " + a.Name, nil
	}))
	router.Handle("fail", invoke.Command(func(_ context.Context, _ struct{}) (string, error) {
		return "", errors.New("connection failed: no such file")
	}))
	router.Handle("panic", func(context.Context, json.RawMessage) (any, error) {
		panic("boom")
	})

	ts := httptest.NewServer(NewServer(router, "", logger).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestServer_StatusMapping(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name       string
		command    string
		body       string
		wantStatus int
		wantBody   string
	}{
		{"success", "greet", `{"name":"ann"}`, http.StatusOK, `{"result":"hello ann"}`},
		{"no body", "greet", ``, http.StatusOK, `{"result":"hello "}`},
		{"unknown", "nope", `{}`, http.StatusNotFound, `{"error":{"command":"nope","code":"not_found","message":"command nope not found"}}`},
		{"bad args", "greet", `{"name":1}`, http.StatusBadRequest, ``},
		{"backend", "fail", `{}`, http.StatusInternalServerError, `{"error":{"command":"fail","code":"backend","message":"connection failed: no such file"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/invoke/"+tt.command, "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantBody != "" {
				data, err := io.ReadAll(resp.Body)
				require.NoError(t, err)
				assert.JSONEq(t, tt.wantBody, string(data))
			}
		})
	}
}

func TestServer_Recovers(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/invoke/panic", "application/json", nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestServer_HealthAndCommands(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))

	resp, err = http.Get(ts.URL + "/commands")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	var names []string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&names))
	assert.Equal(t, []string{"fail", "greet", "panic"}, names)

	resp2, err := http.Get(ts.URL + "/invoke/greet")
	require.NoError(t, err)
	_ = resp2.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp2.StatusCode)
}

func TestClient_Invoke(t *testing.T) {
	ts := newTestServer(t)
	c := NewClient(ts.URL+"/", ts.Client())
	ctx := context.Background()

	var out string
	require.NoError(t, c.Invoke(ctx, "greet", greetArgs{Name: "cy"}, &out))
	assert.Equal(t, "hello cy", out)

	err := c.Invoke(ctx, "fail", nil, nil)
	require.Error(t, err)
	assert.Equal(t, "connection failed: no such file", err.Error())
	assert.True(t, invoke.IsCode(err, invoke.CodeBackend))

	err = c.Invoke(ctx, "nope", nil, nil)
	assert.True(t, invoke.IsCode(err, invoke.CodeNotFound))

	err = c.Invoke(ctx, "greet", json.RawMessage(`{"name":1}`), nil)
	assert.True(t, invoke.IsCode(err, invoke.CodeBadArgs))

	require.NoError(t, c.Health(ctx))
}

func TestClient_Unreachable(t *testing.T) {
	ts := newTestServer(t)
	url := ts.URL
	ts.Close()

	c := NewClient(url, nil)
	err := c.Invoke(context.Background(), "greet", nil, nil)
	require.Error(t, err)
	assert.True(t, invoke.IsCode(err, invoke.CodeTransport))
	assert.Error(t, c.Health(context.Background()))
}

func TestClient_NonEnvelopeError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer ts.Close()

	err := NewClient(ts.URL, nil).Invoke(context.Background(), "greet", nil, nil)
	require.Error(t, err)
	assert.True(t, invoke.IsCode(err, invoke.CodeTransport))
	assert.Contains(t, err.Error(), "502")
}

func TestServer_ServeShutsDown(t *testing.T) {
	srv := NewServer(invoke.NewRouter(nil), "127.0.0.1:0", nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(6 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServer_ServeListenError(t *testing.T) {
	err := NewServer(invoke.NewRouter(nil), "256.0.0.1:bad", nil).Serve(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to listen")
}
