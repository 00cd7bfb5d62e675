package invoke

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoArgs struct {
	Text  string `json:"text"`
	Count int    `json:"count"`
}

func newEchoRouter(t *testing.T) *Router {
	t.Helper()
	r := NewRouter(nil)
	r.Handle("echo", Command(func(_ context.Context, args echoArgs) (echoArgs, error) {
		return args, nil
	}))
	r.Handle("boom", Command(func(_ context.Context, _ struct{}) (string, error) {
		return "", errors.New("failed to open: no such file")
	}))
	r.Handle("typed", func(_ context.Context, _ json.RawMessage) (any, error) {
		return nil, &Error{Code: CodeBadArgs, Message: "limit must be positive"}
	})
	r.Handle("unencodable", func(_ context.Context, _ json.RawMessage) (any, error) {
		return make(chan int), nil
	})
	return r
}

func TestRouter_Dispatch(t *testing.T) {
	r := newEchoRouter(t)

	tests := []struct {
		name     string
		command  string
		args     string
		want     string
		wantCode Code
		wantMsg  string
	}{
		{
			name:    "typed handler",
			command: "echo",
			args:    `{"text":"hi","count":2}`,
			want:    `{"text":"hi","count":2}`,
		},
		{
			name:    "missing args decode to zero value",
			command: "echo",
			want:    `{"text":"","count":0}`,
		},
		{
			name:     "unknown command",
			command:  "nope",
			wantCode: CodeNotFound,
			wantMsg:  "command nope not found",
		},
		{
			name:     "bad args",
			command:  "echo",
			args:     `{"count":"two"}`,
			wantCode: CodeBadArgs,
		},
		{
			name:     "handler error becomes backend error with verbatim message",
			command:  "boom",
			wantCode: CodeBackend,
			wantMsg:  "failed to open: no such file",
		},
		{
			name:     "typed handler error keeps its code",
			command:  "typed",
			wantCode: CodeBadArgs,
			wantMsg:  "limit must be positive",
		},
		{
			name:     "unencodable result",
			command:  "unencodable",
			wantCode: CodeSerialization,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var raw json.RawMessage
			if tt.args != "" {
				raw = json.RawMessage(tt.args)
			}

			out, err := r.Dispatch(context.Background(), tt.command, raw)
			if tt.wantCode != "" {
				require.Error(t, err)
				ie, ok := AsError(err)
				require.True(t, ok, "error should be *invoke.Error")
				assert.Equal(t, tt.wantCode, ie.Code)
				assert.Equal(t, tt.command, ie.Command)
				if tt.wantMsg != "" {
					assert.Equal(t, tt.wantMsg, ie.Error())
				}
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(out))
		})
	}
}

func TestRouter_Commands(t *testing.T) {
	r := newEchoRouter(t)
	assert.Equal(t, []string{"boom", "echo", "typed", "unencodable"}, r.Commands())
}

func TestIsCode(t *testing.T) {
	err := Errorf("x", CodeTransport, "broken pipe")
	assert.True(t, IsCode(err, CodeTransport))
	assert.False(t, IsCode(err, CodeBackend))
	assert.False(t, IsCode(errors.New("plain"), CodeTransport))
}
