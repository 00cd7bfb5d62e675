package invoke

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_Invoke(t *testing.T) {
	l := NewLocal(newEchoRouter(t))

	t.Run("round trips through JSON", func(t *testing.T) {
		var got echoArgs
		err := l.Invoke(context.Background(), "echo", echoArgs{Text: "x", Count: 3}, &got)
		require.NoError(t, err)
		assert.Equal(t, echoArgs{Text: "x", Count: 3}, got)
	})

	t.Run("nil result discards output", func(t *testing.T) {
		require.NoError(t, l.Invoke(context.Background(), "echo", nil, nil))
	})

	t.Run("result type mismatch is a serialization error", func(t *testing.T) {
		var got []string
		err := l.Invoke(context.Background(), "echo", echoArgs{Text: "x"}, &got)
		require.Error(t, err)
		assert.True(t, IsCode(err, CodeSerialization))
	})

	t.Run("unencodable args", func(t *testing.T) {
		err := l.Invoke(context.Background(), "echo", map[string]any{"f": func() {}}, nil)
		require.Error(t, err)
		assert.True(t, IsCode(err, CodeSerialization))
	})

	t.Run("backend errors pass through", func(t *testing.T) {
		err := l.Invoke(context.Background(), "boom", nil, nil)
		require.Error(t, err)
		assert.Equal(t, "failed to open: no such file", err.Error())
	})
}
