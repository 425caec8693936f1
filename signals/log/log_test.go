//go:build unit

package log

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]Level{
		"debug":   LevelDebug,
		"info":    LevelInfo,
		"warn":    LevelWarn,
		"warning": LevelWarn,
		"error":   LevelError,
		"ERROR":   LevelError,
		"Info":    LevelInfo,
	}

	for input, want := range cases {
		got, err := ParseLevel(input)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	_, err := ParseLevel("loud")
	require.Error(t, err)
}

func TestLevelString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "debug", LevelDebug.String())
	require.Equal(t, "info", LevelInfo.String())
	require.Equal(t, "warn", LevelWarn.String())
	require.Equal(t, "error", LevelError.String())
	require.Equal(t, "unknown", Level(42).String())
}

func TestFieldConstructors(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")

	require.Equal(t, Field{Key: "s", Value: "v"}, String("s", "v"))
	require.Equal(t, Field{Key: "i", Value: 7}, Int("i", 7))
	require.Equal(t, Field{Key: "b", Value: true}, Bool("b", true))
	require.Equal(t, Field{Key: "d", Value: time.Second}, Duration("d", time.Second))
	require.Equal(t, Field{Key: "error", Value: boom}, Err(boom))
	require.Equal(t, Field{Key: "a", Value: 1.5}, Any("a", 1.5))
}

func TestNopLogger(t *testing.T) {
	t.Parallel()

	logger := NewNop()

	require.False(t, logger.Enabled(LevelError))
	require.Same(t, logger, logger.With(String("k", "v")))

	// Must not panic.
	logger.Log(context.Background(), LevelInfo, "dropped", Int("n", 1))
	logger.Log(context.Background(), LevelError, "dropped")
}
