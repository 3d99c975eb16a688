package lua

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/undoredo/internal/logging"
)

func TestStateSandbox(t *testing.T) {
	s := NewState()
	defer s.Close()

	require.NoError(t, s.DoString(context.Background(), `
		blocked = dofile == nil and loadfile == nil and load == nil and require == nil
		no_libs = io == nil and os == nil and debug == nil
		has_libs = string ~= nil and table ~= nil and math ~= nil
	`))

	assert.Equal(t, lua.LTrue, s.GetGlobal("blocked"))
	assert.Equal(t, lua.LTrue, s.GetGlobal("no_libs"))
	assert.Equal(t, lua.LTrue, s.GetGlobal("has_libs"))
}

func TestStatePrintGoesToLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.Options{Level: slog.LevelDebug, Output: &buf})

	s := NewState(WithLogger(logger))
	defer s.Close()

	require.NoError(t, s.DoString(context.Background(), `print("hello", 42)`))
	assert.Contains(t, buf.String(), "hello")
	assert.Contains(t, buf.String(), "source=lua")
}

func TestStateTimeout(t *testing.T) {
	s := NewState(WithExecutionTimeout(50 * time.Millisecond))
	defer s.Close()

	err := s.DoString(context.Background(), `while true do end`)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExecutionTimeout))

	require.NoError(t, s.DoString(context.Background(), `after = 1`), "state is usable after a timeout")
}

func TestStateCancelledContext(t *testing.T) {
	s := NewState(WithExecutionTimeout(0))
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.DoString(ctx, `x = 1`)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrExecutionTimeout))
}

func TestStateSyntaxError(t *testing.T) {
	s := NewState()
	defer s.Close()

	err := s.DoString(context.Background(), `this is not lua`)
	var scriptErr *ScriptError
	require.True(t, errors.As(err, &scriptErr))
}

func TestStateDoFileMissing(t *testing.T) {
	s := NewState()
	defer s.Close()

	err := s.DoFile(context.Background(), t.TempDir()+"/missing.lua")
	var scriptErr *ScriptError
	require.True(t, errors.As(err, &scriptErr))
	assert.Contains(t, scriptErr.Chunk, "missing.lua")
}

func TestStateClosed(t *testing.T) {
	s := NewState()
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.DoString(context.Background(), `x = 1`), ErrStateClosed)
	assert.Equal(t, lua.LNil, s.GetGlobal("x"))
	assert.Nil(t, s.RegisterModule("m", nil))
}
