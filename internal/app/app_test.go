package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/undoredo/internal/config"
	"github.com/dshills/undoredo/internal/engine/history"
	"github.com/dshills/undoredo/internal/event"
	"github.com/dshills/undoredo/internal/event/events"
)

func newTestApp(t *testing.T, opts Options) (*Application, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	if opts.LogOutput == nil {
		opts.LogOutput = &logs
	}
	if opts.ConfigOptions == nil {
		opts.ConfigOptions = []config.Option{config.WithoutEnv()}
	}
	a, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(a.Shutdown)
	return a, &logs
}

const moveScript = `
local node = objects.new({ x = 0 })

history.create_action("move", history.MERGE_ENDS)
history.add_do_property(node, "x", 10)
history.add_undo_property(node, "x", 0)
history.commit_action()

local t = objects.get(node)
assert(t.x == 10, "do applied")
assert(history.undo())
assert(t.x == 0, "undo applied")
assert(history.redo())
assert(t.x == 10, "redo applied")
`

func TestRunScriptDrivesHistory(t *testing.T) {
	a, _ := newTestApp(t, Options{Config: config.Default()})

	var mu sync.Mutex
	var committed []events.ActionCommitted
	_, err := a.EventBus().SubscribeFunc(events.TopicActionCommitted, func(_ context.Context, e any) error {
		p, _ := event.PayloadOf[events.ActionCommitted](e)
		mu.Lock()
		committed = append(committed, p)
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, a.RunString(context.Background(), moveScript))

	rec := a.Recorder()
	assert.Equal(t, 1, rec.ActionCount())
	assert.Equal(t, "move", rec.CurrentActionName())
	require.Len(t, committed, 1)
	assert.Equal(t, events.ActionCommitted{Name: "move", Version: rec.Version(), Count: 1}, committed[0])

	// do + undo + redo, each one property assignment
	assert.Equal(t, uint64(3), a.Router().Metrics().TotalDispatches())

	var out bytes.Buffer
	require.NoError(t, a.Dump(&out, history.FormatYAML))
	assert.Contains(t, out.String(), "move")
}

func TestRunScriptFromFile(t *testing.T) {
	a, _ := newTestApp(t, Options{Config: config.Default()})

	path := filepath.Join(t.TempDir(), "move.lua")
	require.NoError(t, os.WriteFile(path, []byte(moveScript), 0o600))
	require.NoError(t, a.RunScript(context.Background(), path))

	err := a.RunScript(context.Background(), filepath.Join(t.TempDir(), "missing.lua"))
	var opErr *OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "run", opErr.Op)
}

func TestScriptErrorIsReported(t *testing.T) {
	a, _ := newTestApp(t, Options{Config: config.Default()})

	err := a.RunString(context.Background(), `history.commit_action()`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no action is open")
}

func TestMetricsFollowHistory(t *testing.T) {
	a, _ := newTestApp(t, Options{Config: config.Default()})
	require.NoError(t, a.RunString(context.Background(), moveScript))

	n, err := testutil.GatherAndCount(a.Metrics().Registry(), "undoredo_history_commits_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, testutil.GatherAndCompare(a.Metrics().Registry(), bytes.NewBufferString(`
# HELP undoredo_history_actions Actions currently held in history.
# TYPE undoredo_history_actions gauge
undoredo_history_actions 1
`), "undoredo_history_actions"))
}

func TestConfigIsApplied(t *testing.T) {
	cfg := config.Default()
	cfg.History.MaxActions = 2
	cfg.History.DefaultMergeMode = history.MergeAll
	a, _ := newTestApp(t, Options{Config: cfg})

	require.NoError(t, a.RunString(context.Background(), `
		local n = objects.new({ x = 0 })
		for i = 1, 3 do
			history.create_action("step" .. i)
			history.add_do_property(n, "x", i)
			history.add_undo_property(n, "x", i - 1)
			history.commit_action()
		end
	`))
	assert.Equal(t, 1, a.Recorder().ActionCount(), "default merge mode folds every step")
	assert.Equal(t, 2, a.Recorder().MaxActions())
}

func TestInvalidConfigFailsInit(t *testing.T) {
	cfg := config.Default()
	cfg.History.MaxActions = 0

	_, err := New(Options{Config: cfg, LogOutput: &bytes.Buffer{}})
	var initErr *InitError
	require.ErrorAs(t, err, &initErr)
	assert.Equal(t, "config", initErr.Component)
	assert.ErrorIs(t, err, config.ErrValidationFailed)

	_, err = New(Options{Config: config.Default(), Watch: true, LogOutput: &bytes.Buffer{}})
	assert.ErrorIs(t, err, ErrNoConfigFile)
}

func TestReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "undoredo.toml")
	require.NoError(t, os.WriteFile(path, []byte("[history]\nmax_actions = 10\n"), 0o600))

	a, _ := newTestApp(t, Options{ConfigPath: path})
	assert.Equal(t, 10, a.Recorder().MaxActions())

	var reloaded []events.ConfigReloaded
	var failed int
	_, err := a.EventBus().SubscribeFunc("config.**", func(_ context.Context, e any) error {
		if p, ok := event.PayloadOf[events.ConfigReloaded](e); ok {
			reloaded = append(reloaded, p)
		}
		if _, ok := event.PayloadOf[events.ConfigReloadFailed](e); ok {
			failed++
		}
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`
[history]
max_actions = 4
default_merge_mode = "ends"
[logging]
level = "debug"
`), 0o600))
	require.NoError(t, a.Reload(context.Background()))

	assert.Equal(t, 4, a.Recorder().MaxActions())
	assert.Equal(t, "debug", a.Config().Logging.Level)
	require.Len(t, reloaded, 1)
	assert.Equal(t, []string{"history.default_merge_mode", "history.max_actions", "logging.level"}, reloaded[0].Changed)

	require.NoError(t, os.WriteFile(path, []byte("[history]\nmax_actions = -1\n"), 0o600))
	assert.Error(t, a.Reload(context.Background()))
	assert.Equal(t, 1, failed)
	assert.Equal(t, 4, a.Recorder().MaxActions(), "rejected reload keeps settings")
}

func TestReloadWaitsForRunningScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "undoredo.toml")
	require.NoError(t, os.WriteFile(path, []byte("[history]\nmax_actions = 10\n"), 0o600))

	a, _ := newTestApp(t, Options{ConfigPath: path})
	require.NoError(t, os.WriteFile(path, []byte("[history]\nmax_actions = 1\n"), 0o600))

	// Hold the script lock as a running script would.
	a.scriptMu.Lock()
	done := make(chan error, 1)
	go func() { done <- a.Reload(context.Background()) }()

	assert.Never(t, func() bool { return a.Recorder().MaxActions() == 1 },
		100*time.Millisecond, 10*time.Millisecond)
	a.scriptMu.Unlock()

	require.NoError(t, <-done)
	assert.Equal(t, 1, a.Recorder().MaxActions())

	a.Shutdown()
	assert.ErrorIs(t, a.Reload(context.Background()), ErrClosed)
}

func TestWatchReloadsConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "undoredo.yaml")
	require.NoError(t, os.WriteFile(path, []byte("history:\n  max_actions: 10\n"), 0o600))

	a, _ := newTestApp(t, Options{ConfigPath: path, Watch: true})
	require.NoError(t, os.WriteFile(path, []byte("history:\n  max_actions: 3\n"), 0o600))

	require.Eventually(t, func() bool { return a.Recorder().MaxActions() == 3 },
		3*time.Second, 20*time.Millisecond)
}

func TestShutdown(t *testing.T) {
	a, _ := newTestApp(t, Options{Config: config.Default()})
	a.Shutdown()
	a.Shutdown()

	err := a.RunString(context.Background(), `local x = 1`)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestServeMetricsDisabled(t *testing.T) {
	a, _ := newTestApp(t, Options{Config: config.Default()})
	assert.NoError(t, a.ServeMetrics(context.Background(), ""))
}
