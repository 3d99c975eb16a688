package app

import (
	"context"
	"io"
	"log/slog"

	"github.com/dshills/undoredo/internal/config"
	"github.com/dshills/undoredo/internal/config/watcher"
	"github.com/dshills/undoredo/internal/engine/history"
	"github.com/dshills/undoredo/internal/event"
	"github.com/dshills/undoredo/internal/event/events"
	"github.com/dshills/undoredo/internal/logging"
)

// RunScript executes the Lua file at path against the shared history.
// Runs are serialized.
func (app *Application) RunScript(ctx context.Context, path string) error {
	return app.runLocked("run", path, func() error { return app.lua.DoFile(ctx, path) })
}

// RunString executes a Lua chunk against the shared history.
func (app *Application) RunString(ctx context.Context, code string) error {
	return app.runLocked("run", "<string>", func() error { return app.lua.DoString(ctx, code) })
}

func (app *Application) runLocked(op, target string, fn func() error) error {
	app.scriptMu.Lock()
	defer app.scriptMu.Unlock()

	if app.isClosed() {
		return &OperationError{Op: op, Target: target, Err: ErrClosed}
	}

	app.logger.Debug("script started", "script", target)
	if err := fn(); err != nil {
		return &OperationError{Op: op, Target: target, Err: err}
	}
	app.logger.Debug("script finished", "script", target,
		"actions", app.recorder.ActionCount(),
		"version", app.recorder.Version(),
	)
	return nil
}

// Dump writes a snapshot of the history to w in the given format.
func (app *Application) Dump(w io.Writer, format history.Format) error {
	if err := history.Dump(w, app.recorder.Snapshot(), format); err != nil {
		return &OperationError{Op: "dump", Target: string(format), Err: err}
	}
	return nil
}

// Reload re-reads the config file and applies the settings that can change
// at runtime: history.max_actions, history.merge_window,
// history.default_merge_mode and logging.level. Other changes are logged
// and take effect on restart. Reloads wait for a running script to finish.
func (app *Application) Reload(ctx context.Context) error {
	path := app.opts.ConfigPath
	if path == "" {
		return ErrNoConfigFile
	}

	app.scriptMu.Lock()
	defer app.scriptMu.Unlock()
	if app.isClosed() {
		return ErrClosed
	}

	next, err := config.Load(path, app.opts.ConfigOptions...)
	if err != nil {
		app.logger.Warn("config reload rejected", "path", path, "error", err)
		app.publish(ctx, event.NewEvent(events.TopicConfigReloadFailed,
			events.ConfigReloadFailed{Path: path, Err: err}, "config"))
		return err
	}

	app.mu.Lock()
	prev := app.cfg
	app.cfg = next
	app.mu.Unlock()

	changed := prev.Changed(next)
	app.apply(prev, next)

	app.logger.Info("config reloaded", "path", path, "changed", changed)
	app.publish(ctx, event.NewEvent(events.TopicConfigReloaded,
		events.ConfigReloaded{Path: path, Changed: changed}, "config"))
	return nil
}

func (app *Application) apply(prev, next *config.Config) {
	if prev.History.MaxActions != next.History.MaxActions {
		app.recorder.SetMaxActions(next.History.MaxActions)
	}
	if prev.History.MergeWindow != next.History.MergeWindow {
		app.recorder.SetMergeWindow(next.History.MergeWindow)
	}
	if prev.History.DefaultMergeMode != next.History.DefaultMergeMode {
		app.host.SetDefaultMergeMode(next.History.DefaultMergeMode)
	}
	if prev.Logging.Level != next.Logging.Level {
		app.logLevel.Set(logging.ParseLevel(next.Logging.Level))
	}

	restart := prev.History.Strict != next.History.Strict ||
		prev.Logging.Format != next.Logging.Format ||
		prev.Lua != next.Lua ||
		prev.Metrics != next.Metrics
	if restart {
		app.logger.Warn("some config changes need a restart to take effect")
	}
}

func (app *Application) onConfigChange(e watcher.Event) {
	if e.Op == watcher.OpRemove || e.Op == watcher.OpRename {
		app.logger.Warn("config file removed; keeping current settings", "path", e.Path)
		return
	}
	_ = app.Reload(context.Background())
}

func (app *Application) publish(ctx context.Context, ev any) {
	if err := app.bus.Publish(ctx, ev); err != nil {
		app.logger.Log(ctx, slog.LevelWarn, "event handler failed", "error", err)
	}
}
