// Package app wires the history recorder, the script host and the ambient
// services into a single runnable application.
package app

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/dshills/undoredo/internal/config"
	"github.com/dshills/undoredo/internal/config/watcher"
	"github.com/dshills/undoredo/internal/dispatcher"
	"github.com/dshills/undoredo/internal/engine/history"
	"github.com/dshills/undoredo/internal/engine/object"
	"github.com/dshills/undoredo/internal/event"
	"github.com/dshills/undoredo/internal/metrics"
	"github.com/dshills/undoredo/internal/plugin/lua"
)

// Application is the central coordinator for all components.
type Application struct {
	mu     sync.RWMutex
	cfg    *config.Config
	closed bool

	logger   *slog.Logger
	logLevel *slog.LevelVar

	objects  *object.Registry
	router   *dispatcher.Router
	recorder *history.Recorder
	bus      *event.Bus

	lua  *lua.State
	host *lua.Host

	// scriptMu serializes script runs and config reloads; the Lua state is
	// single-threaded.
	scriptMu sync.Mutex

	collector *metrics.Collector
	watcher   *watcher.Watcher
	subs      []*event.Subscription

	opts Options
}

// Options configures the application.
type Options struct {
	// ConfigPath is the config file to load. Empty uses defaults and the environment.
	ConfigPath string

	// Config, if set, is used instead of loading ConfigPath. ConfigPath is
	// still used for reloads.
	Config *config.Config

	// LogOutput receives log records. Defaults to stderr.
	LogOutput io.Writer

	// Watch reloads the config file when it changes.
	Watch bool

	// ConfigOptions are passed to config.Load on start and reload.
	ConfigOptions []config.Option
}

// New creates an Application and starts its components.
func New(opts Options) (*Application, error) {
	app := &Application{opts: opts}
	if err := app.bootstrap(); err != nil {
		app.Shutdown()
		return nil, err
	}
	return app, nil
}

// Config returns the active configuration.
func (app *Application) Config() *config.Config {
	app.mu.RLock()
	defer app.mu.RUnlock()
	return app.cfg
}

// Logger returns the application logger.
func (app *Application) Logger() *slog.Logger {
	return app.logger
}

// Recorder returns the history recorder.
func (app *Application) Recorder() *history.Recorder {
	return app.recorder
}

// Objects returns the object registry.
func (app *Application) Objects() *object.Registry {
	return app.objects
}

// Router returns the operation dispatcher.
func (app *Application) Router() *dispatcher.Router {
	return app.router
}

// EventBus returns the event bus.
func (app *Application) EventBus() *event.Bus {
	return app.bus
}

// Metrics returns the Prometheus collector.
func (app *Application) Metrics() *metrics.Collector {
	return app.collector
}

// ServeMetrics exposes /metrics on addr until ctx is cancelled. An empty
// addr uses metrics.addr from the config; if that is empty too it returns
// immediately.
func (app *Application) ServeMetrics(ctx context.Context, addr string) error {
	if addr == "" {
		addr = app.Config().Metrics.Addr
	}
	if addr == "" {
		return nil
	}
	return app.collector.Serve(ctx, addr)
}

// Shutdown stops the watcher, drops bus subscriptions and closes the
// script state. It is safe to call more than once.
func (app *Application) Shutdown() {
	app.mu.Lock()
	if app.closed {
		app.mu.Unlock()
		return
	}
	app.closed = true
	w := app.watcher
	subs := app.subs
	app.subs = nil
	app.mu.Unlock()

	if w != nil {
		if err := w.Stop(); err != nil {
			app.logger.Warn("stopping config watcher", "error", err)
		}
	}
	for _, s := range subs {
		_ = app.bus.Unsubscribe(s)
	}

	app.scriptMu.Lock()
	defer app.scriptMu.Unlock()
	if app.lua != nil {
		_ = app.lua.Close()
	}
	if app.logger != nil {
		app.logger.Debug("application stopped")
	}
}

func (app *Application) isClosed() bool {
	app.mu.RLock()
	defer app.mu.RUnlock()
	return app.closed
}
