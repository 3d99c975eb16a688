package app

import (
	"log/slog"

	"github.com/dshills/undoredo/internal/config"
	"github.com/dshills/undoredo/internal/config/watcher"
	"github.com/dshills/undoredo/internal/dispatcher"
	"github.com/dshills/undoredo/internal/engine/history"
	"github.com/dshills/undoredo/internal/engine/object"
	"github.com/dshills/undoredo/internal/event"
	"github.com/dshills/undoredo/internal/logging"
	"github.com/dshills/undoredo/internal/metrics"
	"github.com/dshills/undoredo/internal/plugin/lua"
)

// bootstrap initializes all components in dependency order.
func (app *Application) bootstrap() error {
	// 1. Config
	cfg := app.opts.Config
	if cfg == nil {
		var err error
		cfg, err = config.Load(app.opts.ConfigPath, app.opts.ConfigOptions...)
		if err != nil {
			return &InitError{Component: "config", Err: err}
		}
	} else if err := cfg.Validate(); err != nil {
		return &InitError{Component: "config", Err: err}
	}
	app.cfg = cfg

	// 2. Logging
	app.logLevel = new(slog.LevelVar)
	app.logLevel.Set(logging.ParseLevel(cfg.Logging.Level))
	app.logger = logging.New(logging.Options{
		Level:  app.logLevel,
		Format: logging.ParseFormat(cfg.Logging.Format),
		Output: app.opts.LogOutput,
	})

	// 3. Event bus
	app.bus = event.NewBus(event.WithLogger(logging.WithComponent(app.logger, "event")))

	// 4. Objects, dispatch and history
	app.objects = object.NewRegistry()
	app.router = dispatcher.NewRouter()
	app.recorder = history.NewRecorder(app.objects, app.router,
		history.WithMaxActions(cfg.History.MaxActions),
		history.WithMergeWindow(cfg.History.MergeWindow),
		history.WithStrict(cfg.History.Strict),
		history.WithLogger(logging.WithComponent(app.logger, "history")),
	)
	app.recorder.SetListener(&historyBridge{bus: app.bus, recorder: app.recorder, logger: app.logger})

	// 5. Script host
	app.lua = lua.NewState(
		lua.WithExecutionTimeout(cfg.Lua.Timeout),
		lua.WithLogger(logging.WithComponent(app.logger, "lua")),
	)
	app.host = lua.NewHost(app.lua, app.objects, app.recorder,
		lua.WithDefaultMergeMode(cfg.History.DefaultMergeMode),
		lua.WithHostLogger(logging.WithComponent(app.logger, "lua")),
	)
	app.host.Install()
	app.router.Register(app.host.Handler())

	// 6. Metrics
	app.collector = metrics.New(cfg.Metrics.Namespace, app.recorder,
		metrics.WithDispatchSource(app.router.Metrics()),
		metrics.WithLogger(logging.WithComponent(app.logger, "metrics")),
	)
	subs, err := app.collector.Subscribe(app.bus)
	if err != nil {
		return &InitError{Component: "metrics", Err: err}
	}
	app.subs = append(app.subs, subs...)

	// 7. Config watcher
	if app.opts.Watch {
		if err := app.startWatcher(); err != nil {
			return &InitError{Component: "config watcher", Err: err}
		}
	}

	app.logger.Debug("application started",
		"config", app.opts.ConfigPath,
		"max_actions", cfg.History.MaxActions,
		"watch", app.opts.Watch,
	)
	return nil
}

func (app *Application) startWatcher() error {
	if app.opts.ConfigPath == "" {
		return ErrNoConfigFile
	}
	w, err := watcher.New(watcher.WithLogger(logging.WithComponent(app.logger, "config")))
	if err != nil {
		return err
	}
	if err := w.Watch(app.opts.ConfigPath); err != nil {
		_ = w.Stop()
		return err
	}
	w.OnChange(app.onConfigChange)
	w.Start()
	app.watcher = w
	return nil
}
