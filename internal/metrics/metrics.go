// Package metrics exports history and dispatch counters to Prometheus.
//
// A Collector owns its own registry. Counters are driven by events
// published on the bus; gauges read the current history state on scrape.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dshills/undoredo/internal/event"
	"github.com/dshills/undoredo/internal/event/events"
	"github.com/dshills/undoredo/internal/event/topic"
	"github.com/dshills/undoredo/internal/logging"
)

// HistorySource reports the state sampled by the gauges.
type HistorySource interface {
	ActionCount() int
	CurrentAction() int
	Version() uint64
}

// DispatchSource reports cumulative dispatch totals.
type DispatchSource interface {
	TotalDispatches() uint64
	TotalErrors() uint64
	TotalPanics() uint64
}

// Collector holds the registered metrics.
type Collector struct {
	registry *prometheus.Registry
	logger   *slog.Logger
	ns       string

	commits         prometheus.Counter
	methodReplays   *prometheus.CounterVec
	propertyReplays *prometheus.CounterVec
	reloads         *prometheus.CounterVec
}

// Option configures a Collector.
type Option func(*Collector)

// WithLogger sets the logger used by Serve.
func WithLogger(l *slog.Logger) Option {
	return func(c *Collector) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithDispatchSource exposes dispatch totals from src.
func WithDispatchSource(src DispatchSource) Option {
	return func(c *Collector) {
		if src == nil {
			return
		}
		c.registry.MustRegister(
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Namespace: c.ns, Subsystem: "dispatch", Name: "calls_total",
				Help: "Operations dispatched to targets.",
			}, func() float64 { return float64(src.TotalDispatches()) }),
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Namespace: c.ns, Subsystem: "dispatch", Name: "errors_total",
				Help: "Dispatched operations that returned an error.",
			}, func() float64 { return float64(src.TotalErrors()) }),
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Namespace: c.ns, Subsystem: "dispatch", Name: "panics_total",
				Help: "Dispatched operations that panicked.",
			}, func() float64 { return float64(src.TotalPanics()) }),
		)
	}
}

// New creates a Collector under namespace. Gauges are registered only
// when src is not nil.
func New(namespace string, src HistorySource, opts ...Option) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		logger:   logging.NewNop(),
		ns:       namespace,
	}

	c.commits = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "history", Name: "commits_total",
		Help: "Actions committed, including merged commits.",
	})
	c.methodReplays = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "history", Name: "method_replays_total",
		Help: "Method operations dispatched to live targets.",
	}, []string{"method"})
	c.propertyReplays = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "history", Name: "property_replays_total",
		Help: "Property operations dispatched to live targets.",
	}, []string{"property"})
	c.reloads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "config", Name: "reloads_total",
		Help: "Config file reloads by result.",
	}, []string{"result"})

	c.registry.MustRegister(c.commits, c.methodReplays, c.propertyReplays, c.reloads)

	if src != nil {
		c.registry.MustRegister(
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: namespace, Subsystem: "history", Name: "actions",
				Help: "Actions currently held in history.",
			}, func() float64 { return float64(src.ActionCount()) }),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: namespace, Subsystem: "history", Name: "current_action",
				Help: "Index of the last applied action, -1 when none.",
			}, func() float64 { return float64(src.CurrentAction()) }),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: namespace, Subsystem: "history", Name: "version",
				Help: "History version counter.",
			}, func() float64 { return float64(src.Version()) }),
		)
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Registry returns the registry holding the collector's metrics.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Subscribe routes history and config events on bus into the counters.
func (c *Collector) Subscribe(bus *event.Bus) ([]*event.Subscription, error) {
	var subs []*event.Subscription
	for _, pattern := range []topic.Topic{"history.**", "config.**"} {
		sub, err := bus.Subscribe(pattern, c, event.WithPriority(event.PriorityLow))
		if err != nil {
			for _, s := range subs {
				_ = bus.Unsubscribe(s)
			}
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

// Handle implements event.Handler.
func (c *Collector) Handle(_ context.Context, e any) error {
	if _, ok := event.PayloadOf[events.ActionCommitted](e); ok {
		c.commits.Inc()
		return nil
	}
	if p, ok := event.PayloadOf[events.MethodReplayed](e); ok {
		c.methodReplays.WithLabelValues(p.Method).Inc()
		return nil
	}
	if p, ok := event.PayloadOf[events.PropertyReplayed](e); ok {
		c.propertyReplays.WithLabelValues(p.Property).Inc()
		return nil
	}
	if _, ok := event.PayloadOf[events.ConfigReloaded](e); ok {
		c.reloads.WithLabelValues("ok").Inc()
		return nil
	}
	if _, ok := event.PayloadOf[events.ConfigReloadFailed](e); ok {
		c.reloads.WithLabelValues("failed").Inc()
	}
	return nil
}

// Handler returns the /metrics HTTP handler for the collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		ErrorLog: slog.NewLogLogger(c.logger.Handler(), slog.LevelError),
	})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (c *Collector) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return c.serve(ctx, ln)
}

func (c *Collector) serve(ctx context.Context, ln net.Listener) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	c.logger.Info("metrics endpoint listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
