package metrics

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/undoredo/internal/engine/variant"
	"github.com/dshills/undoredo/internal/event"
	"github.com/dshills/undoredo/internal/event/events"
	"github.com/dshills/undoredo/internal/event/topic"
)

type fakeHistory struct {
	count, current int
	version        uint64
}

func (f *fakeHistory) ActionCount() int   { return f.count }
func (f *fakeHistory) CurrentAction() int { return f.current }
func (f *fakeHistory) Version() uint64    { return f.version }

type fakeDispatch struct{ calls, errs, panics uint64 }

func (f fakeDispatch) TotalDispatches() uint64 { return f.calls }
func (f fakeDispatch) TotalErrors() uint64     { return f.errs }
func (f fakeDispatch) TotalPanics() uint64     { return f.panics }

func publish[T any](t *testing.T, bus *event.Bus, tp topic.Topic, payload T) {
	t.Helper()
	require.NoError(t, bus.Publish(context.Background(), event.NewEvent(tp, payload, "test")))
}

func TestCollectorCountsEvents(t *testing.T) {
	bus := event.NewBus()
	c := New("undoredo", nil)
	subs, err := c.Subscribe(bus)
	require.NoError(t, err)
	assert.Len(t, subs, 2)

	publish(t, bus, events.TopicActionCommitted, events.ActionCommitted{Name: "move"})
	publish(t, bus, events.TopicActionCommitted, events.ActionCommitted{Name: "move"})
	publish(t, bus, events.TopicMethodReplayed, events.MethodReplayed{Method: "append", Args: []variant.Value{variant.Int(1)}})
	publish(t, bus, events.TopicPropertyReplayed, events.PropertyReplayed{Property: "x"})
	publish(t, bus, events.TopicPropertyReplayed, events.PropertyReplayed{Property: "x"})
	publish(t, bus, events.TopicConfigReloaded, events.ConfigReloaded{Path: "a.toml"})
	publish(t, bus, events.TopicConfigReloadFailed, events.ConfigReloadFailed{Path: "a.toml", Err: errors.New("bad")})
	publish(t, bus, "other.topic", 1)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.commits))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.methodReplays.WithLabelValues("append")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.propertyReplays.WithLabelValues("x")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.reloads.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.reloads.WithLabelValues("failed")))
}

func TestCollectorGauges(t *testing.T) {
	src := &fakeHistory{count: 3, current: 1, version: 7}
	c := New("undoredo", src, WithDispatchSource(fakeDispatch{calls: 10, errs: 2, panics: 1}))

	expected := `
# HELP undoredo_history_actions Actions currently held in history.
# TYPE undoredo_history_actions gauge
undoredo_history_actions 3
# HELP undoredo_history_current_action Index of the last applied action, -1 when none.
# TYPE undoredo_history_current_action gauge
undoredo_history_current_action 1
# HELP undoredo_history_version History version counter.
# TYPE undoredo_history_version gauge
undoredo_history_version 7
`
	require.NoError(t, testutil.GatherAndCompare(c.Registry(), strings.NewReader(expected),
		"undoredo_history_actions", "undoredo_history_current_action", "undoredo_history_version"))

	src.current = -1
	src.version = 8
	n, err := testutil.GatherAndCount(c.Registry(), "undoredo_dispatch_calls_total", "undoredo_dispatch_errors_total", "undoredo_dispatch_panics_total")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "undoredo_history_current_action -1")
	assert.Contains(t, body, "undoredo_history_version 8")
	assert.Contains(t, body, "undoredo_dispatch_errors_total 2")
}

func TestCollectorServe(t *testing.T) {
	c := New("undoredo", &fakeHistory{count: 1})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/metrics"
	var body []byte
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, _ = io.ReadAll(resp.Body)
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)
	assert.Contains(t, string(body), "undoredo_history_actions 1")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
}
