package dispatcher

import (
	"sort"
	"sync"
	"time"
)

// Metrics collects dispatch statistics.
type Metrics struct {
	mu sync.RWMutex

	// Per-member metrics
	members map[string]*MemberMetrics

	// Global counters
	totalDispatches uint64
	totalErrors     uint64
	totalPanics     uint64

	// Timing
	totalDuration time.Duration
}

// MemberMetrics holds metrics for one method or property name.
type MemberMetrics struct {
	Name          string
	DispatchCount uint64
	ErrorCount    uint64
	TotalDuration time.Duration
	MaxDuration   time.Duration
	LastDispatch  time.Time
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		members: make(map[string]*MemberMetrics),
	}
}

// RecordDispatch records one dispatch and its outcome.
func (m *Metrics) RecordDispatch(name string, duration time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalDispatches++
	m.totalDuration += duration
	if err != nil {
		m.totalErrors++
	}

	mm := m.members[name]
	if mm == nil {
		mm = &MemberMetrics{Name: name}
		m.members[name] = mm
	}
	mm.DispatchCount++
	mm.TotalDuration += duration
	mm.LastDispatch = time.Now()
	if duration > mm.MaxDuration {
		mm.MaxDuration = duration
	}
	if err != nil {
		mm.ErrorCount++
	}
}

// RecordPanic records a panic recovery.
func (m *Metrics) RecordPanic(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalPanics++
}

// TotalDispatches returns the total number of dispatches.
func (m *Metrics) TotalDispatches() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totalDispatches
}

// TotalErrors returns the number of dispatches that failed.
func (m *Metrics) TotalErrors() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totalErrors
}

// TotalPanics returns the total number of panics recovered.
func (m *Metrics) TotalPanics() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totalPanics
}

// TotalDuration returns the time spent in all dispatches.
func (m *Metrics) TotalDuration() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totalDuration
}

// Member returns a copy of the metrics for name.
func (m *Metrics) Member(name string) (MemberMetrics, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	mm, ok := m.members[name]
	if !ok {
		return MemberMetrics{}, false
	}
	return *mm, true
}

// TopMembers returns the n most dispatched members.
func (m *Metrics) TopMembers(n int) []MemberMetrics {
	m.mu.RLock()
	out := make([]MemberMetrics, 0, len(m.members))
	for _, mm := range m.members {
		out = append(out, *mm)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].DispatchCount != out[j].DispatchCount {
			return out[i].DispatchCount > out[j].DispatchCount
		}
		return out[i].Name < out[j].Name
	})
	if n >= 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

// Reset clears all metrics.
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.members = make(map[string]*MemberMetrics)
	m.totalDispatches = 0
	m.totalErrors = 0
	m.totalPanics = 0
	m.totalDuration = 0
}
