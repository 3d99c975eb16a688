package history

import (
	"log/slog"
	"time"
)

// Option configures a Recorder.
type Option func(*Recorder)

// WithMaxActions sets the history cap. Values < 1 select DefaultMaxActions.
func WithMaxActions(n int) Option {
	return func(r *Recorder) {
		if n > 0 {
			r.store.maxActions = n
		}
	}
}

// WithMergeWindow limits merging to commits made within d of the previous
// entry. Zero disables the time limit.
func WithMergeWindow(d time.Duration) Option {
	return func(r *Recorder) {
		if d >= 0 {
			r.policy.window = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Recorder) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithClock overrides the time source used for action timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		if now != nil {
			r.clock = now
		}
	}
}

// WithStrict makes misuse and invariant violations panic instead of only
// being logged and returned.
func WithStrict(strict bool) Option {
	return func(r *Recorder) {
		r.strict = strict
	}
}
