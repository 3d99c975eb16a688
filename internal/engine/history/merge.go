package history

import (
	"fmt"
	"strings"
	"time"
)

// MergeMode controls whether a committed action folds into the previous one.
type MergeMode int

const (
	// MergeDisable always creates a new history entry.
	MergeDisable MergeMode = iota
	// MergeEnds merges into the previous entry when both share a name.
	MergeEnds
	// MergeAll merges into the previous entry regardless of name.
	MergeAll
)

// String returns the mode name used by config and scripts.
func (m MergeMode) String() string {
	switch m {
	case MergeDisable:
		return "disable"
	case MergeEnds:
		return "ends"
	case MergeAll:
		return "all"
	default:
		return fmt.Sprintf("MergeMode(%d)", int(m))
	}
}

// ParseMergeMode parses "disable", "ends" or "all". The empty string is MergeDisable.
func ParseMergeMode(s string) (MergeMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "disable", "none":
		return MergeDisable, nil
	case "ends":
		return MergeEnds, nil
	case "all":
		return MergeAll, nil
	default:
		return MergeDisable, fmt.Errorf("unknown merge mode %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m MergeMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *MergeMode) UnmarshalText(text []byte) error {
	mode, err := ParseMergeMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// mergePolicy decides whether a pending action folds into the last entry.
type mergePolicy struct {
	// window bounds the time since the last entry was committed; 0 means unlimited.
	window time.Duration
}

// allows reports whether pending may merge into last. The caller guarantees
// last is the active end of history. sequential is false when any undo, redo
// or clear happened since the previous commit.
func (p mergePolicy) allows(last, pending *action, sequential bool, now time.Time) bool {
	if last == nil || !sequential {
		return false
	}

	switch pending.mode {
	case MergeEnds:
		if last.name != pending.name {
			return false
		}
	case MergeAll:
	default:
		return false
	}

	if p.window > 0 && now.Sub(last.time) > p.window {
		return false
	}
	return true
}
