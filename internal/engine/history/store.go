package history

import (
	"fmt"
	"slices"
)

// DefaultMaxActions is the history cap used when none is configured.
const DefaultMaxActions = 1000

// store is the ordered, bounded action list and its cursor.
// Actions at index <= current are applied; the rest form the redo tail.
type store struct {
	actions    []*action
	current    int
	maxActions int
}

func newStore(maxActions int) store {
	if maxActions <= 0 {
		maxActions = DefaultMaxActions
	}
	return store{current: -1, maxActions: maxActions}
}

func (s *store) len() int { return len(s.actions) }

func (s *store) at(i int) *action {
	if i < 0 || i >= len(s.actions) {
		return nil
	}
	return s.actions[i]
}

func (s *store) last() *action { return s.at(len(s.actions) - 1) }

// atEnd reports whether the cursor sits on the newest entry.
func (s *store) atEnd() bool { return s.current == len(s.actions)-1 }

func (s *store) canUndo() bool { return s.current >= 0 }

func (s *store) canRedo() bool { return s.current < len(s.actions)-1 }

// truncateRedo discards every action after the cursor and returns them.
func (s *store) truncateRedo() []*action {
	if s.atEnd() {
		return nil
	}
	dropped := slices.Clone(s.actions[s.current+1:])
	s.actions = slices.Delete(s.actions, s.current+1, len(s.actions))
	return dropped
}

// push appends a new entry and moves the cursor onto it.
func (s *store) push(a *action) {
	s.actions = append(s.actions, a)
	s.current = len(s.actions) - 1
}

// shrinkTo evicts entries until at most limit remain. Oldest applied entries go
// first, shifting the cursor down, but the entry under the cursor is kept.
// Any remaining excess comes off the far end of the redo tail.
func (s *store) shrinkTo(limit int) []*action {
	if limit < 1 {
		limit = 1
	}

	var dropped []*action
	for len(s.actions) > limit && s.current > 0 {
		dropped = append(dropped, s.actions[0])
		s.actions = slices.Delete(s.actions, 0, 1)
		s.current--
	}
	for len(s.actions) > limit {
		n := len(s.actions) - 1
		dropped = append(dropped, s.actions[n])
		s.actions = slices.Delete(s.actions, n, n+1)
	}
	return dropped
}

// evictOverflow enforces the configured cap.
func (s *store) evictOverflow() []*action {
	return s.shrinkTo(s.maxActions)
}

// clear empties the store and returns what it held.
func (s *store) clear() []*action {
	dropped := s.actions
	s.actions = nil
	s.current = -1
	return dropped
}

// check validates the cursor invariant.
func (s *store) check() error {
	if s.current < -1 || s.current > len(s.actions)-1 {
		return fmt.Errorf("%w: current index %d outside [-1, %d]", ErrInvariant, s.current, len(s.actions)-1)
	}
	if len(s.actions) > s.maxActions {
		return fmt.Errorf("%w: %d actions exceed cap %d", ErrInvariant, len(s.actions), s.maxActions)
	}
	return nil
}
