package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storeWith(limit int, names ...string) store {
	s := newStore(limit)
	for _, n := range names {
		s.actions = append(s.actions, newAction(n, MergeDisable))
	}
	s.current = len(s.actions) - 1
	return s
}

func storeNames(s store) []string {
	out := make([]string, len(s.actions))
	for i, a := range s.actions {
		out[i] = a.name
	}
	return out
}

func actionNames(as []*action) []string {
	out := make([]string, len(as))
	for i, a := range as {
		out[i] = a.name
	}
	return out
}

func TestStoreTruncateRedo(t *testing.T) {
	s := storeWith(10, "a", "b", "c", "d")
	s.current = 1

	dropped := s.truncateRedo()
	assert.Equal(t, []string{"c", "d"}, actionNames(dropped))
	assert.Equal(t, []string{"a", "b"}, storeNames(s))
	assert.True(t, s.atEnd())

	assert.Nil(t, s.truncateRedo())
}

func TestStoreTruncateEverythingUndone(t *testing.T) {
	s := storeWith(10, "a", "b")
	s.current = -1

	dropped := s.truncateRedo()
	assert.Len(t, dropped, 2)
	assert.Equal(t, 0, s.len())
	assert.Nil(t, s.last())
}

func TestStoreShrink(t *testing.T) {
	tests := []struct {
		name        string
		current     int
		limit       int
		wantNames   []string
		wantCurrent int
	}{
		{"cursor at end", 4, 3, []string{"c", "d", "e"}, 2},
		{"cursor in middle", 2, 3, []string{"c", "d", "e"}, 0},
		{"cursor at start", 0, 2, []string{"a", "b"}, 0},
		{"nothing applied", -1, 2, []string{"a", "b"}, -1},
		{"under limit", 4, 10, []string{"a", "b", "c", "d", "e"}, 4},
		{"limit below one", 4, 0, []string{"e"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := storeWith(10, "a", "b", "c", "d", "e")
			s.current = tt.current

			dropped := s.shrinkTo(tt.limit)
			assert.Equal(t, tt.wantNames, storeNames(s))
			assert.Equal(t, tt.wantCurrent, s.current)
			assert.Len(t, dropped, 5-len(tt.wantNames))
		})
	}
}

func TestStoreCheck(t *testing.T) {
	s := storeWith(2, "a", "b")
	require.NoError(t, s.check())

	s.current = 2
	assert.ErrorIs(t, s.check(), ErrInvariant)

	s.current = 1
	s.actions = append(s.actions, newAction("c", MergeDisable))
	assert.ErrorIs(t, s.check(), ErrInvariant)
}

func TestStoreClear(t *testing.T) {
	s := storeWith(10, "a", "b")

	dropped := s.clear()
	assert.Len(t, dropped, 2)
	assert.Equal(t, -1, s.current)
	assert.False(t, s.canUndo())
	assert.False(t, s.canRedo())
}

func TestNewStoreDefaultsCap(t *testing.T) {
	assert.Equal(t, DefaultMaxActions, newStore(0).maxActions)
	assert.Equal(t, 5, newStore(5).maxActions)
}
