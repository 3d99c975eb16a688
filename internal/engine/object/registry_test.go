package object

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type node struct {
	name      string
	finalized bool
}

func (n *node) Finalize() { n.finalized = true }

func TestRegisterResolve(t *testing.T) {
	r := NewRegistry()
	n := &node{name: "a"}

	h := r.Register(n)
	require.False(t, h.IsZero())

	got, ok := r.Resolve(h)
	require.True(t, ok)
	assert.Same(t, n, got)
	assert.Equal(t, 1, r.Len())
}

func TestZeroHandleNeverResolves(t *testing.T) {
	r := NewRegistry()
	r.Register(&node{})

	_, ok := r.Resolve(Handle{})
	assert.False(t, ok)
	assert.Equal(t, "#nil", Handle{}.String())
}

func TestStaleHandleAfterReuse(t *testing.T) {
	r := NewRegistry()
	first := &node{name: "first"}
	h1 := r.Register(first)

	require.True(t, r.Destroy(h1))
	assert.True(t, first.finalized)

	h2 := r.Register(&node{name: "second"})
	assert.Equal(t, h1.Index, h2.Index, "slot should be reused")
	assert.NotEqual(t, h1.Generation, h2.Generation)

	_, ok := r.Resolve(h1)
	assert.False(t, ok, "old handle must not resolve to the new occupant")

	obj, ok := r.Resolve(h2)
	require.True(t, ok)
	assert.Equal(t, "second", obj.(*node).name)
}

func TestReleasePlainObjectIgnoresHolds(t *testing.T) {
	r := NewRegistry()
	h := r.Register(&node{})

	ref, ok := r.Hold(h)
	require.True(t, ok)

	r.Release(h)
	assert.False(t, r.Alive(h), "plain objects die with their owner")

	// Releasing the history reference afterwards is harmless.
	ref.Release()
	assert.Equal(t, 0, r.Len())
}

func TestSharedResourceKeptAliveByRef(t *testing.T) {
	r := NewRegistry()
	res := &node{name: "texture"}
	h := r.RegisterShared(res)
	assert.True(t, r.IsShared(h))

	ref, ok := r.Hold(h)
	require.True(t, ok)
	assert.Equal(t, 2, r.Refs(h))

	r.Release(h)
	assert.True(t, r.Alive(h), "ref should keep shared resource alive")
	assert.False(t, res.finalized)

	// Owner release is idempotent.
	r.Release(h)
	assert.True(t, r.Alive(h))

	ref.Release()
	assert.False(t, r.Alive(h))
	assert.True(t, res.finalized)

	ref.Release()
	assert.Equal(t, 0, r.Len())
}

func TestDestroyInvalidatesRefs(t *testing.T) {
	r := NewRegistry()
	h := r.RegisterShared(&node{})
	ref, _ := r.Hold(h)

	require.True(t, r.Destroy(h))
	assert.False(t, r.Destroy(h))
	assert.False(t, r.Alive(h))

	h2 := r.RegisterShared(&node{})
	ref.Release()
	assert.True(t, r.Alive(h2), "stale ref must not touch the slot's new occupant")
}

func TestHoldStaleHandle(t *testing.T) {
	r := NewRegistry()
	h := r.Register(&node{})
	r.Destroy(h)

	ref, ok := r.Hold(h)
	assert.False(t, ok)
	assert.Nil(t, ref)

	var nilRef *Ref
	nilRef.Release()
}

func TestRegisterNilPanics(t *testing.T) {
	r := NewRegistry()
	assert.Panics(t, func() { r.Register(nil) })
}
