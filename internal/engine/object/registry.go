// Package object provides identity tracking for objects that recorded
// operations refer to.
//
// History never stores a direct pointer to an edited object. It stores a
// Handle, an index into the Registry arena plus the generation of the slot at
// registration time. When the object goes away the slot's generation is bumped
// and every outstanding handle to it stops resolving, so replaying an old
// operation simply finds nothing.
//
// Shared objects behave like reference-counted resources: an action can Hold
// one, keeping it resolvable until the action itself is dropped from history.
package object

import (
	"fmt"
	"sync"
)

// Handle is a weak, generation-checked reference to a registered object.
// The zero Handle never resolves.
type Handle struct {
	Index      uint32
	Generation uint32
}

// IsZero reports whether h is the zero handle.
func (h Handle) IsZero() bool { return h.Generation == 0 }

// String renders the handle as "#index:generation".
func (h Handle) String() string {
	if h.IsZero() {
		return "#nil"
	}
	return fmt.Sprintf("#%d:%d", h.Index, h.Generation)
}

// Resolver looks up the live object behind a handle.
type Resolver interface {
	Resolve(h Handle) (any, bool)
}

// Tracker is a Resolver that can also hand out strong references.
type Tracker interface {
	Resolver
	// Hold takes a strong reference to a live object.
	Hold(h Handle) (*Ref, bool)
	// IsShared reports whether h names a live reference-counted resource.
	IsShared(h Handle) bool
}

// Finalizer is implemented by objects that want to know when their slot is freed.
type Finalizer interface {
	Finalize()
}

type slot struct {
	obj        any
	generation uint32
	refs       int
	owned      bool
	shared     bool
	live       bool
}

// Registry is an arena of objects addressed by generation-checked handles.
// It is safe for concurrent use.
type Registry struct {
	mu    sync.Mutex
	slots []slot
	free  []uint32
	live  int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a plain object. Plain objects are never kept alive by
// history: Release or Destroy frees them immediately.
func (r *Registry) Register(obj any) Handle {
	return r.add(obj, false)
}

// RegisterShared adds a reference-counted resource. The caller owns one
// reference; the object is freed once it and every Ref taken by Hold are released.
func (r *Registry) RegisterShared(obj any) Handle {
	return r.add(obj, true)
}

func (r *Registry) add(obj any, shared bool) Handle {
	if obj == nil {
		panic("object: cannot register nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var idx uint32
	if n := len(r.free); n > 0 {
		idx = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		idx = uint32(len(r.slots))
		r.slots = append(r.slots, slot{})
	}

	s := &r.slots[idx]
	s.generation++
	if s.generation == 0 {
		// Generation 0 is reserved for the zero handle.
		s.generation = 1
	}
	s.obj = obj
	s.refs = 1
	s.owned = true
	s.shared = shared
	s.live = true
	r.live++

	return Handle{Index: idx, Generation: s.generation}
}

// lookup returns the live slot for h. Caller must hold r.mu.
func (r *Registry) lookup(h Handle) *slot {
	if h.IsZero() || int(h.Index) >= len(r.slots) {
		return nil
	}
	s := &r.slots[h.Index]
	if !s.live || s.generation != h.Generation {
		return nil
	}
	return s
}

// Resolve returns the object behind h if it is still live.
func (r *Registry) Resolve(h Handle) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.lookup(h)
	if s == nil {
		return nil, false
	}
	return s.obj, true
}

// Alive reports whether h still resolves.
func (r *Registry) Alive(h Handle) bool {
	_, ok := r.Resolve(h)
	return ok
}

// IsShared reports whether h names a live shared resource.
func (r *Registry) IsShared(h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.lookup(h)
	return s != nil && s.shared
}

// Hold takes a strong reference to a live object. For shared resources the
// reference keeps the object resolvable after its owner releases it. For
// plain objects the reference only pins the Go value.
func (r *Registry) Hold(h Handle) (*Ref, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.lookup(h)
	if s == nil {
		return nil, false
	}
	s.refs++
	return &Ref{registry: r, handle: h, obj: s.obj}, true
}

// Release drops the owner's reference to h. Plain objects are freed at
// once; shared resources are freed when no Ref remains. Releasing a stale
// handle, or releasing twice, is a no-op.
func (r *Registry) Release(h Handle) {
	r.mu.Lock()
	s := r.lookup(h)
	if s == nil || !s.owned {
		r.mu.Unlock()
		return
	}

	s.owned = false
	s.refs--
	if s.shared && s.refs > 0 {
		r.mu.Unlock()
		return
	}
	obj := r.freeLocked(h.Index)
	r.mu.Unlock()

	finalize(obj)
}

// unref drops a reference taken by Hold.
func (r *Registry) unref(h Handle) {
	r.mu.Lock()
	s := r.lookup(h)
	if s == nil {
		r.mu.Unlock()
		return
	}

	s.refs--
	if s.refs > 0 {
		r.mu.Unlock()
		return
	}
	obj := r.freeLocked(h.Index)
	r.mu.Unlock()

	finalize(obj)
}

// Destroy frees h regardless of outstanding references. Refs taken earlier
// become no-ops.
func (r *Registry) Destroy(h Handle) bool {
	r.mu.Lock()
	if r.lookup(h) == nil {
		r.mu.Unlock()
		return false
	}
	obj := r.freeLocked(h.Index)
	r.mu.Unlock()

	finalize(obj)
	return true
}

// freeLocked clears a slot and returns the object it held. Caller must hold r.mu.
func (r *Registry) freeLocked(idx uint32) any {
	s := &r.slots[idx]
	obj := s.obj
	s.obj = nil
	s.refs = 0
	s.owned = false
	s.shared = false
	s.live = false
	r.free = append(r.free, idx)
	r.live--
	return obj
}

// Refs returns the reference count of h, or 0 if stale.
func (r *Registry) Refs(h Handle) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s := r.lookup(h); s != nil {
		return s.refs
	}
	return 0
}

// Len returns the number of live objects.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.live
}

func finalize(obj any) {
	if f, ok := obj.(Finalizer); ok {
		f.Finalize()
	}
}

// Ref is a strong reference obtained from Registry.Hold.
type Ref struct {
	registry *Registry
	handle   Handle
	obj      any
	once     sync.Once
}

// Handle returns the referenced handle.
func (ref *Ref) Handle() Handle { return ref.handle }

// Object returns the referenced Go value.
func (ref *Ref) Object() any { return ref.obj }

// Release drops the reference. Safe to call multiple times and on nil.
func (ref *Ref) Release() {
	if ref == nil {
		return
	}
	ref.once.Do(func() {
		ref.registry.unref(ref.handle)
		ref.obj = nil
	})
}
