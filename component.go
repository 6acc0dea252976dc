package quartz

import (
	"fmt"
	"reflect"
	"unsafe"
)

// ComponentID is the dense identifier of a registered component type. IDs are
// assigned in registration order starting from 0 and stay stable for the
// lifetime of the registry.
type ComponentID uint32

// maxComponentTypes is the hard cap on distinct component types per world,
// fixed by the mask width.
const maxComponentTypes = maskWords * bitsPerWord

// Disposer is implemented by component types that hold resources needing
// explicit release. When a *T implements Disposer, registration captures a
// type-erased destructor that the storage layer invokes exactly once for
// every stored value that dies (despawn or world teardown).
type Disposer interface {
	Dispose()
}

// componentInfo is the type-erasure descriptor for one registered component
// type: everything the storage layer needs to lay out, move, and destroy
// values without knowing their static type.
type componentInfo struct {
	drop  func(unsafe.Pointer)
	name  string // diagnostic only
	size  uintptr
	align uintptr
	id    ComponentID
}

type componentRegistry struct {
	infos   []componentInfo
	indices map[reflect.Type]ComponentID
}

func newComponentRegistry() componentRegistry {
	return componentRegistry{
		indices: make(map[reflect.Type]ComponentID, 16),
	}
}

// registerComponent assigns T a dense ID, recording its layout and, when *T
// implements Disposer, its destructor. Registration is the only place T is
// statically known, so this is the only place the destructor can be bound.
// Idempotent keyed by type identity.
func registerComponent[T any](r *componentRegistry) ComponentID {
	t := reflect.TypeFor[T]()
	if id, ok := r.indices[t]; ok {
		return id
	}
	if len(r.infos) >= maxComponentTypes {
		panic(fmt.Sprintf("quartz: cannot register component %s: maximum number of component types (%d) reached", t, maxComponentTypes))
	}
	var drop func(unsafe.Pointer)
	if _, ok := any((*T)(nil)).(Disposer); ok {
		drop = func(p unsafe.Pointer) {
			any((*T)(p)).(Disposer).Dispose()
		}
	}
	id := ComponentID(len(r.infos))
	r.infos = append(r.infos, componentInfo{
		id:    id,
		name:  t.String(),
		size:  t.Size(),
		align: uintptr(t.Align()),
		drop:  drop,
	})
	r.indices[t] = id
	return id
}

// idFor returns the ID registered for the given type, if any.
func (r *componentRegistry) idFor(t reflect.Type) (ComponentID, bool) {
	id, ok := r.indices[t]
	return id, ok
}

// info returns the descriptor for id, or false if no such component exists.
func (r *componentRegistry) info(id ComponentID) (*componentInfo, bool) {
	if int(id) >= len(r.infos) {
		return nil, false
	}
	return &r.infos[id], true
}

// ids returns all registered component IDs in registration order.
func (r *componentRegistry) ids() []ComponentID {
	out := make([]ComponentID, len(r.infos))
	for i := range r.infos {
		out[i] = r.infos[i].id
	}
	return out
}

func (r *componentRegistry) len() int {
	return len(r.infos)
}
