package quartz

import "unsafe"

// The pointer wrappers below are the only way data crosses the type-erasure
// boundary. A ptr grants shared access to a stored value's bytes, a mutPtr
// grants exclusive access, and an owningPtr carries responsibility for the
// value itself: whoever holds it must either move the bytes into storage or
// dispose of the value, exactly once.
type ptr struct {
	p unsafe.Pointer
}

type mutPtr struct {
	p unsafe.Pointer
}

type owningPtr struct {
	p unsafe.Pointer
}

// takeOwnership moves the value behind v into an owning pointer. The caller
// must not touch *v afterwards; the value now lives wherever the owning
// pointer is written to.
func takeOwnership[T any](v *T) owningPtr {
	return owningPtr{p: unsafe.Pointer(v)}
}

// deref reinterprets the pointed-at bytes as a T. The caller is responsible
// for having matched the ComponentID of the storage this pointer came from
// against T's registered ID.
func deref[T any](p ptr) *T {
	return (*T)(p.p)
}

func derefMut[T any](p mutPtr) *T {
	return (*T)(p.p)
}

// memCopy copies size bytes from src to dst using the built-in copy.
func memCopy(dst, src unsafe.Pointer, size uintptr) {
	if size == 0 {
		return
	}
	copy(unsafe.Slice((*byte)(dst), size), unsafe.Slice((*byte)(src), size))
}
