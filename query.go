package quartz

import (
	"reflect"
	"unsafe"
)

// queryState is the arity-independent half of every query: the resolved list
// of matching tables and the cursor over them. Iteration advances rows within
// a table, then tables, visiting tables in ascending ID order and rows in
// ascending order within each, so results are deterministic as long as no
// structural mutation happens mid-iteration.
type queryState struct {
	world    *World
	required []ComponentID // sorted; resolution key
	tables   []tableID
	entities []Entity
	tableIdx int
	rowIdx   int
	rowCount int
	seen     uint32 // archetype registry version at last resolve
	resolved bool
	ok       bool // every requested type is registered
}

func newQueryState(w *World, required []ComponentID, ok bool) queryState {
	return queryState{
		world:    w,
		required: required,
		ok:       ok,
	}
}

// refresh re-resolves the match list if archetypes were created since the
// last resolve. A query over an unregistered type never matches.
func (s *queryState) refresh() {
	if !s.ok {
		return
	}
	if s.resolved && s.seen == s.world.archetypes.version {
		return
	}
	_, s.tables = s.world.archetypes.queryArchetypes(s.required)
	s.seen = s.world.archetypes.version
	s.resolved = true
}

// rewind puts the cursor back before the first table.
func (s *queryState) rewind() {
	s.tableIdx = -1
	s.rowIdx = -1
	s.rowCount = 0
	s.entities = nil
}

// nextTable advances to the next non-empty matching table and positions the
// cursor on its first row. Returns nil once the last table is exhausted.
func (s *queryState) nextTable() *table {
	for {
		s.tableIdx++
		if s.tableIdx >= len(s.tables) {
			return nil
		}
		t := s.world.tables.get(s.tables[s.tableIdx])
		if t.len() == 0 {
			continue
		}
		s.entities = t.entities
		s.rowCount = t.len()
		s.rowIdx = 0
		return t
	}
}

// Entity returns the entity at the cursor. Only valid after Next returned
// true.
func (s *queryState) Entity() Entity {
	return s.entities[s.rowIdx]
}

// sortedRequired returns the canonical resolution key for a set of IDs.
func sortedRequired(ids ...ComponentID) []ComponentID {
	out := make([]ComponentID, len(ids))
	copy(out, ids)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// Query iterates read-only over every live entity bearing component A,
// yielding each exactly once in ascending table-then-row order.
//
//	q := quartz.NewQuery[Position](world)
//	for q.Next() {
//	    pos := q.Get()
//	    ...
//	}
//
// Spawning or despawning while an iteration is in progress invalidates it;
// call Reset to start over after mutating.
type Query[A any] struct {
	queryState
	base   unsafe.Pointer
	stride uintptr
	id     ComponentID
}

// NewQuery creates a query for entities with component A. If A was never
// registered the query matches nothing.
func NewQuery[A any](w *World) *Query[A] {
	q := &Query[A]{}
	id, ok := w.components.idFor(reflect.TypeFor[A]())
	if ok {
		q.queryState = newQueryState(w, []ComponentID{id}, true)
		q.id = id
		info, _ := w.components.info(id)
		q.stride = info.size
	} else {
		q.queryState = newQueryState(w, nil, false)
	}
	q.Reset()
	return q
}

// Reset rewinds the query, picking up archetypes created since it last
// resolved.
func (q *Query[A]) Reset() {
	q.refresh()
	q.rewind()
}

// Next advances to the next matching entity, returning false when the
// iteration is exhausted.
func (q *Query[A]) Next() bool {
	q.rowIdx++
	if q.rowIdx < q.rowCount {
		return true
	}
	t := q.nextTable()
	if t == nil {
		return false
	}
	q.base = t.column(q.id).data
	return true
}

// Get returns the component for the current entity. Only valid after Next
// returned true, and only until the next structural mutation.
func (q *Query[A]) Get() *A {
	return (*A)(unsafe.Pointer(uintptr(q.base) + uintptr(q.rowIdx)*q.stride))
}

// Query2 iterates read-only over entities bearing both A and B.
type Query2[A, B any] struct {
	queryState
	bases   [2]unsafe.Pointer
	strides [2]uintptr
	ids     [2]ComponentID
}

// NewQuery2 creates a query for entities with components A and B. Requesting
// the same type twice panics.
func NewQuery2[A, B any](w *World) *Query2[A, B] {
	q := &Query2[A, B]{}
	idA, okA := w.components.idFor(reflect.TypeFor[A]())
	idB, okB := w.components.idFor(reflect.TypeFor[B]())
	if okA && okB {
		if idA == idB {
			panic("quartz: duplicate component types in Query2")
		}
		q.queryState = newQueryState(w, sortedRequired(idA, idB), true)
		q.ids = [2]ComponentID{idA, idB}
		q.strides = [2]uintptr{w.components.infos[idA].size, w.components.infos[idB].size}
	} else {
		q.queryState = newQueryState(w, nil, false)
	}
	q.Reset()
	return q
}

func (q *Query2[A, B]) Reset() {
	q.refresh()
	q.rewind()
}

func (q *Query2[A, B]) Next() bool {
	q.rowIdx++
	if q.rowIdx < q.rowCount {
		return true
	}
	t := q.nextTable()
	if t == nil {
		return false
	}
	for i := range q.ids {
		q.bases[i] = t.column(q.ids[i]).data
	}
	return true
}

// Get returns both components for the current entity.
func (q *Query2[A, B]) Get() (*A, *B) {
	i := uintptr(q.rowIdx)
	return (*A)(unsafe.Pointer(uintptr(q.bases[0]) + i*q.strides[0])),
		(*B)(unsafe.Pointer(uintptr(q.bases[1]) + i*q.strides[1]))
}

// Query3 iterates read-only over entities bearing A, B and C.
type Query3[A, B, C any] struct {
	queryState
	bases   [3]unsafe.Pointer
	strides [3]uintptr
	ids     [3]ComponentID
}

func NewQuery3[A, B, C any](w *World) *Query3[A, B, C] {
	q := &Query3[A, B, C]{}
	idA, okA := w.components.idFor(reflect.TypeFor[A]())
	idB, okB := w.components.idFor(reflect.TypeFor[B]())
	idC, okC := w.components.idFor(reflect.TypeFor[C]())
	if okA && okB && okC {
		if idA == idB || idA == idC || idB == idC {
			panic("quartz: duplicate component types in Query3")
		}
		q.queryState = newQueryState(w, sortedRequired(idA, idB, idC), true)
		q.ids = [3]ComponentID{idA, idB, idC}
		q.strides = [3]uintptr{
			w.components.infos[idA].size,
			w.components.infos[idB].size,
			w.components.infos[idC].size,
		}
	} else {
		q.queryState = newQueryState(w, nil, false)
	}
	q.Reset()
	return q
}

func (q *Query3[A, B, C]) Reset() {
	q.refresh()
	q.rewind()
}

func (q *Query3[A, B, C]) Next() bool {
	q.rowIdx++
	if q.rowIdx < q.rowCount {
		return true
	}
	t := q.nextTable()
	if t == nil {
		return false
	}
	for i := range q.ids {
		q.bases[i] = t.column(q.ids[i]).data
	}
	return true
}

func (q *Query3[A, B, C]) Get() (*A, *B, *C) {
	i := uintptr(q.rowIdx)
	return (*A)(unsafe.Pointer(uintptr(q.bases[0]) + i*q.strides[0])),
		(*B)(unsafe.Pointer(uintptr(q.bases[1]) + i*q.strides[1])),
		(*C)(unsafe.Pointer(uintptr(q.bases[2]) + i*q.strides[2]))
}

// Query4 iterates read-only over entities bearing A, B, C and D.
type Query4[A, B, C, D any] struct {
	queryState
	bases   [4]unsafe.Pointer
	strides [4]uintptr
	ids     [4]ComponentID
}

func NewQuery4[A, B, C, D any](w *World) *Query4[A, B, C, D] {
	q := &Query4[A, B, C, D]{}
	idA, okA := w.components.idFor(reflect.TypeFor[A]())
	idB, okB := w.components.idFor(reflect.TypeFor[B]())
	idC, okC := w.components.idFor(reflect.TypeFor[C]())
	idD, okD := w.components.idFor(reflect.TypeFor[D]())
	if okA && okB && okC && okD {
		ids := [4]ComponentID{idA, idB, idC, idD}
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				if ids[i] == ids[j] {
					panic("quartz: duplicate component types in Query4")
				}
			}
		}
		q.queryState = newQueryState(w, sortedRequired(idA, idB, idC, idD), true)
		q.ids = ids
		q.strides = [4]uintptr{
			w.components.infos[idA].size,
			w.components.infos[idB].size,
			w.components.infos[idC].size,
			w.components.infos[idD].size,
		}
	} else {
		q.queryState = newQueryState(w, nil, false)
	}
	q.Reset()
	return q
}

func (q *Query4[A, B, C, D]) Reset() {
	q.refresh()
	q.rewind()
}

func (q *Query4[A, B, C, D]) Next() bool {
	q.rowIdx++
	if q.rowIdx < q.rowCount {
		return true
	}
	t := q.nextTable()
	if t == nil {
		return false
	}
	for i := range q.ids {
		q.bases[i] = t.column(q.ids[i]).data
	}
	return true
}

func (q *Query4[A, B, C, D]) Get() (*A, *B, *C, *D) {
	i := uintptr(q.rowIdx)
	return (*A)(unsafe.Pointer(uintptr(q.bases[0]) + i*q.strides[0])),
		(*B)(unsafe.Pointer(uintptr(q.bases[1]) + i*q.strides[1])),
		(*C)(unsafe.Pointer(uintptr(q.bases[2]) + i*q.strides[2])),
		(*D)(unsafe.Pointer(uintptr(q.bases[3]) + i*q.strides[3]))
}

// QueryMut is the exclusive-access variant of Query: same resolution and
// iteration, but the world tracks the query's component set for as long as it
// is open and panics if another exclusive query overlapping it is created.
// The set releases when Next returns false or on Close.
type QueryMut[A any] struct {
	queryState
	base     unsafe.Pointer
	stride   uintptr
	id       ComponentID
	mask     mask256
	released bool
}

// NewQueryMut creates an exclusive query for entities with component A.
// Panics if an open exclusive query already covers A.
func NewQueryMut[A any](w *World) *QueryMut[A] {
	q := &QueryMut[A]{released: true}
	id, ok := w.components.idFor(reflect.TypeFor[A]())
	if ok {
		q.queryState = newQueryState(w, []ComponentID{id}, true)
		q.id = id
		info, _ := w.components.info(id)
		q.stride = info.size
		q.mask = maskOf(q.required)
	} else {
		q.queryState = newQueryState(w, nil, false)
	}
	q.Reset()
	return q
}

// Reset rewinds the query and re-acquires its exclusive component set if it
// was released.
func (q *QueryMut[A]) Reset() {
	q.refresh()
	q.rewind()
	q.acquire()
}

func (q *QueryMut[A]) acquire() {
	if q.ok && q.released {
		q.world.acquireExclusive(q.mask)
		q.released = false
	}
}

// Close releases the query's exclusive component set early. Safe to call
// multiple times.
func (q *QueryMut[A]) Close() {
	if !q.released {
		q.world.releaseExclusive(q.mask)
		q.released = true
	}
}

func (q *QueryMut[A]) Next() bool {
	q.rowIdx++
	if q.rowIdx < q.rowCount {
		return true
	}
	t := q.nextTable()
	if t == nil {
		q.Close()
		return false
	}
	q.base = t.column(q.id).data
	return true
}

// Get returns exclusive access to the component for the current entity.
func (q *QueryMut[A]) Get() *A {
	return (*A)(unsafe.Pointer(uintptr(q.base) + uintptr(q.rowIdx)*q.stride))
}

// QueryMut2 is the exclusive-access variant of Query2.
type QueryMut2[A, B any] struct {
	queryState
	bases    [2]unsafe.Pointer
	strides  [2]uintptr
	ids      [2]ComponentID
	mask     mask256
	released bool
}

// NewQueryMut2 creates an exclusive query for entities with components A and
// B. Panics if an open exclusive query overlaps {A, B}.
func NewQueryMut2[A, B any](w *World) *QueryMut2[A, B] {
	q := &QueryMut2[A, B]{released: true}
	idA, okA := w.components.idFor(reflect.TypeFor[A]())
	idB, okB := w.components.idFor(reflect.TypeFor[B]())
	if okA && okB {
		if idA == idB {
			panic("quartz: duplicate component types in QueryMut2")
		}
		q.queryState = newQueryState(w, sortedRequired(idA, idB), true)
		q.ids = [2]ComponentID{idA, idB}
		q.strides = [2]uintptr{w.components.infos[idA].size, w.components.infos[idB].size}
		q.mask = maskOf(q.required)
	} else {
		q.queryState = newQueryState(w, nil, false)
	}
	q.Reset()
	return q
}

func (q *QueryMut2[A, B]) Reset() {
	q.refresh()
	q.rewind()
	if q.ok && q.released {
		q.world.acquireExclusive(q.mask)
		q.released = false
	}
}

// Close releases the query's exclusive component set early. Safe to call
// multiple times.
func (q *QueryMut2[A, B]) Close() {
	if !q.released {
		q.world.releaseExclusive(q.mask)
		q.released = true
	}
}

func (q *QueryMut2[A, B]) Next() bool {
	q.rowIdx++
	if q.rowIdx < q.rowCount {
		return true
	}
	t := q.nextTable()
	if t == nil {
		q.Close()
		return false
	}
	for i := range q.ids {
		q.bases[i] = t.column(q.ids[i]).data
	}
	return true
}

// Get returns exclusive access to both components for the current entity.
func (q *QueryMut2[A, B]) Get() (*A, *B) {
	i := uintptr(q.rowIdx)
	return (*A)(unsafe.Pointer(uintptr(q.bases[0]) + i*q.strides[0])),
		(*B)(unsafe.Pointer(uintptr(q.bases[1]) + i*q.strides[1]))
}
