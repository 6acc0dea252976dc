// Package quartz is an in-process, archetype-based entity-component store.
// Entities are generational handles over bundles of plain-data components;
// entities sharing an exact component set are grouped into an archetype and
// stored columnar in its backing table, giving cheap bulk iteration and O(1)
// point lookup.
//
// The store is single-threaded: the embedding application must serialize
// access, and must not spawn or despawn while a query iteration over the
// affected storage is in progress. Component values live in raw buffers the
// garbage collector does not scan, so component types must not contain Go
// pointers; types holding external resources can implement Disposer to be
// released when their entity dies.
package quartz

import (
	"fmt"
	"reflect"
)

// World is the composition root: the entity allocator, component registry,
// table storage and archetype index, orchestrated behind spawn, despawn,
// point access and queries.
type World struct {
	components componentRegistry
	tables     tables
	archetypes archetypes
	entities   entityAllocator
	exclusive  []mask256 // component sets of open exclusive queries
}

// NewWorld creates an empty world. Tables and archetypes are created lazily
// on first spawn of each distinct component set and live for the world's
// lifetime.
func NewWorld() *World {
	return &World{
		components: newComponentRegistry(),
		tables:     newTables(),
		archetypes: newArchetypes(),
		entities:   newEntityAllocator(),
	}
}

// Alive reports whether e refers to a live entity.
func (w *World) Alive(e Entity) bool {
	_, ok := w.entities.get(e)
	return ok
}

// Len returns the number of live entities.
func (w *World) Len() int {
	return w.entities.live
}

// ComponentIDs returns every registered component ID in registration order.
func (w *World) ComponentIDs() []ComponentID {
	return w.components.ids()
}

// Clear removes every entity, destroying stored values and recycling all
// handles, while keeping tables, archetypes and their buffers for reuse.
func (w *World) Clear() {
	for _, a := range w.archetypes.archetypes {
		a.entities = a.entities[:0]
	}
	for _, t := range w.tables.tables {
		t.clear()
	}
	w.entities.clear()
}

// Close releases all component storage, invoking outstanding destructors and
// dropping the column buffers. The world must not be used afterwards.
func (w *World) Close() {
	for _, a := range w.archetypes.archetypes {
		a.entities = nil
	}
	for _, t := range w.tables.tables {
		t.release()
	}
	w.entities.clear()
}

// Despawn releases all storage held by e. The handle becomes permanently
// stale; the entity that filled e's table row (if any) has its recorded
// location repaired. Despawning an unknown or stale handle is a no-op.
func (w *World) Despawn(e Entity) {
	loc, ok := w.entities.free(e)
	if !ok {
		return
	}
	arch := w.archetypes.get(loc.archetype)
	movedArch, okArch := arch.swapRemove(loc.row)
	tbl := w.tables.get(loc.table)
	movedTbl, okTbl := tbl.swapRemove(loc.row)
	if okArch != okTbl || (okTbl && movedArch != movedTbl) {
		panic(fmt.Sprintf("quartz: archetype %d and table %d disagree on row %d", loc.archetype, loc.table, loc.row))
	}
	if okTbl {
		w.entities.set(movedTbl, loc)
	}
}

// spawnSorted performs the allocator-committed spawn: the table row is
// created first (it needs the entity ID), the bundle's values are moved in,
// and only then does the handle go live.
func spawnSorted(w *World, ids []ComponentID, write func(t *table, row int)) Entity {
	return w.entities.alloc(func(e Entity) entityLocation {
		archID := w.archetypes.getIDOrInsert(ids, &w.tables, &w.components)
		arch := w.archetypes.get(archID)
		tbl := w.tables.get(arch.tableID)
		row := tbl.allocate(e)
		write(tbl, row)
		return arch.allocate(e, row)
	})
}

// Spawn creates an entity with the single component a, registering A on
// first use, and returns the fresh handle.
func Spawn[A any](w *World, a A) Entity {
	idA := registerComponent[A](&w.components)
	return spawnSorted(w, []ComponentID{idA}, func(t *table, row int) {
		t.column(idA).initializeUnchecked(row, takeOwnership(&a))
	})
}

// Spawn2 creates an entity with components a and b. The call-site order of
// the type parameters does not matter: bundles with the same component set
// land in the same archetype. Duplicate component types panic.
func Spawn2[A, B any](w *World, a A, b B) Entity {
	idA := registerComponent[A](&w.components)
	idB := registerComponent[B](&w.components)
	if idA == idB {
		panic("quartz: duplicate component types in Spawn2")
	}
	return spawnSorted(w, sortedRequired(idA, idB), func(t *table, row int) {
		t.column(idA).initializeUnchecked(row, takeOwnership(&a))
		t.column(idB).initializeUnchecked(row, takeOwnership(&b))
	})
}

// Spawn3 creates an entity with components a, b and c.
func Spawn3[A, B, C any](w *World, a A, b B, c C) Entity {
	idA := registerComponent[A](&w.components)
	idB := registerComponent[B](&w.components)
	idC := registerComponent[C](&w.components)
	if idA == idB || idA == idC || idB == idC {
		panic("quartz: duplicate component types in Spawn3")
	}
	return spawnSorted(w, sortedRequired(idA, idB, idC), func(t *table, row int) {
		t.column(idA).initializeUnchecked(row, takeOwnership(&a))
		t.column(idB).initializeUnchecked(row, takeOwnership(&b))
		t.column(idC).initializeUnchecked(row, takeOwnership(&c))
	})
}

// Spawn4 creates an entity with components a, b, c and d.
func Spawn4[A, B, C, D any](w *World, a A, b B, c C, d D) Entity {
	idA := registerComponent[A](&w.components)
	idB := registerComponent[B](&w.components)
	idC := registerComponent[C](&w.components)
	idD := registerComponent[D](&w.components)
	ids := [4]ComponentID{idA, idB, idC, idD}
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			if ids[i] == ids[j] {
				panic("quartz: duplicate component types in Spawn4")
			}
		}
	}
	return spawnSorted(w, sortedRequired(idA, idB, idC, idD), func(t *table, row int) {
		t.column(idA).initializeUnchecked(row, takeOwnership(&a))
		t.column(idB).initializeUnchecked(row, takeOwnership(&b))
		t.column(idC).initializeUnchecked(row, takeOwnership(&c))
		t.column(idD).initializeUnchecked(row, takeOwnership(&d))
	})
}

// locate resolves a handle and component type to the column cell holding the
// value. Absence of the entity, the component, or the registration all
// surface as false.
func locate[T any](w *World, e Entity) (*column, int, bool) {
	loc, ok := w.entities.get(e)
	if !ok {
		return nil, 0, false
	}
	id, ok := w.components.idFor(reflect.TypeFor[T]())
	if !ok {
		return nil, 0, false
	}
	if !w.archetypes.get(loc.archetype).contains(id) {
		return nil, 0, false
	}
	col, ok := w.tables.get(loc.table).getColumn(id)
	if !ok {
		panic(fmt.Sprintf("quartz: table %d missing column for component id %d", loc.table, id))
	}
	return col, loc.row, true
}

// Get returns read access to e's component of type T, or false if the handle
// is stale, the entity lacks T, or T was never registered. The pointer is
// valid only until the next structural mutation of e's table.
func Get[T any](w *World, e Entity) (*T, bool) {
	col, row, ok := locate[T](w, e)
	if !ok {
		return nil, false
	}
	return deref[T](col.get(row)), true
}

// GetMut returns exclusive access to e's component of type T, with the same
// absence semantics and pointer lifetime as Get.
func GetMut[T any](w *World, e Entity) (*T, bool) {
	col, row, ok := locate[T](w, e)
	if !ok {
		return nil, false
	}
	return derefMut[T](col.getMut(row)), true
}

// Has reports whether e is live and bears a component of type T.
func Has[T any](w *World, e Entity) bool {
	loc, ok := w.entities.get(e)
	if !ok {
		return false
	}
	id, ok := w.components.idFor(reflect.TypeFor[T]())
	if !ok {
		return false
	}
	return w.archetypes.get(loc.archetype).contains(id)
}

// ComponentIDOf returns the ID assigned to T, or false if T was never
// registered. Diagnostic use.
func ComponentIDOf[T any](w *World) (ComponentID, bool) {
	return w.components.idFor(reflect.TypeFor[T]())
}

// acquireExclusive records an exclusive query's component set, panicking if
// it overlaps a set already held by an open exclusive query.
func (w *World) acquireExclusive(m mask256) {
	for _, held := range w.exclusive {
		if held.intersects(m) {
			panic("quartz: overlapping exclusive queries")
		}
	}
	w.exclusive = append(w.exclusive, m)
}

func (w *World) releaseExclusive(m mask256) {
	for i, held := range w.exclusive {
		if held == m {
			w.exclusive[i] = w.exclusive[len(w.exclusive)-1]
			w.exclusive = w.exclusive[:len(w.exclusive)-1]
			return
		}
	}
}
