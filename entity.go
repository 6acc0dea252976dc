package quartz

import "fmt"

// Entity is the opaque handle identifying one logical record in a World. It
// pairs a recyclable slot index with a generation counter so that a handle
// kept across a despawn is detected as stale instead of resolving to whatever
// entity reuses the slot.
type Entity struct {
	ID      uint32
	Version uint32
}

// entityLocation is the composite pointer from a live entity to its physical
// storage. It always references a row within the current bounds of its table
// and archetype; when a sibling's swap-remove relocates a row, the surviving
// entity's location is repaired through entityAllocator.set.
type entityLocation struct {
	archetype archetypeID
	table     tableID
	row       int
}

// noFreeSlot terminates the intrusive free list.
const noFreeSlot = ^uint32(0)

// entitySlot is either occupied (loc valid) or free (nextFree valid). The
// generation increments only on the occupied-to-free transition, permanently
// invalidating every handle minted for the previous occupancy.
type entitySlot struct {
	loc        entityLocation
	generation uint32
	nextFree   uint32
	occupied   bool
}

// entityAllocator is a generational free-list allocator over a growable slot
// arena. External code only ever holds {index, version} handles, never a
// reference into the slot vector.
type entityAllocator struct {
	slots    []entitySlot
	freeHead uint32
	live     int
}

func newEntityAllocator() entityAllocator {
	return entityAllocator{freeHead: noFreeSlot}
}

// alloc reserves a slot, builds the candidate handle, and runs commit with it
// so the caller can perform the physical row allocation that needs to embed
// the entity ID. Only after commit returns is the slot marked occupied with
// the returned location: the row must exist before the entity does, and a
// panicking commit leaves the allocator untouched.
func (a *entityAllocator) alloc(commit func(Entity) entityLocation) Entity {
	if a.freeHead != noFreeSlot {
		idx := a.freeHead
		if int(idx) >= len(a.slots) || a.slots[idx].occupied {
			panic(fmt.Sprintf("quartz: corrupt entity free list (head %d)", idx))
		}
		e := Entity{ID: idx, Version: a.slots[idx].generation}
		loc := commit(e)
		slot := &a.slots[idx]
		a.freeHead = slot.nextFree
		slot.occupied = true
		slot.loc = loc
		a.live++
		return e
	}
	e := Entity{ID: uint32(len(a.slots)), Version: 0}
	loc := commit(e)
	a.slots = append(a.slots, entitySlot{
		loc:      loc,
		occupied: true,
		nextFree: noFreeSlot,
	})
	a.live++
	return e
}

// get resolves a handle to its location; false if the slot is free or the
// generations mismatch.
func (a *entityAllocator) get(e Entity) (entityLocation, bool) {
	if int(e.ID) >= len(a.slots) {
		return entityLocation{}, false
	}
	slot := &a.slots[e.ID]
	if !slot.occupied || slot.generation != e.Version {
		return entityLocation{}, false
	}
	return slot.loc, true
}

// set overwrites the stored location for a live handle; no-op on a stale one.
// Used to repair a surviving entity's location after a sibling's swap-remove.
func (a *entityAllocator) set(e Entity, loc entityLocation) {
	if int(e.ID) >= len(a.slots) {
		return
	}
	slot := &a.slots[e.ID]
	if !slot.occupied || slot.generation != e.Version {
		return
	}
	slot.loc = loc
}

// clear frees every occupied slot, bumping its generation, and rebuilds the
// free list over the whole arena.
func (a *entityAllocator) clear() {
	a.freeHead = noFreeSlot
	for i := len(a.slots) - 1; i >= 0; i-- {
		slot := &a.slots[i]
		if slot.occupied {
			slot.occupied = false
			slot.generation++
		}
		slot.nextFree = a.freeHead
		a.freeHead = uint32(i)
	}
	a.live = 0
}

// free releases a live handle, returning its prior location. The slot's
// generation bump makes the handle permanently stale before the slot joins
// the free list. Returns false on an already-stale or unknown handle.
func (a *entityAllocator) free(e Entity) (entityLocation, bool) {
	if int(e.ID) >= len(a.slots) {
		return entityLocation{}, false
	}
	slot := &a.slots[e.ID]
	if !slot.occupied || slot.generation != e.Version {
		return entityLocation{}, false
	}
	loc := slot.loc
	slot.occupied = false
	slot.generation++
	slot.nextFree = a.freeHead
	a.freeHead = e.ID
	a.live--
	return loc, true
}
