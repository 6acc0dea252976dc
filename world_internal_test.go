package quartz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpawnDedupsStructuresAcrossArgumentOrder(t *testing.T) {
	w := NewWorld()

	e1 := Spawn2(w, compA{V: 1}, compB{X: 1})
	e2 := Spawn2(w, compB{X: 2}, compA{V: 2})

	assert.Len(t, w.archetypes.archetypes, 1)
	assert.Len(t, w.tables.tables, 1)

	loc1, _ := w.entities.get(e1)
	loc2, _ := w.entities.get(e2)
	assert.Equal(t, loc1.archetype, loc2.archetype)
	assert.Equal(t, loc1.table, loc2.table)

	// A different component set produces a distinct table and archetype.
	Spawn(w, compA{V: 3})
	assert.Len(t, w.archetypes.archetypes, 2)
	assert.Len(t, w.tables.tables, 2)
}

func TestDespawnRepairsMovedEntityLocation(t *testing.T) {
	w := NewWorld()
	e0 := Spawn(w, compA{V: 0})
	e1 := Spawn(w, compA{V: 1})
	e2 := Spawn(w, compA{V: 2})

	loc0, _ := w.entities.get(e0)
	require.Equal(t, 0, loc0.row)
	loc2, _ := w.entities.get(e2)
	require.Equal(t, 2, loc2.row)

	w.Despawn(e0)

	// e2's value was relocated into e0's vacated physical row and its
	// recorded location follows.
	loc2, ok := w.entities.get(e2)
	require.True(t, ok)
	assert.Equal(t, 0, loc2.row)

	loc1, _ := w.entities.get(e1)
	assert.Equal(t, 1, loc1.row)

	tbl := w.tables.get(loc2.table)
	assert.Equal(t, uint32(2), deref[compA](tbl.column(ComponentID(0)).get(0)).V)
	assert.Equal(t, 2, tbl.len())
}

func TestTableRowsMirrorArchetypeRecords(t *testing.T) {
	w := NewWorld()
	for i := 0; i < 5; i++ {
		Spawn(w, compA{V: uint32(i)})
	}

	arch := w.archetypes.get(0)
	tbl := w.tables.get(arch.tableID)
	require.Equal(t, tbl.len(), arch.len())
	for i, rec := range arch.entities {
		assert.Equal(t, tbl.entities[i], rec.entity)
		assert.Equal(t, i, rec.row)
	}
}

func TestClearKeepsStructuresEmptiesRows(t *testing.T) {
	w := NewWorld()
	Spawn(w, compA{V: 1})
	Spawn2(w, compA{V: 2}, compB{})

	w.Clear()

	assert.Equal(t, 0, w.Len())
	assert.Len(t, w.tables.tables, 2, "tables survive a clear")
	for _, tbl := range w.tables.tables {
		assert.Equal(t, 0, tbl.len())
	}

	// Spawning after a clear reuses the structures.
	Spawn(w, compA{V: 3})
	assert.Len(t, w.tables.tables, 2)
}
