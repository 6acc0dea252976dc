package quartz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registryWith(t *testing.T, n int) (*componentRegistry, []ComponentID) {
	t.Helper()
	r := newComponentRegistry()
	ids := make([]ComponentID, 0, n)
	register := []func() ComponentID{
		func() ComponentID { return registerComponent[compA](&r) },
		func() ComponentID { return registerComponent[compB](&r) },
		func() ComponentID { return registerComponent[compC](&r) },
		func() ComponentID { return registerComponent[fileHandle](&r) },
	}
	require.LessOrEqual(t, n, len(register))
	for i := 0; i < n; i++ {
		ids = append(ids, register[i]())
	}
	return &r, ids
}

func TestColumnInitializeAndGet(t *testing.T) {
	r, ids := registryWith(t, 2)
	info, _ := r.info(ids[1])
	col := newColumn(info, 2)

	v0 := compB{X: 1, Y: 2, Z: 3}
	v1 := compB{X: 3, Y: 2, Z: 1}
	col.initializeUnchecked(0, takeOwnership(&v0))
	col.initializeUnchecked(1, takeOwnership(&v1))

	assert.Equal(t, 2, col.len)
	assert.Equal(t, compB{X: 1, Y: 2, Z: 3}, *deref[compB](col.get(0)))
	assert.Equal(t, compB{X: 3, Y: 2, Z: 1}, *deref[compB](col.get(1)))
}

func TestColumnGetMutWritesThrough(t *testing.T) {
	r, ids := registryWith(t, 1)
	info, _ := r.info(ids[0])
	col := newColumn(info, 1)

	v := compA{V: 10}
	col.initializeUnchecked(0, takeOwnership(&v))
	derefMut[compA](col.getMut(0)).V = 99

	assert.Equal(t, uint32(99), deref[compA](col.get(0)).V)
}

func TestColumnGrowthPreservesContents(t *testing.T) {
	r, ids := registryWith(t, 1)
	info, _ := r.info(ids[0])
	col := newColumn(info, 0)

	for i := 0; i < 100; i++ {
		col.reserve(i + 1)
		v := compA{V: uint32(i)}
		col.initializeUnchecked(i, takeOwnership(&v))
	}

	require.GreaterOrEqual(t, col.cap, 100)
	for i := 0; i < 100; i++ {
		assert.Equal(t, uint32(i), deref[compA](col.get(i)).V)
	}
}

func TestColumnCapacityMonotonic(t *testing.T) {
	r, ids := registryWith(t, 1)
	info, _ := r.info(ids[0])
	col := newColumn(info, 8)

	col.reserve(4)
	assert.Equal(t, 8, col.cap)
	col.reserve(9)
	assert.GreaterOrEqual(t, col.cap, 9)
}

func TestColumnSwapRemoveMiddle(t *testing.T) {
	r, ids := registryWith(t, 1)
	info, _ := r.info(ids[0])
	col := newColumn(info, 3)
	for i := 0; i < 3; i++ {
		v := compA{V: uint32(i)}
		col.initializeUnchecked(i, takeOwnership(&v))
	}

	col.swapRemove(0)

	// The last row's value relocated into the vacated row.
	assert.Equal(t, 2, col.len)
	assert.Equal(t, uint32(2), deref[compA](col.get(0)).V)
	assert.Equal(t, uint32(1), deref[compA](col.get(1)).V)
}

func TestColumnSwapRemoveLast(t *testing.T) {
	r, ids := registryWith(t, 1)
	info, _ := r.info(ids[0])
	col := newColumn(info, 2)
	for i := 0; i < 2; i++ {
		v := compA{V: uint32(i)}
		col.initializeUnchecked(i, takeOwnership(&v))
	}

	col.swapRemove(1)
	assert.Equal(t, 1, col.len)
	assert.Equal(t, uint32(0), deref[compA](col.get(0)).V)
}

func TestColumnDisposesExactlyOnce(t *testing.T) {
	r := newComponentRegistry()
	id := registerComponent[fileHandle](&r)
	info, _ := r.info(id)
	col := newColumn(info, 3)
	for i := 0; i < 3; i++ {
		h := fileHandle{fd: i}
		col.initializeUnchecked(i, takeOwnership(&h))
	}

	before := fileHandleDisposed
	col.swapRemove(1)
	assert.Equal(t, before+1, fileHandleDisposed)

	col.release()
	assert.Equal(t, before+3, fileHandleDisposed)
	assert.Equal(t, 0, col.len)
	assert.Nil(t, col.buf)
}

func TestColumnZeroSizedNeverAllocates(t *testing.T) {
	r := newComponentRegistry()
	id := registerComponent[compC](&r)
	info, _ := r.info(id)

	col := newColumn(info, 128)
	assert.Nil(t, col.buf)

	v := compC{}
	col.initializeUnchecked(0, takeOwnership(&v))
	assert.Equal(t, 1, col.len)
	assert.NotNil(t, deref[compC](col.get(0)))

	col.reserve(4096)
	assert.Nil(t, col.buf)
}

func TestColumnRowOutOfBoundsPanics(t *testing.T) {
	r, ids := registryWith(t, 1)
	info, _ := r.info(ids[0])
	col := newColumn(info, 1)

	require.Panics(t, func() { col.get(0) })
	require.Panics(t, func() { col.swapRemove(0) })
}

func TestTableAllocateKeepsColumnsAligned(t *testing.T) {
	r, ids := registryWith(t, 2)
	tbl := newTable(ids, r)

	for i := 0; i < 3; i++ {
		e := Entity{ID: uint32(i), Version: 0}
		row := tbl.allocate(e)
		require.Equal(t, i, row)
		a := compA{V: uint32(i)}
		b := compB{X: float32(i)}
		tbl.column(ids[0]).initializeUnchecked(row, takeOwnership(&a))
		tbl.column(ids[1]).initializeUnchecked(row, takeOwnership(&b))
	}

	assert.Equal(t, 3, tbl.len())
	for _, id := range ids {
		assert.Equal(t, 3, tbl.column(id).len)
	}
	assert.Equal(t, uint32(1), deref[compA](tbl.column(ids[0]).get(1)).V)
}

func TestTableSwapRemoveReportsMovedEntity(t *testing.T) {
	r, ids := registryWith(t, 1)
	tbl := newTable(ids[:1], r)
	for i := 0; i < 3; i++ {
		row := tbl.allocate(Entity{ID: uint32(i)})
		a := compA{V: uint32(i * 10)}
		tbl.column(ids[0]).initializeUnchecked(row, takeOwnership(&a))
	}

	moved, ok := tbl.swapRemove(0)
	require.True(t, ok)
	assert.Equal(t, uint32(2), moved.ID, "last entity should fill the vacated row")
	assert.Equal(t, uint32(20), deref[compA](tbl.column(ids[0]).get(0)).V)

	// Removing the last row moves nobody.
	_, ok = tbl.swapRemove(1)
	assert.False(t, ok)
	assert.Equal(t, 1, tbl.len())
}

func TestTableMissingColumnPanics(t *testing.T) {
	r, ids := registryWith(t, 2)
	tbl := newTable(ids[:1], r)

	require.Panics(t, func() { tbl.column(ids[1]) })
	_, ok := tbl.getColumn(ids[1])
	assert.False(t, ok)
}

func TestTablesCanonicalizeComponentSets(t *testing.T) {
	r, ids := registryWith(t, 3)
	ts := newTables()

	t1 := ts.getIDOrInsert(ids[:1], r)
	t2 := ts.getIDOrInsert(ids[:1], r)
	assert.Equal(t, t1, t2)

	t3 := ts.getIDOrInsert(ids[:2], r)
	assert.NotEqual(t, t1, t3)
	assert.Len(t, ts.tables, 2)
	assert.Len(t, ts.index, 2)
}
