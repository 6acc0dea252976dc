package quartz

import "fmt"

// tableID identifies one table within a world's table registry.
type tableID uint32

// table is the physical columnar storage shared by every entity with one
// exact component set: one column per component ID in the canonical set plus
// a parallel row-to-entity list. All columns and the entity list share a
// single logical length.
type table struct {
	columns  map[ComponentID]*column
	entities []Entity
}

func newTable(ids []ComponentID, reg *componentRegistry) *table {
	t := &table{
		columns: make(map[ComponentID]*column, len(ids)),
	}
	for _, id := range ids {
		info, ok := reg.info(id)
		if !ok {
			panic(fmt.Sprintf("quartz: table created with unregistered component id %d", id))
		}
		t.columns[id] = newColumn(info, 0)
	}
	return t
}

func (t *table) len() int {
	return len(t.entities)
}

// column returns the column backing the given component ID. Every component
// in the table's canonical set has a column; a miss is a corrupted table.
func (t *table) column(id ComponentID) *column {
	c, ok := t.columns[id]
	if !ok {
		panic(fmt.Sprintf("quartz: table missing column for component id %d", id))
	}
	return c
}

// getColumn is the non-fatal lookup used by accessors that treat a missing
// component as absence.
func (t *table) getColumn(id ComponentID) (*column, bool) {
	c, ok := t.columns[id]
	return c, ok
}

// allocate reserves one more row uniformly across all columns and the entity
// list and returns the new row index. The columns' logical lengths catch up
// as the caller initializes each one; until then only capacity is guaranteed.
func (t *table) allocate(e Entity) int {
	row := len(t.entities)
	for _, c := range t.columns {
		c.reserve(row + 1)
	}
	t.entities = append(t.entities, e)
	return row
}

// swapRemove removes row from every column and from the entity list
// identically, keeping them row-aligned. It returns the entity that now
// occupies the vacated row, or false if the removed row was the last one;
// the caller must repair that entity's recorded location.
func (t *table) swapRemove(row int) (Entity, bool) {
	last := len(t.entities) - 1
	if row > last {
		panic("quartz: table row out of bounds")
	}
	for _, c := range t.columns {
		c.swapRemove(row)
	}
	moved := t.entities[last]
	t.entities[row] = moved
	t.entities = t.entities[:last]
	if row == last {
		return Entity{}, false
	}
	return moved, true
}

// clear destroys every stored value but keeps the columns' buffers.
func (t *table) clear() {
	for _, c := range t.columns {
		c.clear()
	}
	t.entities = t.entities[:0]
}

// release drops every column, destroying all still-stored values.
func (t *table) release() {
	for _, c := range t.columns {
		c.release()
	}
	t.entities = nil
}

// tables canonicalizes component sets to table IDs. Passing an unsorted or
// duplicate-containing ID sequence is a caller contract violation: the mask
// key would still dedup, but the per-call column order would not be
// canonical.
type tables struct {
	tables []*table
	index  map[mask256]tableID
}

func newTables() tables {
	return tables{
		index: make(map[mask256]tableID),
	}
}

// getIDOrInsert returns the table for the given sorted component-ID set,
// creating it on first use. Idempotent.
func (ts *tables) getIDOrInsert(ids []ComponentID, reg *componentRegistry) tableID {
	key := maskOf(ids)
	if id, ok := ts.index[key]; ok {
		return id
	}
	id := tableID(len(ts.tables))
	ts.tables = append(ts.tables, newTable(ids, reg))
	ts.index[key] = id
	return id
}

func (ts *tables) get(id tableID) *table {
	return ts.tables[id]
}
