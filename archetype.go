package quartz

// archetypeID identifies one archetype within a world. IDs grow
// monotonically with creation order and are never reused.
type archetypeID uint32

// entityRecord mirrors one table row at the archetype level.
type entityRecord struct {
	entity Entity
	row    int
}

// archetype is the logical grouping of all entities sharing one exact
// component set, bound 1:1 to the table that physically stores them. Its
// entity records mirror the table's rows and move in lockstep with them.
type archetype struct {
	ids      []ComponentID // canonical sorted set
	entities []entityRecord
	mask     mask256
	id       archetypeID
	tableID  tableID
}

func (a *archetype) contains(id ComponentID) bool {
	return a.mask.has(id)
}

func (a *archetype) len() int {
	return len(a.entities)
}

// allocate appends an entity record for a freshly allocated table row and
// returns the entity's composite location.
func (a *archetype) allocate(e Entity, row int) entityLocation {
	if len(a.entities) != row {
		panic("quartz: archetype rows out of sync with table")
	}
	a.entities = append(a.entities, entityRecord{entity: e, row: row})
	return entityLocation{
		archetype: a.id,
		table:     a.tableID,
		row:       row,
	}
}

// swapRemove drops the record at row, mirroring the table's swap-remove, and
// returns the entity that now occupies the vacated row (false if the removed
// row was the last).
func (a *archetype) swapRemove(row int) (Entity, bool) {
	last := len(a.entities) - 1
	if row > last {
		panic("quartz: archetype row out of bounds")
	}
	a.entities[row] = a.entities[last]
	a.entities[row].row = row
	a.entities = a.entities[:last]
	if row == last {
		return Entity{}, false
	}
	return a.entities[row].entity, true
}

// archetypes is the archetype registry: canonical component-set lookup plus
// the component-to-archetypes reverse index that narrows query candidates.
// The version counter bumps on every creation so queries can detect that
// their resolved match list went stale.
type archetypes struct {
	archetypes  []*archetype
	index       map[mask256]archetypeID
	byComponent map[ComponentID][]archetypeID
	version     uint32
}

func newArchetypes() archetypes {
	return archetypes{
		index:       make(map[mask256]archetypeID),
		byComponent: make(map[ComponentID][]archetypeID),
	}
}

// getIDOrInsert resolves a sorted component-ID set to its archetype, creating
// the archetype and its backing table on first use. Creation inserts the new
// ID into the reverse-index bucket of every component in the set; buckets
// stay ascending because archetype IDs only grow.
func (as *archetypes) getIDOrInsert(ids []ComponentID, tbls *tables, reg *componentRegistry) archetypeID {
	key := maskOf(ids)
	if id, ok := as.index[key]; ok {
		return id
	}
	id := archetypeID(len(as.archetypes))
	canonical := make([]ComponentID, len(ids))
	copy(canonical, ids)
	a := &archetype{
		id:      id,
		tableID: tbls.getIDOrInsert(canonical, reg),
		mask:    key,
		ids:     canonical,
	}
	as.archetypes = append(as.archetypes, a)
	as.index[key] = id
	for _, cid := range canonical {
		as.byComponent[cid] = append(as.byComponent[cid], id)
	}
	as.version++
	return id
}

func (as *archetypes) get(id archetypeID) *archetype {
	return as.archetypes[id]
}

// queryArchetypes resolves a required component set to the archetypes whose
// sets are supersets of it, with their backing tables. Candidates come from
// the reverse-index bucket of the first required ID; results ascend by
// archetype ID, and since archetypes and tables are created pairwise the
// table IDs ascend with them. A first ID that was never used yields nothing.
func (as *archetypes) queryArchetypes(required []ComponentID) ([]archetypeID, []tableID) {
	if len(required) == 0 {
		return nil, nil
	}
	bucket, ok := as.byComponent[required[0]]
	if !ok {
		return nil, nil
	}
	need := maskOf(required)
	archIDs := make([]archetypeID, 0, len(bucket))
	tblIDs := make([]tableID, 0, len(bucket))
	for _, id := range bucket {
		a := as.archetypes[id]
		if a.mask.containsAll(need) {
			archIDs = append(archIDs, id)
			tblIDs = append(tblIDs, a.tableID)
		}
	}
	return archIDs, tblIDs
}
