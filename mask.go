package quartz

// mask256 is a fixed-width bit set over component IDs. It is the canonical
// key for a component set: two tables or archetypes describe the same
// structural group iff their masks are equal, which makes the mask usable
// directly as a map key for the table and archetype indices.
type mask256 [maskWords]uint64

const (
	bitsPerWord = 64
	maskWords   = 4
)

// set enables the bit for the given component ID.
func (m *mask256) set(id ComponentID) {
	m[id/bitsPerWord] |= 1 << (id % bitsPerWord)
}

// has reports whether the bit for the given component ID is set.
func (m mask256) has(id ComponentID) bool {
	word := id / bitsPerWord
	if int(word) >= maskWords {
		return false
	}
	return m[word]&(1<<(id%bitsPerWord)) != 0
}

// containsAll reports whether every bit set in sub is also set in m. This is
// the archetype superset test used during query resolution.
func (m mask256) containsAll(sub mask256) bool {
	return m[0]&sub[0] == sub[0] &&
		m[1]&sub[1] == sub[1] &&
		m[2]&sub[2] == sub[2] &&
		m[3]&sub[3] == sub[3]
}

// intersects reports whether m and other share at least one set bit.
func (m mask256) intersects(other mask256) bool {
	for i := 0; i < maskWords; i++ {
		if m[i]&other[i] != 0 {
			return true
		}
	}
	return false
}

// maskOf builds a mask from a list of component IDs.
func maskOf(ids []ComponentID) mask256 {
	var m mask256
	for _, id := range ids {
		m.set(id)
	}
	return m
}
