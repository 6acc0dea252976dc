package quartz

import "unsafe"

// zeroBase is the shared base address for zero-sized component types, which
// never allocate storage.
var zeroBase struct{}

// column is one component's contiguous buffer within a table: capacity slots
// of itemSize bytes each, the first len of which hold validly constructed
// values. The buffer is raw memory addressed by pointer arithmetic; the Go GC
// does not scan it, so component types must not contain Go pointers.
//
// The backing slice is retained alongside the base pointer to keep the
// allocation alive. Growth replaces the buffer, so any pointer previously
// handed out by get/getMut is invalidated by reserve.
type column struct {
	drop      func(unsafe.Pointer)
	buf       []byte
	data      unsafe.Pointer
	itemSize  uintptr
	itemAlign uintptr
	len       int
	cap       int
}

// newColumn allocates a column for capacity items of info's layout.
// Zero-sized types never allocate.
func newColumn(info *componentInfo, capacity int) *column {
	c := &column{
		itemSize:  info.size,
		itemAlign: info.align,
		drop:      info.drop,
	}
	if c.itemSize == 0 {
		c.data = unsafe.Pointer(&zeroBase)
		c.cap = capacity
		return c
	}
	if capacity > 0 {
		c.buf, c.data = allocAligned(c.itemSize, c.itemAlign, capacity)
		c.cap = capacity
	}
	return c
}

// allocAligned returns a byte buffer holding capacity items plus alignment
// slack, and the aligned base pointer into it.
func allocAligned(size, align uintptr, capacity int) ([]byte, unsafe.Pointer) {
	buf := make([]byte, size*uintptr(capacity)+align-1)
	base := unsafe.Pointer(&buf[0])
	if off := uintptr(base) % align; off != 0 {
		base = unsafe.Add(base, align-off)
	}
	return buf, base
}

// reserve grows the column to hold at least n items. Growth is geometric so
// repeated single-row reserves amortize; capacity never shrinks.
func (c *column) reserve(n int) {
	if n <= c.cap {
		return
	}
	newCap := 2 * c.cap
	if newCap < n {
		newCap = n
	}
	c.realloc(newCap)
}

// realloc moves the column to a buffer of newCapacity slots, preserving the
// byte contents of the first min(old, new) capacity slots. Every pointer
// previously obtained from this column is invalid after the call.
func (c *column) realloc(newCapacity int) {
	if c.itemSize == 0 {
		c.cap = newCapacity
		return
	}
	buf, base := allocAligned(c.itemSize, c.itemAlign, newCapacity)
	keep := c.cap
	if newCapacity < keep {
		keep = newCapacity
	}
	if keep > 0 {
		memCopy(base, c.data, uintptr(keep)*c.itemSize)
	}
	c.buf, c.data = buf, base
	c.cap = newCapacity
}

func (c *column) slot(row int) unsafe.Pointer {
	return unsafe.Pointer(uintptr(c.data) + uintptr(row)*c.itemSize)
}

// initializeUnchecked moves an owned value into row's slot and extends the
// logical length. The caller must have reserved capacity: row < cap.
func (c *column) initializeUnchecked(row int, value owningPtr) {
	memCopy(c.slot(row), value.p, c.itemSize)
	if row >= c.len {
		c.len = row + 1
	}
}

// get returns shared access to row's bytes.
func (c *column) get(row int) ptr {
	if row >= c.len {
		panic("quartz: column row out of bounds")
	}
	return ptr{p: c.slot(row)}
}

// getMut returns exclusive access to row's bytes.
func (c *column) getMut(row int) mutPtr {
	if row >= c.len {
		panic("quartz: column row out of bounds")
	}
	return mutPtr{p: c.slot(row)}
}

// swapRemove destroys the value at row. Unless row was the last occupied
// slot, the last row's bytes relocate into row; the caller must propagate
// that relocation to its row-to-entity bookkeeping.
func (c *column) swapRemove(row int) {
	last := c.len - 1
	if row > last {
		panic("quartz: column row out of bounds")
	}
	if c.drop != nil {
		c.drop(c.slot(row))
	}
	if row < last {
		memCopy(c.slot(row), c.slot(last), c.itemSize)
	}
	c.len = last
}

// clear destroys every still-occupied row, keeping the buffer for reuse.
func (c *column) clear() {
	if c.drop != nil {
		for i := 0; i < c.len; i++ {
			c.drop(c.slot(i))
		}
	}
	c.len = 0
}

// release destroys every still-occupied row and drops the buffer.
func (c *column) release() {
	c.clear()
	c.buf = nil
	c.data = nil
	c.cap = 0
}
