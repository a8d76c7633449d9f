package sim

import (
	"github.com/RoaringBitmap/roaring/v2"
)

// pageTable tracks device page occupancy. Bit i set means page i is
// reserved. Runs of clear bits are the free list; allocation is first-fit
// over those runs, so freed runs are found again by later allocations.
type pageTable struct {
	occupied *roaring.Bitmap
	numPages uint32
}

func newPageTable(numPages uint32) *pageTable {
	return &pageTable{
		occupied: roaring.New(),
		numPages: numPages,
	}
}

// findRun returns the start of the first run of n consecutive free pages.
// The scan walks occupied pages in order and inspects the gaps between
// them, so cost scales with fragmentation, not pool size.
func (t *pageTable) findRun(n uint32) (uint32, bool) {
	if n == 0 || n > t.numPages {
		return 0, false
	}

	// next is the first page that could start a free run: one past the
	// last occupied page seen so far.
	var next uint32
	it := t.occupied.Iterator()
	for it.HasNext() {
		p := it.Next()
		if p-next >= n {
			return next, true
		}
		next = p + 1
	}
	if t.numPages-next >= n {
		return next, true
	}

	return 0, false
}

func (t *pageTable) reserve(start, n uint32) {
	t.occupied.AddRange(uint64(start), uint64(start)+uint64(n))
}

func (t *pageTable) release(start, n uint32) {
	t.occupied.RemoveRange(uint64(start), uint64(start)+uint64(n))
}

// reserved returns the number of occupied pages.
func (t *pageTable) reserved() uint64 {
	return t.occupied.GetCardinality()
}

// isReserved reports whether every page in [start, start+n) is occupied.
func (t *pageTable) isReserved(start, n uint32) bool {
	for p := start; p < start+n; p++ {
		if !t.occupied.Contains(p) {
			return false
		}
	}
	return true
}
