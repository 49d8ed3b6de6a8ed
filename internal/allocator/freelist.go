package allocator

// Run is a maximal free block range within a segment: blocks [Offset,
// Offset+Size) are all unallocated.
type Run struct {
	Offset uint32
	Size   uint32
}

// FreeList is the sorted, disjoint, non-abutting list of free runs
// backing one segment's allocation state. It never merges automatically on
// insert except through the deallocate path below, which restores the
// abutting-merge invariant explicitly.
type FreeList struct {
	runs []Run
}

// NewFreeList scans bitmap for runs of unset bits and builds a sorted
// free list from them, mirroring the reference allocator's bitmap scan on
// construction.
func NewFreeList(bitmap Bitmap) *FreeList {
	fl := &FreeList{}
	var offset uint32
	for offset < bitmap.Len() {
		if !bitmap.Get(offset) {
			start := offset
			var size uint32
			for offset < bitmap.Len() && !bitmap.Get(offset) {
				size++
				offset++
			}
			fl.runs = append(fl.runs, Run{Offset: start, Size: size})
		} else {
			offset++
		}
	}
	return fl
}

// Runs returns the free list's runs in offset order. Callers must not
// mutate the returned slice.
func (fl *FreeList) Runs() []Run {
	return fl.runs
}

// shrinkFront removes size blocks from the front of the run at index,
// dropping the run entirely if it becomes empty.
func (fl *FreeList) shrinkFront(index int, size uint32) {
	fl.runs[index].Offset += size
	fl.runs[index].Size -= size
	if fl.runs[index].Size == 0 {
		fl.runs = append(fl.runs[:index], fl.runs[index+1:]...)
	}
}

// reserve removes the exact range [offset, offset+size) from whichever run
// contains it, splitting that run into a prefix and/or suffix as needed.
// The caller must have already verified the range lies fully within one
// free run (via AnySet on the bitmap).
func (fl *FreeList) reserve(offset, size uint32) bool {
	for i, r := range fl.runs {
		end := r.Offset + r.Size
		switch {
		case r.Offset == offset && r.Size == size:
			fl.runs = append(fl.runs[:i], fl.runs[i+1:]...)
			return true
		case r.Offset == offset && r.Size > size:
			fl.runs[i].Offset += size
			fl.runs[i].Size -= size
			return true
		case offset > r.Offset && offset+size == end:
			fl.runs[i].Size -= size
			return true
		case offset > r.Offset && offset < end && offset+size < end:
			remaining := r.Size - (size + (offset - r.Offset))
			newOffset := offset + size
			fl.runs[i].Size = offset - r.Offset
			tail := Run{Offset: newOffset, Size: remaining}
			fl.runs = append(fl.runs, Run{})
			copy(fl.runs[i+2:], fl.runs[i+1:])
			fl.runs[i+1] = tail
			return true
		}
	}
	return false
}

// release inserts (offset, size) back into the free list, coalescing with
// neighbors that abut it exactly on either side.
func (fl *FreeList) release(offset, size uint32) {
	end := offset + size

	for i, r := range fl.runs {
		segEnd := r.Offset + r.Size
		switch {
		case segEnd == offset:
			fl.runs[i].Size += size
			if i+1 < len(fl.runs) && fl.runs[i+1].Offset == end {
				fl.runs[i].Size += fl.runs[i+1].Size
				fl.runs = append(fl.runs[:i+1], fl.runs[i+2:]...)
			}
			return
		case end == r.Offset:
			fl.runs[i].Offset = offset
			fl.runs[i].Size += size
			return
		case r.Offset > offset:
			fl.runs = append(fl.runs, Run{})
			copy(fl.runs[i+1:], fl.runs[i:])
			fl.runs[i] = Run{Offset: offset, Size: size}
			return
		}
	}
	fl.runs = append(fl.runs, Run{Offset: offset, Size: size})
}
