package allocator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorstFitPlacement(t *testing.T) {
	const segSize = 64 * 1024 // blocks
	seg := NewSegment(NewEmptyBitmap(segSize), WorstFit{})

	off, ok := seg.Allocate(100)
	require.True(t, ok)
	assert.EqualValues(t, 0, off)

	off, ok = seg.Allocate(50)
	require.True(t, ok)
	assert.EqualValues(t, 100, off)

	seg.Deallocate(0, 100)

	off, ok = seg.Allocate(40)
	require.True(t, ok)
	assert.EqualValues(t, 150, off, "worst-fit must pick the larger tail run, not the freed prefix")
}

func TestExactPlacementConflict(t *testing.T) {
	bm := NewEmptyBitmap(1500)
	bm.SetRange(0, 1000)
	seg := NewSegment(bm, WorstFit{})

	require.Equal(t, []Run{{Offset: 1000, Size: 500}}, seg.FreeRuns())

	assert.False(t, seg.AllocateAt(100, 900))

	require.True(t, seg.AllocateAt(100, 1000))
	assert.Equal(t, []Run{{Offset: 1100, Size: 400}}, seg.FreeRuns())

	require.True(t, seg.AllocateAt(100, 1400))
	assert.Equal(t, []Run{{Offset: 1100, Size: 300}}, seg.FreeRuns())

	require.True(t, seg.AllocateAt(50, 1200))
	assert.Equal(t, []Run{{Offset: 1100, Size: 100}, {Offset: 1250, Size: 150}}, seg.FreeRuns())
}

func TestAllocateZeroSizeIsTrivial(t *testing.T) {
	seg := NewSegment(NewEmptyBitmap(16), WorstFit{})
	before := append([]Run(nil), seg.FreeRuns()...)

	off, ok := seg.Allocate(0)
	require.True(t, ok)
	assert.EqualValues(t, 0, off)
	assert.Equal(t, before, seg.FreeRuns())
}

func TestAllocateFailsWhenNoRunFits(t *testing.T) {
	seg := NewSegment(NewEmptyBitmap(10), WorstFit{})
	_, ok := seg.Allocate(11)
	assert.False(t, ok)
}

func TestDeallocateThenAllocateAtRoundTrips(t *testing.T) {
	seg := NewSegment(NewEmptyBitmap(128), WorstFit{})

	off, ok := seg.Allocate(32)
	require.True(t, ok)

	seg.Deallocate(off, 32)
	assert.True(t, seg.AllocateAt(32, off))
	assert.True(t, seg.Data().AnySet(off, 32))
}

func TestDeallocateCoalescesBothNeighbors(t *testing.T) {
	bm := NewEmptyBitmap(300)
	bm.SetRange(0, 300)
	seg := NewSegment(bm, WorstFit{})
	assert.Empty(t, seg.FreeRuns())

	seg.Deallocate(0, 100)
	seg.Deallocate(200, 100)
	assert.Equal(t, []Run{{Offset: 0, Size: 100}, {Offset: 200, Size: 100}}, seg.FreeRuns())

	seg.Deallocate(100, 100)
	assert.Equal(t, []Run{{Offset: 0, Size: 300}}, seg.FreeRuns())
}

func TestDeallocateOutOfRangeIsNoop(t *testing.T) {
	seg := NewSegment(NewEmptyBitmap(16), WorstFit{})
	before := append([]Run(nil), seg.FreeRuns()...)
	seg.Deallocate(10, 100)
	assert.Equal(t, before, seg.FreeRuns())
}

func TestFirstFitAndBestFitSelectDifferentRuns(t *testing.T) {
	bm := NewEmptyBitmap(1000)
	bm.SetRange(0, 100)   // free run 1: [100, 300) size 200
	bm.SetRange(300, 200)
	bm.SetRange(520, 480) // free run 2: [500, 520) size 20

	firstFit := NewSegment(bm.Clone(), FirstFit{})
	off, ok := firstFit.Allocate(20)
	require.True(t, ok)
	assert.EqualValues(t, 100, off, "first-fit takes the first sufficient run regardless of size")

	bestFit := NewSegment(bm.Clone(), BestFit{})
	off, ok = bestFit.Allocate(20)
	require.True(t, ok)
	assert.EqualValues(t, 500, off, "best-fit should choose the smallest run that still satisfies the request")
}
