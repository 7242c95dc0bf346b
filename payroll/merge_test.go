package payroll_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// INTERVAL MERGER TESTS
// =============================================================================

func TestMergeIntervals_OverlappingCorrection_CountedOnce(t *testing.T) {
	// GIVEN: 08:00-12:00 and a correction entry 11:50-16:00 on the same day
	// WHEN: Merging
	// THEN: One block 08:00-16:00 worth exactly 8 hours

	d := jan(6)
	blocks := payroll.MergeIntervals([]payroll.AttendanceInterval{
		span(d, 8, 0, 12, 0),
		span(d, 11, 50, 16, 0),
	})

	require.Len(t, blocks, 1)
	assert.Equal(t, d.At(8, 0, 0), blocks[0].Start)
	assert.Equal(t, d.At(16, 0, 0), blocks[0].End)
	assertDec(t, "8", payroll.BlockHours(blocks), "hours")
}

func TestMergeIntervals_UnsortedDisjoint_SortedBlocks(t *testing.T) {
	d := jan(6)
	blocks := payroll.MergeIntervals([]payroll.AttendanceInterval{
		span(d, 13, 0, 17, 0),
		span(d, 8, 0, 12, 0),
	})

	require.Len(t, blocks, 2)
	assert.Equal(t, d.At(8, 0, 0), blocks[0].Start)
	assert.Equal(t, d.At(13, 0, 0), blocks[1].Start)
	assertDec(t, "8", payroll.BlockHours(blocks), "hours")
}

func TestMergeIntervals_TouchingIntervals_Merged(t *testing.T) {
	// GIVEN: 08:00-12:00 and 12:00-14:00 (next.start == current.end)
	// THEN: A single block
	d := jan(6)
	blocks := payroll.MergeIntervals([]payroll.AttendanceInterval{
		span(d, 8, 0, 12, 0),
		span(d, 12, 0, 14, 0),
	})

	require.Len(t, blocks, 1)
	assert.Equal(t, d.At(14, 0, 0), blocks[0].End)
}

func TestMergeIntervals_ContainedInterval_DoesNotShrinkBlock(t *testing.T) {
	d := jan(6)
	blocks := payroll.MergeIntervals([]payroll.AttendanceInterval{
		span(d, 8, 0, 17, 0),
		span(d, 9, 0, 10, 0),
		span(d, 8, 0, 17, 0), // duplicate
	})

	require.Len(t, blocks, 1)
	assertDec(t, "9", payroll.BlockHours(blocks), "hours")
}

func TestMergeIntervals_Idempotent(t *testing.T) {
	// GIVEN: An already merged block list
	// WHEN: Merging it again
	// THEN: Same blocks

	d := jan(6)
	once := payroll.MergeIntervals([]payroll.AttendanceInterval{
		span(d, 14, 0, 18, 0),
		span(d, 8, 0, 10, 0),
		span(d, 9, 30, 12, 0),
		span(d, 17, 0, 19, 0),
	})
	twice := payroll.MergeBlocks(once)

	assert.Equal(t, once, twice)
}

func TestMergeIntervals_NeverExceedsRawSum(t *testing.T) {
	d := jan(6)
	input := []payroll.AttendanceInterval{
		span(d, 8, 0, 12, 0),
		span(d, 10, 0, 13, 0),
		span(d, 12, 30, 15, 0),
	}
	raw := 0.0
	for _, iv := range input {
		raw += iv.End.Sub(iv.Start).Hours()
	}

	merged := payroll.BlockHours(payroll.MergeIntervals(input))

	assert.True(t, merged.LessThanOrEqual(dec("9.5")), "raw sum is 9.5, merged must not exceed it")
	assertDec(t, "7", merged, "merged hours")
	assert.InDelta(t, 9.5, raw, 0.001)
}

func TestMergeIntervals_InputNotMutated(t *testing.T) {
	d := jan(6)
	input := []payroll.AttendanceInterval{
		span(d, 13, 0, 17, 0),
		span(d, 8, 0, 12, 0),
	}
	payroll.MergeIntervals(input)

	assert.Equal(t, d.At(13, 0, 0), input[0].Start)
}

func TestMergeIntervals_Empty(t *testing.T) {
	blocks := payroll.MergeIntervals(nil)

	assert.Empty(t, blocks)
	assert.True(t, payroll.BlockHours(blocks).IsZero())
}

func TestBlockHours_RoundsToTwoDecimals(t *testing.T) {
	// 20 minutes = 0.3333... hours
	d := jan(6)
	blocks := payroll.MergeIntervals([]payroll.AttendanceInterval{span(d, 8, 0, 8, 20)})

	assertDec(t, "0.33", payroll.BlockHours(blocks), "hours")
}
