package payroll

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// INTERVAL MERGER
// =============================================================================

// MergeIntervals collapses overlapping or touching intervals of one date into
// sorted, non-overlapping blocks. The input slice is not modified.
func MergeIntervals(intervals []AttendanceInterval) []MergedBlock {
	if len(intervals) == 0 {
		return nil
	}

	sorted := make([]AttendanceInterval, len(intervals))
	copy(sorted, intervals)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	blocks := make([]MergedBlock, 0, len(sorted))
	current := MergedBlock{Date: sorted[0].Date, Start: sorted[0].Start, End: sorted[0].End}
	for _, next := range sorted[1:] {
		if !next.Start.After(current.End) {
			if next.End.After(current.End) {
				current.End = next.End
			}
			continue
		}
		blocks = append(blocks, current)
		current = MergedBlock{Date: next.Date, Start: next.Start, End: next.End}
	}
	return append(blocks, current)
}

// MergeBlocks re-merges already merged blocks. Merging is idempotent, so this
// returns an equal slice for valid input.
func MergeBlocks(blocks []MergedBlock) []MergedBlock {
	intervals := make([]AttendanceInterval, len(blocks))
	for i, b := range blocks {
		intervals[i] = AttendanceInterval{Date: b.Date, Start: b.Start, End: b.End}
	}
	return MergeIntervals(intervals)
}

// BlockHours sums block durations in hours, rounded to 2 decimals.
func BlockHours(blocks []MergedBlock) decimal.Decimal {
	var total time.Duration
	for _, b := range blocks {
		total += b.Duration()
	}
	return durationHours(total)
}

func durationHours(d time.Duration) decimal.Decimal {
	return Round2(decimal.NewFromInt(int64(d / time.Second)).Div(decimal.NewFromInt(3600)))
}
