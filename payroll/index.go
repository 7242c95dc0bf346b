package payroll

// HolidaySickIndex answers the two per-date questions the classifier asks:
// is this a paid holiday, and does an approved sick leave adjust its pay.
// Built once per computation, read-only afterwards. Keyed by ISO date string.
type HolidaySickIndex struct {
	holidays map[string]bool
	sick     map[string]SickAdjustment
}

// NewHolidaySickIndex builds the lookup for one employee and period. Sick
// leave ranges are clipped to the period; where ranges overlap, zero-pay wins
// over half-pay.
func NewHolidaySickIndex(holidays []Date, leaves []SickLeave, period Period) *HolidaySickIndex {
	idx := &HolidaySickIndex{
		holidays: make(map[string]bool),
		sick:     make(map[string]SickAdjustment),
	}
	for _, h := range holidays {
		if period.Contains(h) {
			idx.holidays[h.String()] = true
		}
	}
	for _, l := range leaves {
		if l.Adjustment != SickHalf && l.Adjustment != SickZero {
			continue
		}
		start, end := l.Start, l.End
		if start.Before(period.Start) {
			start = period.Start
		}
		if end.After(period.End) {
			end = period.End
		}
		for d := start; d.BeforeOrEqual(end); d = d.AddDays(1) {
			if idx.sick[d.String()] == SickZero {
				continue
			}
			idx.sick[d.String()] = l.Adjustment
		}
	}
	return idx
}

func (i *HolidaySickIndex) IsHoliday(d Date) bool { return i.holidays[d.String()] }

// SickAdjustment returns SickNone when no leave covers d.
func (i *HolidaySickIndex) SickAdjustment(d Date) SickAdjustment {
	if adj, ok := i.sick[d.String()]; ok {
		return adj
	}
	return SickNone
}

// HolidayCount returns the number of holidays inside the period.
func (i *HolidaySickIndex) HolidayCount() int { return len(i.holidays) }
