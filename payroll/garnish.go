/*
garnish.go - Garnishment allocation

PURPOSE:
  Applies wage garnishment orders against gross pay without exceeding the
  employee's cap (a fraction of gross) or the remaining net.

ALGORITHM (single pass):
  1. cap_amount = round(gross * cap_rate, 2)
  2. Keep active orders whose date range intersects the period, sorted by
     (priority, id)
  3. For each order: requested = percent of gross or a fixed amount;
     applied = min(requested, remaining cap, remaining net)
  4. Once the cap or net is exhausted, later orders are still reported with
     applied = 0 and capped = true

INVARIANTS:
  - TotalDeducted <= CapAmount
  - Net = Gross - TotalDeducted >= 0
*/
package payroll

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Allocation is the outcome of AllocateGarnishments.
type Allocation struct {
	CapRate       decimal.Decimal
	CapAmount     decimal.Decimal
	Results       []DeductionResult
	TotalDeducted decimal.Decimal
	Net           decimal.Decimal
}

// ActiveOrders filters orders to the active ones that touch the period and
// sorts them by priority, then id.
func ActiveOrders(orders []GarnishmentOrder, period Period) []GarnishmentOrder {
	active := make([]GarnishmentOrder, 0, len(orders))
	for _, o := range orders {
		if o.Active && period.Intersects(o.Start, o.End) {
			active = append(active, o)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		if active[i].Priority != active[j].Priority {
			return active[i].Priority < active[j].Priority
		}
		return active[i].ID < active[j].ID
	})
	return active
}

// AllocateGarnishments runs the cap allocation. capRate is clamped to [0,1].
// An order with an unknown mode aborts the allocation.
func AllocateGarnishments(gross, capRate decimal.Decimal, orders []GarnishmentOrder, period Period) (Allocation, error) {
	capRate = clampRate(capRate)
	gross = maxDecimal(gross, decimal.Zero)

	alloc := Allocation{
		CapRate:       capRate,
		CapAmount:     Round2(gross.Mul(capRate)),
		TotalDeducted: decimal.Zero,
		Net:           gross,
	}
	remaining := alloc.CapAmount

	for _, o := range ActiveOrders(orders, period) {
		requested, err := requestedAmount(o, gross)
		if err != nil {
			return Allocation{}, err
		}

		applied := decimal.Zero
		if remaining.IsPositive() && alloc.Net.IsPositive() {
			applied = minDecimal(requested, minDecimal(remaining, alloc.Net))
			applied = maxDecimal(applied, decimal.Zero)
		}

		alloc.Results = append(alloc.Results, DeductionResult{
			GarnishmentID: o.ID,
			Requested:     requested,
			Applied:       applied,
			Capped:        applied.LessThan(requested),
		})

		remaining = remaining.Sub(applied)
		alloc.Net = alloc.Net.Sub(applied)
		alloc.TotalDeducted = alloc.TotalDeducted.Add(applied)
	}

	return alloc, nil
}

func requestedAmount(o GarnishmentOrder, gross decimal.Decimal) (decimal.Decimal, error) {
	switch o.Mode {
	case GarnishPercent:
		return Round2(gross.Mul(o.Value).Div(decimal.NewFromInt(100))), nil
	case GarnishAmount:
		return Round2(o.Value), nil
	default:
		return decimal.Zero, &GarnishmentModeError{GarnishmentID: o.ID, Mode: o.Mode}
	}
}

func clampRate(r decimal.Decimal) decimal.Decimal {
	one := decimal.NewFromInt(1)
	if r.IsNegative() {
		return decimal.Zero
	}
	if r.GreaterThan(one) {
		return one
	}
	return r
}
