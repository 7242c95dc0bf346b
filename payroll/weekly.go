/*
weekly.go - Weekly overtime reallocation

PURPOSE:
  Enforces the weekly cap: regular+premium hours worked on ordinary days
  (not Sunday, not holiday) above 48 in an ISO week are recoded as double.

ALGORITHM:
  1. Sum the per-day buckets into period-wide pools.
  2. Group eligible days by ISO week; eligible hours = regular+premium.
  3. Fold over weeks in chronological order. For each week over the cap,
     move the excess out of the premium pool first, then the regular pool,
     into the double pool.

  The pools are shared by every week of the period. A week's reallocation
  can therefore draw on hours that belong to another week. This matches the
  reference behavior and is kept on purpose (see DESIGN.md).
*/
package payroll

import (
	"sort"

	"github.com/shopspring/decimal"
)

// WeekAggregate reports the weekly check for one ISO week.
type WeekAggregate struct {
	Key              WeekKey
	EligibleHours    decimal.Decimal
	Excess           decimal.Decimal
	MovedFromPremium decimal.Decimal
	MovedFromRegular decimal.Decimal
}

// BucketPool is the fold state threaded through the weeks.
type BucketPool struct {
	Regular decimal.Decimal
	Premium decimal.Decimal
	Double  decimal.Decimal
}

func (p BucketPool) totals() PayBucketTotals {
	return PayBucketTotals{Regular: p.Regular, Premium: p.Premium, Double: p.Double}
}

// WeeklyResult is the outcome of the reallocation.
type WeeklyResult struct {
	Weeks  []WeekAggregate
	Before PayBucketTotals
	After  PayBucketTotals
}

// ReallocateWeekly sums days into pools and applies the weekly cap.
func ReallocateWeekly(days []DayClassification, policy PayrollPolicy) WeeklyResult {
	pool := BucketPool{Regular: decimal.Zero, Premium: decimal.Zero, Double: decimal.Zero}
	eligible := make(map[WeekKey]decimal.Decimal)
	for _, d := range days {
		pool.Regular = pool.Regular.Add(d.RegularHours)
		pool.Premium = pool.Premium.Add(d.PremiumHours)
		pool.Double = pool.Double.Add(d.DoubleHours)

		if d.WeeklyEligible() {
			k := d.Date.ISOWeek()
			eligible[k] = eligible[k].Add(d.RegularHours).Add(d.PremiumHours)
		}
	}

	keys := make([]WeekKey, 0, len(eligible))
	for k := range eligible {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	result := WeeklyResult{Before: pool.totals()}
	for _, k := range keys {
		var week WeekAggregate
		pool, week = applyWeek(pool, k, eligible[k], policy.WeeklyRegularCap)
		result.Weeks = append(result.Weeks, week)
	}
	result.After = pool.totals()
	return result
}

// applyWeek is one step of the fold.
func applyWeek(pool BucketPool, key WeekKey, eligible, limit decimal.Decimal) (BucketPool, WeekAggregate) {
	week := WeekAggregate{
		Key:              key,
		EligibleHours:    eligible,
		Excess:           decimal.Zero,
		MovedFromPremium: decimal.Zero,
		MovedFromRegular: decimal.Zero,
	}
	if !eligible.GreaterThan(limit) {
		return pool, week
	}

	week.Excess = eligible.Sub(limit)

	fromPremium := minDecimal(week.Excess, pool.Premium)
	pool.Premium = pool.Premium.Sub(fromPremium)

	fromRegular := minDecimal(week.Excess.Sub(fromPremium), pool.Regular)
	pool.Regular = pool.Regular.Sub(fromRegular)

	pool.Double = pool.Double.Add(fromPremium).Add(fromRegular)

	week.MovedFromPremium = fromPremium
	week.MovedFromRegular = fromRegular
	return pool, week
}
