package payroll

import "github.com/shopspring/decimal"

type EarningKind string

const (
	EarningRegular  EarningKind = "regular"
	EarningPremium  EarningKind = "premium"
	EarningDouble   EarningKind = "double"
	EarningSickHalf EarningKind = "sick_half"
)

// EarningLine is one itemized gross-pay line in CRC.
type EarningLine struct {
	Kind       EarningKind
	Quantity   decimal.Decimal // hours, or days for sick lines
	Rate       decimal.Decimal // CRC per unit before the multiplier
	Multiplier decimal.Decimal
	Amount     decimal.Decimal // rounded to 2 decimals
}

// Earnings is the composed gross pay.
type Earnings struct {
	Lines []EarningLine
	Gross decimal.Decimal
}

// ComposePay prices the final buckets and the half-pay sick days. Each line
// is rounded on its own and gross is the sum of the rounded lines.
func ComposePay(buckets PayBucketTotals, rate Rate, sick SickCounts, policy PayrollPolicy) Earnings {
	one := decimal.NewFromInt(1)
	lines := []EarningLine{
		hourLine(EarningRegular, buckets.Regular, rate.Hourly, one),
		hourLine(EarningPremium, buckets.Premium, rate.Hourly, policy.PremiumMultiplier),
		hourLine(EarningDouble, buckets.Double, rate.Hourly, policy.DoubleMultiplier),
	}

	halfDays := decimal.NewFromInt(int64(sick.HalfPayDays))
	lines = append(lines, EarningLine{
		Kind:       EarningSickHalf,
		Quantity:   halfDays,
		Rate:       rate.DayRate,
		Multiplier: policy.SickHalfFraction,
		Amount:     Round2(halfDays.Mul(rate.DayRate).Mul(policy.SickHalfFraction)),
	})

	gross := decimal.Zero
	for _, l := range lines {
		gross = gross.Add(l.Amount)
	}
	return Earnings{Lines: lines, Gross: gross}
}

func hourLine(kind EarningKind, hours, rate, multiplier decimal.Decimal) EarningLine {
	return EarningLine{
		Kind:       kind,
		Quantity:   hours,
		Rate:       rate,
		Multiplier: multiplier,
		Amount:     Round2(hours.Mul(rate).Mul(multiplier)),
	}
}
