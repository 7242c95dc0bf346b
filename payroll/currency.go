package payroll

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CURRENCY NORMALIZER
// =============================================================================

// Normalizer converts between CRC and USD at a single point-in-time rate.
type Normalizer struct {
	rate         *ExchangeRate
	fallback     FallbackMode
	usedFallback bool
}

// NewNormalizer builds a normalizer. rate may be nil; what happens then on a
// USD conversion is decided by fallback.
func NewNormalizer(rate *ExchangeRate, fallback FallbackMode) *Normalizer {
	if rate != nil && !rate.CRCPerUSD.IsPositive() {
		rate = nil
	}
	return &Normalizer{rate: rate, fallback: fallback}
}

// Rate returns the CRC-per-USD rate in effect, or nil.
func (n *Normalizer) Rate() *ExchangeRate { return n.rate }

// UsedFallback reports whether any conversion used the neutral 1.0 rate.
func (n *Normalizer) UsedFallback() bool { return n.usedFallback }

func (n *Normalizer) crcPerUSD() (decimal.Decimal, error) {
	if n.rate != nil {
		return n.rate.CRCPerUSD, nil
	}
	if n.fallback == FallbackNeutral {
		n.usedFallback = true
		return decimal.NewFromInt(1), nil
	}
	return decimal.Zero, ErrMissingExchangeRate
}

// ToCRCExact converts m to CRC without rounding. Used for rates, where
// rounding early would distort every line built on them.
func (n *Normalizer) ToCRCExact(m Money) (decimal.Decimal, error) {
	switch m.Currency {
	case CRC, "":
		return m.Amount, nil
	case USD:
		r, err := n.crcPerUSD()
		if err != nil {
			return decimal.Zero, err
		}
		return m.Amount.Mul(r), nil
	default:
		return decimal.Zero, fmt.Errorf("unsupported currency %q", m.Currency)
	}
}

// ToCRC converts m to CRC, rounded to 2 decimals.
func (n *Normalizer) ToCRC(m Money) (Money, error) {
	v, err := n.ToCRCExact(m)
	if err != nil {
		return Money{}, err
	}
	return CRCAmount(Round2(v)), nil
}

// FromCRC converts a CRC amount to target, rounded to 2 decimals.
func (n *Normalizer) FromCRC(amount decimal.Decimal, target Currency) (Money, error) {
	switch target {
	case CRC, "":
		return CRCAmount(Round2(amount)), nil
	case USD:
		r, err := n.crcPerUSD()
		if err != nil {
			return Money{}, err
		}
		return Money{Amount: Round2(amount.Div(r)), Currency: USD}, nil
	default:
		return Money{}, fmt.Errorf("unsupported currency %q", target)
	}
}
