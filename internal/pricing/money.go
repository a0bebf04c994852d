package pricing

import (
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value. Amounts are exact decimals; rounding to
// cents only happens where a charged or paid-out amount is produced.
type Money = decimal.Decimal

var hundred = decimal.NewFromInt(100)

// NewMoney parses a decimal string such as "19.99".
func NewMoney(value string) (Money, error) {
	return decimal.NewFromString(value)
}

// MoneyFromCents converts minor units into Money.
func MoneyFromCents(cents int64) Money {
	return decimal.New(cents, -2)
}

func round2(m Money) Money {
	return m.Round(2)
}

// percentOf returns amount * pct / 100.
func percentOf(amount Money, pct float64) Money {
	return amount.Mul(decimal.NewFromFloat(pct)).Div(hundred)
}

// remainingFactor returns (1 - pct/100).
func remainingFactor(pct float64) decimal.Decimal {
	return decimal.NewFromInt(1).Sub(decimal.NewFromFloat(pct).Div(hundred))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// formatPercent renders a percentage for step labels: 10 -> "10", 12.345 -> "12.35".
func formatPercent(pct float64) string {
	return strconv.FormatFloat(math.Round(pct*100)/100, 'f', -1, 64)
}

func clampPercentage(pct float64) float64 {
	switch {
	case math.IsNaN(pct) || pct < 0:
		return 0
	case pct > 100:
		return 100
	default:
		return pct
	}
}
