package pricing_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-finance/internal/pricing"
)

func money(t *testing.T, v string) pricing.Money {
	t.Helper()
	m, err := pricing.NewMoney(v)
	require.NoError(t, err)
	return m
}

func requireMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got.String())
}
