package pricing_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-finance/internal/common"
	"github.com/noah-isme/toko-finance/internal/pricing"
)

func TestSummarizeOrder(t *testing.T) {
	summary, err := pricing.SummarizeOrder(money(t, "200"), money(t, "10"), []string{"A", "B"}, pricing.SummaryRates{
		CommissionRate: 10,
		Shipping:       defaultPolicy,
	})
	require.NoError(t, err)
	requireMoney(t, "20", summary.Commission.Amount)
	requireMoney(t, "180", summary.Commission.SellerEarnings)
	requireMoney(t, "6", summary.Shipping.PlatformRetained)
	requireMoney(t, "20", summary.PlatformEarnings.Commission)
	requireMoney(t, "6", summary.PlatformEarnings.ShippingRetained)
	requireMoney(t, "26", summary.PlatformEarnings.Total)
}

func TestSummarizeOrderCollectsBothErrors(t *testing.T) {
	_, err := pricing.SummarizeOrder(money(t, "-5"), money(t, "-1"), nil, pricing.SummaryRates{CommissionRate: 10, Shipping: defaultPolicy})
	var errs common.ValidationErrors
	require.ErrorAs(t, err, &errs)
	require.True(t, errs.HasField("subtotal"))
	require.True(t, errs.HasField("shipping_cost"))
}
