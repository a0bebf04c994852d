package pricing

import (
	"errors"

	"github.com/noah-isme/toko-finance/internal/common"
)

// SummaryRates are the settings the summary depends on.
type SummaryRates struct {
	CommissionRate float64
	Shipping       ShippingPolicy
}

// PlatformEarnings is what the marketplace keeps from one order.
type PlatformEarnings struct {
	Commission       Money `json:"commission"`
	ShippingRetained Money `json:"shipping_retained"`
	Total            Money `json:"total"`
}

// OrderFinancialSummary is the per-order financial breakdown used by
// checkout and reporting.
type OrderFinancialSummary struct {
	Commission       Commission           `json:"commission"`
	Shipping         ShippingDistribution `json:"shipping"`
	PlatformEarnings PlatformEarnings     `json:"platform_earnings"`
}

// SummarizeOrder composes the commission and shipping calculations. Both are
// pure; violations from either are returned together.
func SummarizeOrder(subtotal, shippingCost Money, sellerIDs []string, rates SummaryRates) (OrderFinancialSummary, error) {
	var errs common.ValidationErrors

	commission, err := CalculateCommission(subtotal, rates.CommissionRate)
	if err != nil {
		errs = appendValidation(errs, err)
	}
	shipping, err := DistributeShipping(shippingCost, sellerIDs, rates.Shipping)
	if err != nil {
		errs = appendValidation(errs, err)
	}
	if len(errs) > 0 {
		return OrderFinancialSummary{}, errs
	}

	retained := shipping.TotalShipping.Sub(shipping.Distributed)
	return OrderFinancialSummary{
		Commission: commission,
		Shipping:   shipping,
		PlatformEarnings: PlatformEarnings{
			Commission:       commission.Amount,
			ShippingRetained: retained,
			Total:            commission.Amount.Add(retained),
		},
	}, nil
}

func appendValidation(errs common.ValidationErrors, err error) common.ValidationErrors {
	var verrs common.ValidationErrors
	if errors.As(err, &verrs) {
		return append(errs, verrs...)
	}
	return append(errs, common.ValidationError{Field: "order", Code: common.CodeInvalid, Message: err.Error()})
}
