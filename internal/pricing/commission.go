package pricing

import "github.com/noah-isme/toko-finance/internal/common"

// Commission splits an order subtotal between the platform and its sellers.
type Commission struct {
	Subtotal       Money   `json:"subtotal"`
	Rate           float64 `json:"commission_rate"`
	Amount         Money   `json:"commission_amount"`
	SellerEarnings Money   `json:"seller_earnings"`
}

// CalculateCommission rounds the commission to cents and derives seller
// earnings by subtraction, so Amount + SellerEarnings == Subtotal exactly.
// Only the 0-100 range is enforced here; the business cap lives in settings.
func CalculateCommission(subtotal Money, rate float64) (Commission, error) {
	var errs common.ValidationErrors
	checkAmount(&errs, "subtotal", subtotal)
	checkPercentage(&errs, "commission_rate", rate)
	if len(errs) > 0 {
		return Commission{}, errs
	}

	amount := round2(percentOf(subtotal, rate))
	return Commission{
		Subtotal:       subtotal,
		Rate:           rate,
		Amount:         amount,
		SellerEarnings: subtotal.Sub(amount),
	}, nil
}
