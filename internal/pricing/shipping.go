package pricing

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-finance/internal/common"
)

// ShippingPolicy carries the two payout percentages of the distribution rule.
type ShippingPolicy struct {
	SingleSellerPercentage float64 `json:"shipping_seller_percentage"`
	MaxSellerPercentage    float64 `json:"shipping_max_seller_percentage"`
}

// SellerShipping is one seller's shipping payout.
type SellerShipping struct {
	SellerID   string  `json:"seller_id"`
	Amount     Money   `json:"amount"`
	Percentage float64 `json:"percentage"`
}

// ShippingDistribution is the result of splitting an order's shipping fee.
type ShippingDistribution struct {
	TotalShipping    Money            `json:"total_shipping"`
	SellerCount      int              `json:"seller_count"`
	PerSeller        []SellerShipping `json:"per_seller"`
	Distributed      Money            `json:"distributed"`
	PlatformRetained Money            `json:"platform_retained"`
}

// DistributeShipping pays a lone seller SingleSellerPercentage of the fee.
// With several sellers the MaxSellerPercentage is split evenly between them,
// capping what leaves the platform. The platform keeps the remainder, always
// computed by subtraction. Seller ids are de-duplicated and blanks dropped.
func DistributeShipping(total Money, sellerIDs []string, policy ShippingPolicy) (ShippingDistribution, error) {
	var errs common.ValidationErrors
	checkAmount(&errs, "shipping_cost", total)
	checkPercentage(&errs, "shipping_seller_percentage", policy.SingleSellerPercentage)
	checkPercentage(&errs, "shipping_max_seller_percentage", policy.MaxSellerPercentage)
	if len(errs) > 0 {
		return ShippingDistribution{}, errs
	}

	sellers := uniqueSellers(sellerIDs)
	out := ShippingDistribution{
		TotalShipping: total,
		SellerCount:   len(sellers),
		PerSeller:     make([]SellerShipping, 0, len(sellers)),
		Distributed:   decimal.Zero,
	}

	var (
		share   Money
		display float64
	)
	switch n := len(sellers); {
	case n == 0:
		out.PlatformRetained = total
		return out, nil
	case n == 1:
		display = policy.SingleSellerPercentage
		share = boundedShare(total, policy.SingleSellerPercentage, 1)
	default:
		pct := policy.MaxSellerPercentage / float64(n)
		display = round1(pct)
		share = boundedShare(total, pct, n)
	}

	for _, id := range sellers {
		out.PerSeller = append(out.PerSeller, SellerShipping{SellerID: id, Amount: share, Percentage: display})
		out.Distributed = out.Distributed.Add(share)
	}
	out.PlatformRetained = total.Sub(out.Distributed)
	return out, nil
}

// boundedShare rounds each seller's share to cents; when rounding up would
// pay out more than the fee itself it truncates instead.
func boundedShare(total Money, pct float64, sellers int) Money {
	raw := percentOf(total, pct)
	share := round2(raw)
	if share.Mul(decimal.NewFromInt(int64(sellers))).GreaterThan(total) {
		share = raw.RoundDown(2)
	}
	return share
}

func uniqueSellers(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
