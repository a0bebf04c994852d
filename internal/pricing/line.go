package pricing

import (
	"errors"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-finance/internal/common"
)

// LineItem is the pipeline input for a single cart line.
type LineItem struct {
	ProductID                string       `json:"product_id"`
	Quantity                 int          `json:"quantity"`
	OriginalUnitPrice        Money        `json:"original_unit_price"`
	SellerDiscountPercentage float64      `json:"seller_discount_percentage"`
	AppliedVolumeTier        *VolumeTier  `json:"applied_volume_tier,omitempty"`
	VolumeTiers              []VolumeTier `json:"volume_tiers,omitempty"`
	CouponPercentage         float64      `json:"coupon_percentage"`
}

// LinePricing is the priced line. Money fields are rounded to cents.
type LinePricing struct {
	ProductID            string         `json:"product_id"`
	Quantity             int            `json:"quantity"`
	OriginalUnitPrice    Money          `json:"original_unit_price"`
	UnitPriceAfterSeller Money          `json:"unit_price_after_seller"`
	UnitPriceAfterVolume Money          `json:"unit_price_after_volume"`
	FinalUnitPrice       Money          `json:"final_unit_price"`
	LineSubtotal         Money          `json:"line_subtotal"`
	TotalSavings         Money          `json:"total_savings"`
	AppliedVolumeTier    *VolumeTier    `json:"applied_volume_tier,omitempty"`
	NextTier             *TierProgress  `json:"next_tier,omitempty"`
	Steps                []DiscountStep `json:"steps"`
}

// OrderPricing aggregates a batch of priced lines sharing one coupon.
type OrderPricing struct {
	Lines        []LinePricing `json:"lines"`
	Subtotal     Money         `json:"subtotal"`
	TotalSavings Money         `json:"total_savings"`
}

// CalculateLinePricing validates item and runs it through the discount
// pipeline. A pinned AppliedVolumeTier wins over resolving VolumeTiers.
func CalculateLinePricing(item LineItem) (LinePricing, error) {
	if errs := ValidateLineItem(item); len(errs) > 0 {
		return LinePricing{}, errs
	}

	tier := item.AppliedVolumeTier
	if tier == nil {
		if resolved, ok := ResolveTier(item.VolumeTiers, item.Quantity); ok {
			tier = &resolved
		}
	}
	volumePct := 0.0
	if tier != nil {
		volumePct = tier.DiscountPercentage
	}

	staged := ApplyDiscounts(item.OriginalUnitPrice, item.SellerDiscountPercentage, volumePct, item.CouponPercentage)
	qty := decimal.NewFromInt(int64(item.Quantity))
	final := round2(staged.Final)

	out := LinePricing{
		ProductID:            item.ProductID,
		Quantity:             item.Quantity,
		OriginalUnitPrice:    item.OriginalUnitPrice,
		UnitPriceAfterSeller: round2(staged.AfterSeller),
		UnitPriceAfterVolume: round2(staged.AfterVolume),
		FinalUnitPrice:       final,
		LineSubtotal:         final.Mul(qty),
		TotalSavings:         item.OriginalUnitPrice.Sub(final).Mul(qty),
		AppliedVolumeTier:    tier,
		Steps:                roundedSteps(staged.Steps),
	}
	if next, ok := NextTier(item.VolumeTiers, item.Quantity); ok {
		out.NextTier = &next
	}
	return out, nil
}

// PriceOrder prices every line with the order-level coupon. Validation errors
// of all lines are returned together, prefixed with the line index.
func PriceOrder(items []LineItem, couponPct float64) (OrderPricing, error) {
	var errs common.ValidationErrors
	checkPercentage(&errs, "coupon_percentage", couponPct)
	if len(errs) > 0 {
		return OrderPricing{}, errs
	}

	out := OrderPricing{
		Lines:        make([]LinePricing, 0, len(items)),
		Subtotal:     decimal.Zero,
		TotalSavings: decimal.Zero,
	}
	for i, item := range items {
		item.CouponPercentage = couponPct
		line, err := CalculateLinePricing(item)
		if err != nil {
			var lineErrs common.ValidationErrors
			if errors.As(err, &lineErrs) {
				prefix := "items[" + strconv.Itoa(i) + "]."
				for _, e := range lineErrs {
					e.Field = prefix + e.Field
					errs = append(errs, e)
				}
				continue
			}
			return OrderPricing{}, err
		}
		out.Lines = append(out.Lines, line)
		out.Subtotal = out.Subtotal.Add(line.LineSubtotal)
		out.TotalSavings = out.TotalSavings.Add(line.TotalSavings)
	}
	if len(errs) > 0 {
		return OrderPricing{}, errs
	}
	return out, nil
}
