package pricing

import (
	"github.com/shopspring/decimal"
)

// PersistedLineItem is an order line as stored by the order service. Older
// orders only carry the final unit price; newer ones also store the
// intermediate percentages.
type PersistedLineItem struct {
	ProductID                string   `json:"product_id"`
	Quantity                 int      `json:"quantity"`
	Price                    Money    `json:"price"`
	OriginalPricePerUnit     *Money   `json:"original_price_per_unit,omitempty"`
	SellerDiscountPercentage *float64 `json:"seller_discount_percentage,omitempty"`
	VolumeDiscountPercentage *float64 `json:"volume_discount_percentage,omitempty"`
}

// PricingBreakdown is the pricing metadata persisted on an order.
type PricingBreakdown struct {
	CouponCode       string   `json:"coupon_code,omitempty"`
	CouponPercentage *float64 `json:"coupon_percentage,omitempty"`
}

// OrderMetadata carries order-level facts needed to rebuild a line's trail.
type OrderMetadata struct {
	PricingBreakdown *PricingBreakdown `json:"pricing_breakdown,omitempty"`
	CouponPercentage *float64          `json:"coupon_percentage,omitempty"`
	// HasCoupon marks orders known to have used a coupon even when its
	// percentage was not stored.
	HasCoupon bool `json:"has_coupon,omitempty"`
}

func (m OrderMetadata) couponPercentage() (float64, bool) {
	if m.PricingBreakdown != nil && m.PricingBreakdown.CouponPercentage != nil {
		return clampPercentage(*m.PricingBreakdown.CouponPercentage), true
	}
	if m.CouponPercentage != nil {
		return clampPercentage(*m.CouponPercentage), true
	}
	return 0, false
}

// ItemDiscountBreakdown is the rebuilt discount trail of a persisted line.
//
// Inferred is set when the seller percentage was derived instead of read.
// Ambiguous is set when the split between stages cannot be guaranteed unique;
// Notes explains why.
type ItemDiscountBreakdown struct {
	ProductID                string         `json:"product_id"`
	Quantity                 int            `json:"quantity"`
	OriginalUnitPrice        Money          `json:"original_unit_price"`
	FinalUnitPrice           Money          `json:"final_unit_price"`
	RecomputedUnitPrice      Money          `json:"recomputed_unit_price"`
	SellerDiscountPercentage float64        `json:"seller_discount_percentage"`
	VolumeDiscountPercentage float64        `json:"volume_discount_percentage"`
	CouponPercentage         float64        `json:"coupon_percentage"`
	TotalSavings             Money          `json:"total_savings"`
	Steps                    []DiscountStep `json:"steps"`
	Inferred                 bool           `json:"inferred"`
	Ambiguous                bool           `json:"ambiguous"`
	Notes                    []string       `json:"notes,omitempty"`
}

const (
	noteCouponUnknown   = "order used a coupon but its percentage was not stored; the whole discount is attributed to the seller"
	noteVolumeUnknown   = "volume discount percentage not stored; seller and volume discounts cannot be separated"
	noteFullDiscount    = "a stage discounts 100% of the price; earlier stages cannot be recovered"
	noteOriginalMissing = "original unit price not stored; rebuilt from the known stages"
	noteSellerUnknown   = "original unit price and seller discount not stored; any seller discount is folded into the original price"
)

// ReconstructBreakdown rebuilds the ordered discount steps that produced a
// persisted line's final price. Known coupon and volume percentages are undone
// from the final price in reverse pipeline order; whatever gap remains against
// the original price is attributed to the seller discount. The steps are then
// produced by the forward pipeline so they are always self-consistent.
//
// This is best effort: if the coupon or volume percentage is unknown, the
// unattributed discount lands in the seller bucket and the result is flagged
// Ambiguous.
func ReconstructBreakdown(item PersistedLineItem, meta OrderMetadata) ItemDiscountBreakdown {
	final := item.Price
	coupon, couponKnown := meta.couponPercentage()
	volume := 0.0
	volumeKnown := item.VolumeDiscountPercentage != nil
	if volumeKnown {
		volume = clampPercentage(*item.VolumeDiscountPercentage)
	}

	out := ItemDiscountBreakdown{
		ProductID:                item.ProductID,
		Quantity:                 item.Quantity,
		FinalUnitPrice:           final,
		VolumeDiscountPercentage: volume,
		CouponPercentage:         coupon,
	}
	if !couponKnown && meta.HasCoupon {
		out.flag(noteCouponUnknown)
	}

	beforeVolume, invertible := undoStages(final, volume, coupon)
	if !invertible {
		out.flag(noteFullDiscount)
	}

	var seller float64
	sellerKnown := item.SellerDiscountPercentage != nil
	if sellerKnown {
		seller = clampPercentage(*item.SellerDiscountPercentage)
	}

	original := final
	switch {
	case item.OriginalPricePerUnit != nil:
		original = *item.OriginalPricePerUnit
	case !invertible:
	case sellerKnown && seller >= 100:
		out.flag(noteFullDiscount)
	case sellerKnown:
		original = round2(beforeVolume.Div(remainingFactor(seller)))
		out.Notes = append(out.Notes, noteOriginalMissing)
	default:
		original = round2(beforeVolume)
		out.flag(noteSellerUnknown)
	}
	out.OriginalUnitPrice = original

	if !sellerKnown {
		out.Inferred = true
		if invertible && item.OriginalPricePerUnit != nil {
			seller = inferSellerPercentage(original, beforeVolume)
		}
		if !volumeKnown && seller > 0 {
			out.flag(noteVolumeUnknown)
		}
	}
	out.SellerDiscountPercentage = seller

	staged := ApplyDiscounts(original, seller, volume, coupon)
	out.RecomputedUnitPrice = round2(staged.Final)
	out.Steps = append([]DiscountStep{originalStep(original)}, roundedSteps(staged.Steps)...)
	qty := decimal.NewFromInt(int64(item.Quantity))
	out.TotalSavings = original.Sub(final).Mul(qty)
	if out.TotalSavings.IsNegative() {
		out.TotalSavings = decimal.Zero
	}
	return out
}

func (b *ItemDiscountBreakdown) flag(note string) {
	b.Ambiguous = true
	b.Notes = append(b.Notes, note)
}

// undoStages divides the coupon and then the volume discount back out of the
// final price. A 100% stage cannot be inverted and reports false.
func undoStages(final Money, volumePct, couponPct float64) (Money, bool) {
	if couponPct >= 100 || volumePct >= 100 {
		return final, false
	}
	price := final
	if couponPct > 0 {
		price = price.Div(remainingFactor(couponPct))
	}
	if volumePct > 0 {
		price = price.Div(remainingFactor(volumePct))
	}
	return price, true
}

// inferSellerPercentage attributes the gap between original and the
// pre-volume price to the seller discount. Negative gaps are float noise.
func inferSellerPercentage(original, beforeVolume Money) float64 {
	if !original.IsPositive() {
		return 0
	}
	gap := original.Sub(beforeVolume)
	if !gap.IsPositive() {
		return 0
	}
	return clampPercentage(gap.Div(original).Mul(hundred).InexactFloat64())
}
