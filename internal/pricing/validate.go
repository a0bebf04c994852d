package pricing

import (
	"math"
	"strconv"

	"github.com/noah-isme/toko-finance/internal/common"
)

func checkPercentage(errs *common.ValidationErrors, field string, pct float64) {
	if math.IsNaN(pct) || pct < 0 || pct > 100 {
		errs.Add(field, common.CodeOutOfRange, "must be between 0 and 100, got %v", pct)
	}
}

func checkAmount(errs *common.ValidationErrors, field string, amount Money) {
	if amount.IsNegative() {
		errs.Add(field, common.CodeNegative, "must not be negative, got %s", amount.String())
	}
}

func checkTier(errs *common.ValidationErrors, prefix string, tier VolumeTier) {
	if tier.MinQuantity < 1 {
		errs.Add(prefix+".quantity", common.CodeInvalidQuantity, "must be at least 1, got %d", tier.MinQuantity)
	}
	checkPercentage(errs, prefix+".discount", tier.DiscountPercentage)
}

// ValidateLineItem reports every invalid field of a pipeline input. Invalid
// values are rejected, never clamped.
func ValidateLineItem(item LineItem) common.ValidationErrors {
	var errs common.ValidationErrors
	if item.Quantity < 1 {
		errs.Add("quantity", common.CodeInvalidQuantity, "must be at least 1, got %d", item.Quantity)
	}
	checkAmount(&errs, "original_unit_price", item.OriginalUnitPrice)
	checkPercentage(&errs, "seller_discount_percentage", item.SellerDiscountPercentage)
	checkPercentage(&errs, "coupon_percentage", item.CouponPercentage)
	if item.AppliedVolumeTier != nil {
		checkTier(&errs, "applied_volume_tier", *item.AppliedVolumeTier)
	}
	for i, tier := range item.VolumeTiers {
		checkTier(&errs, "volume_tiers["+strconv.Itoa(i)+"]", tier)
	}
	return errs
}

// ValidateTiers reports invalid entries of a volume discount table.
func ValidateTiers(tiers []VolumeTier) common.ValidationErrors {
	var errs common.ValidationErrors
	for i, tier := range tiers {
		checkTier(&errs, "volume_tiers["+strconv.Itoa(i)+"]", tier)
	}
	return errs
}

// ValidateBreakdownInput reports invalid persisted lines and order metadata.
// Stored percentages outside [0, 100] are rejected rather than clamped.
func ValidateBreakdownInput(items []PersistedLineItem, meta OrderMetadata) common.ValidationErrors {
	var errs common.ValidationErrors
	for i, item := range items {
		prefix := "items[" + strconv.Itoa(i) + "]."
		if item.Quantity < 1 {
			errs.Add(prefix+"quantity", common.CodeInvalidQuantity, "must be at least 1, got %d", item.Quantity)
		}
		checkAmount(&errs, prefix+"price", item.Price)
		if item.OriginalPricePerUnit != nil {
			checkAmount(&errs, prefix+"original_price_per_unit", *item.OriginalPricePerUnit)
		}
		if item.SellerDiscountPercentage != nil {
			checkPercentage(&errs, prefix+"seller_discount_percentage", *item.SellerDiscountPercentage)
		}
		if item.VolumeDiscountPercentage != nil {
			checkPercentage(&errs, prefix+"volume_discount_percentage", *item.VolumeDiscountPercentage)
		}
	}
	if meta.PricingBreakdown != nil && meta.PricingBreakdown.CouponPercentage != nil {
		checkPercentage(&errs, "metadata.pricing_breakdown.coupon_percentage", *meta.PricingBreakdown.CouponPercentage)
	}
	if meta.CouponPercentage != nil {
		checkPercentage(&errs, "metadata.coupon_percentage", *meta.CouponPercentage)
	}
	return errs
}
