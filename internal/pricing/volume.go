package pricing

import "sort"

// VolumeTier is one row of a product's "buy more, pay less" table.
type VolumeTier struct {
	MinQuantity        int     `json:"quantity"`
	DiscountPercentage float64 `json:"discount"`
	Label              string  `json:"label"`
}

// TierProgress describes the next tier a buyer can unlock.
type TierProgress struct {
	Tier        VolumeTier `json:"tier"`
	ItemsNeeded int        `json:"items_needed"`
}

func sortedTiers(tiers []VolumeTier) []VolumeTier {
	out := make([]VolumeTier, len(tiers))
	copy(out, tiers)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].MinQuantity < out[j].MinQuantity
	})
	return out
}

// ResolveTier returns the tier with the highest threshold met by quantity.
// Tiers do not stack. When thresholds repeat, the one listed last wins.
func ResolveTier(tiers []VolumeTier, quantity int) (VolumeTier, bool) {
	var (
		active VolumeTier
		found  bool
	)
	for _, tier := range sortedTiers(tiers) {
		if tier.MinQuantity > quantity {
			break
		}
		active = tier
		found = true
	}
	return active, found
}

// NextTier returns the smallest threshold strictly above quantity.
func NextTier(tiers []VolumeTier, quantity int) (TierProgress, bool) {
	for _, tier := range sortedTiers(tiers) {
		if tier.MinQuantity > quantity {
			return TierProgress{Tier: tier, ItemsNeeded: tier.MinQuantity - quantity}, true
		}
	}
	return TierProgress{}, false
}
