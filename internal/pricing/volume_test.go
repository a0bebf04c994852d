package pricing_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-finance/internal/pricing"
)

var sampleTiers = []pricing.VolumeTier{
	{MinQuantity: 10, DiscountPercentage: 15, Label: "10+"},
	{MinQuantity: 3, DiscountPercentage: 5, Label: "3+"},
	{MinQuantity: 5, DiscountPercentage: 10, Label: "5+"},
}

func TestResolveTier(t *testing.T) {
	cases := []struct {
		name     string
		quantity int
		want     float64
		found    bool
	}{
		{"below first tier", 2, 0, false},
		{"exact threshold", 3, 5, true},
		{"between tiers", 7, 10, true},
		{"highest tier", 25, 15, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tier, ok := pricing.ResolveTier(sampleTiers, tc.quantity)
			require.Equal(t, tc.found, ok)
			require.Equal(t, tc.want, tier.DiscountPercentage)
		})
	}
}

func TestResolveTierDoesNotMutateInput(t *testing.T) {
	tiers := append([]pricing.VolumeTier(nil), sampleTiers...)
	_, _ = pricing.ResolveTier(tiers, 5)
	require.Equal(t, sampleTiers, tiers)
}

func TestResolveTierDuplicateThresholdTakesLast(t *testing.T) {
	tiers := []pricing.VolumeTier{
		{MinQuantity: 5, DiscountPercentage: 10, Label: "a"},
		{MinQuantity: 5, DiscountPercentage: 12, Label: "b"},
	}
	tier, ok := pricing.ResolveTier(tiers, 6)
	require.True(t, ok)
	require.Equal(t, "b", tier.Label)
}

func TestResolveTierEmpty(t *testing.T) {
	_, ok := pricing.ResolveTier(nil, 100)
	require.False(t, ok)
}

func TestNextTier(t *testing.T) {
	next, ok := pricing.NextTier(sampleTiers, 4)
	require.True(t, ok)
	require.Equal(t, 5, next.Tier.MinQuantity)
	require.Equal(t, 1, next.ItemsNeeded)

	next, ok = pricing.NextTier(sampleTiers, 5)
	require.True(t, ok)
	require.Equal(t, 10, next.Tier.MinQuantity)
	require.Equal(t, 5, next.ItemsNeeded)

	_, ok = pricing.NextTier(sampleTiers, 10)
	require.False(t, ok)
}
