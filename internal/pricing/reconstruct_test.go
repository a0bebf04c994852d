package pricing_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-finance/internal/pricing"
)

func pct(v float64) *float64 { return &v }

func TestReconstructBreakdownRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(2024))
	for i := 0; i < 1000; i++ {
		original := pricing.MoneyFromCents(100 + rng.Int63n(1_000_000))
		seller := rng.Float64() * 90
		volume := rng.Float64() * 90
		coupon := rng.Float64() * 90
		if rng.Intn(4) == 0 {
			coupon = 0
		}

		forward := pricing.ApplyDiscounts(original, seller, volume, coupon)
		got := pricing.ReconstructBreakdown(pricing.PersistedLineItem{
			Quantity:                 1,
			Price:                    forward.Final,
			OriginalPricePerUnit:     &original,
			VolumeDiscountPercentage: pct(volume),
		}, pricing.OrderMetadata{CouponPercentage: pct(coupon)})

		require.InDeltaf(t, seller, got.SellerDiscountPercentage, 1e-6, "original %s seller %v volume %v coupon %v", original, seller, volume, coupon)
		require.True(t, got.Inferred)
		require.False(t, got.Ambiguous)
	}
}

func TestReconstructBreakdownSellerOnly(t *testing.T) {
	original := money(t, "100")
	got := pricing.ReconstructBreakdown(pricing.PersistedLineItem{
		ProductID:                "p",
		Quantity:                 2,
		Price:                    money(t, "90"),
		OriginalPricePerUnit:     &original,
		VolumeDiscountPercentage: pct(0),
	}, pricing.OrderMetadata{})

	require.InDelta(t, 10.0, got.SellerDiscountPercentage, 1e-9)
	require.Len(t, got.Steps, 2)
	require.Equal(t, pricing.StageOriginal, got.Steps[0].Stage)
	require.Equal(t, "Precio Original", got.Steps[0].Label)
	require.Equal(t, "Descuento Vendedor 10%", got.Steps[1].Label)
	requireMoney(t, "90", got.RecomputedUnitPrice)
	requireMoney(t, "20", got.TotalSavings)
	require.True(t, got.Inferred)
	require.False(t, got.Ambiguous)
}

func TestReconstructBreakdownUsesStoredSeller(t *testing.T) {
	original := money(t, "100")
	got := pricing.ReconstructBreakdown(pricing.PersistedLineItem{
		Quantity:                 1,
		Price:                    money(t, "72"),
		OriginalPricePerUnit:     &original,
		SellerDiscountPercentage: pct(10),
		VolumeDiscountPercentage: pct(20),
	}, pricing.OrderMetadata{})

	require.False(t, got.Inferred)
	require.False(t, got.Ambiguous)
	require.Equal(t, 10.0, got.SellerDiscountPercentage)
	require.Len(t, got.Steps, 3)
	requireMoney(t, "72", got.RecomputedUnitPrice)
}

func TestReconstructBreakdownCouponFromPricingBreakdown(t *testing.T) {
	original := money(t, "100")
	got := pricing.ReconstructBreakdown(pricing.PersistedLineItem{
		Quantity:                 1,
		Price:                    money(t, "81"),
		OriginalPricePerUnit:     &original,
		VolumeDiscountPercentage: pct(0),
	}, pricing.OrderMetadata{
		PricingBreakdown: &pricing.PricingBreakdown{CouponCode: "WELCOME", CouponPercentage: pct(10)},
		CouponPercentage: pct(50),
	})

	require.Equal(t, 10.0, got.CouponPercentage)
	require.InDelta(t, 10.0, got.SellerDiscountPercentage, 1e-9)
}

func TestReconstructBreakdownUnknownCouponIsFlagged(t *testing.T) {
	original := money(t, "100")
	got := pricing.ReconstructBreakdown(pricing.PersistedLineItem{
		Quantity:                 1,
		Price:                    money(t, "85.5"),
		OriginalPricePerUnit:     &original,
		VolumeDiscountPercentage: pct(0),
	}, pricing.OrderMetadata{HasCoupon: true})

	require.True(t, got.Ambiguous)
	require.NotEmpty(t, got.Notes)
	require.Zero(t, got.CouponPercentage)
	require.InDelta(t, 14.5, got.SellerDiscountPercentage, 1e-9)
}

func TestReconstructBreakdownUnknownVolumeIsFlagged(t *testing.T) {
	original := money(t, "100")
	got := pricing.ReconstructBreakdown(pricing.PersistedLineItem{
		Quantity:             1,
		Price:                money(t, "72"),
		OriginalPricePerUnit: &original,
	}, pricing.OrderMetadata{})

	require.True(t, got.Ambiguous)
	require.True(t, got.Inferred)
	require.InDelta(t, 28.0, got.SellerDiscountPercentage, 1e-9)
}

func TestReconstructBreakdownFullCouponDoesNotDivideByZero(t *testing.T) {
	original := money(t, "50")
	got := pricing.ReconstructBreakdown(pricing.PersistedLineItem{
		Quantity:                 1,
		Price:                    money(t, "0"),
		OriginalPricePerUnit:     &original,
		VolumeDiscountPercentage: pct(0),
	}, pricing.OrderMetadata{CouponPercentage: pct(100)})

	require.True(t, got.Ambiguous)
	require.Zero(t, got.SellerDiscountPercentage)
	require.True(t, got.RecomputedUnitPrice.IsZero())
	requireMoney(t, "50", got.TotalSavings)
}

func TestReconstructBreakdownMissingOriginal(t *testing.T) {
	got := pricing.ReconstructBreakdown(pricing.PersistedLineItem{
		Quantity:                 3,
		Price:                    money(t, "45"),
		VolumeDiscountPercentage: pct(10),
	}, pricing.OrderMetadata{})

	requireMoney(t, "50", got.OriginalUnitPrice)
	require.Zero(t, got.SellerDiscountPercentage)
	requireMoney(t, "15", got.TotalSavings)
	require.NotEmpty(t, got.Notes)
	require.True(t, got.Ambiguous)
}

func TestReconstructBreakdownMissingOriginalUndoesStoredSeller(t *testing.T) {
	got := pricing.ReconstructBreakdown(pricing.PersistedLineItem{
		Quantity:                 1,
		Price:                    money(t, "72"),
		SellerDiscountPercentage: pct(10),
		VolumeDiscountPercentage: pct(20),
	}, pricing.OrderMetadata{})

	requireMoney(t, "100", got.OriginalUnitPrice)
	requireMoney(t, "72", got.RecomputedUnitPrice)
	requireMoney(t, "72", got.Steps[len(got.Steps)-1].UnitPrice)
	requireMoney(t, "28", got.TotalSavings)
	require.Equal(t, 10.0, got.SellerDiscountPercentage)
	require.False(t, got.Inferred)
	require.False(t, got.Ambiguous)
}

func TestReconstructBreakdownMissingOriginalFullSellerIsFlagged(t *testing.T) {
	got := pricing.ReconstructBreakdown(pricing.PersistedLineItem{
		Quantity:                 1,
		Price:                    money(t, "0"),
		SellerDiscountPercentage: pct(100),
		VolumeDiscountPercentage: pct(0),
	}, pricing.OrderMetadata{})

	require.True(t, got.Ambiguous)
	require.True(t, got.OriginalUnitPrice.IsZero())
}

func TestReconstructBreakdownPriceAboveOriginal(t *testing.T) {
	original := money(t, "10")
	got := pricing.ReconstructBreakdown(pricing.PersistedLineItem{
		Quantity:                 1,
		Price:                    money(t, "12"),
		OriginalPricePerUnit:     &original,
		VolumeDiscountPercentage: pct(0),
	}, pricing.OrderMetadata{})

	require.Zero(t, got.SellerDiscountPercentage)
	require.True(t, got.TotalSavings.IsZero())
	require.False(t, math.IsNaN(got.SellerDiscountPercentage))
}
