package finance_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-finance/internal/common"
	"github.com/noah-isme/toko-finance/internal/finance"
)

func TestValidateRejectsMaxAboveSingle(t *testing.T) {
	errs := finance.Validate(finance.Settings{
		PlatformCommissionRate:      10,
		ShippingSellerPercentage:    80,
		ShippingMaxSellerPercentage: 90,
	})
	require.Len(t, errs, 1)
	require.Equal(t, "shipping_max_seller_percentage", errs[0].Field)
	require.Equal(t, common.CodeConflict, errs[0].Code)
}

func TestValidateReportsEveryViolation(t *testing.T) {
	errs := finance.Validate(finance.Settings{
		PlatformCommissionRate:      60,
		ShippingSellerPercentage:    120,
		ShippingMaxSellerPercentage: -1,
	})
	require.True(t, errs.HasField("platform_commission_rate"))
	require.True(t, errs.HasField("shipping_seller_percentage"))
	require.True(t, errs.HasField("shipping_max_seller_percentage"))
}

func TestValidateEqualPercentagesConflict(t *testing.T) {
	errs := finance.Validate(finance.Settings{
		PlatformCommissionRate:      10,
		ShippingSellerPercentage:    50,
		ShippingMaxSellerPercentage: 50,
	})
	require.True(t, errs.HasField("shipping_max_seller_percentage"))
}

func TestValidateReportsRangeAndOrderingTogether(t *testing.T) {
	errs := finance.Validate(finance.Settings{
		PlatformCommissionRate:      10,
		ShippingSellerPercentage:    80,
		ShippingMaxSellerPercentage: 150,
	})
	require.Len(t, errs, 2)
	codes := []string{errs[0].Code, errs[1].Code}
	require.ElementsMatch(t, []string{common.CodeOutOfRange, common.CodeConflict}, codes)
	for _, e := range errs {
		require.Equal(t, "shipping_max_seller_percentage", e.Field)
	}
}

func TestSettingsRounded(t *testing.T) {
	got := finance.Settings{
		PlatformCommissionRate:      33.333,
		ShippingSellerPercentage:    80.005,
		ShippingMaxSellerPercentage: 40,
	}.Rounded()
	require.Equal(t, 33.33, got.PlatformCommissionRate)
	require.Equal(t, 80.01, got.ShippingSellerPercentage)
	require.Equal(t, 40.0, got.ShippingMaxSellerPercentage)
}

func TestValidateDefaults(t *testing.T) {
	require.Empty(t, finance.Validate(finance.DefaultSettings()))
}

func TestDecodeSettings(t *testing.T) {
	s, err := finance.DecodeSettings(strings.NewReader(`{
		"platform_commission_rate": 12.5,
		"shipping_seller_percentage": 75,
		"shipping_max_seller_percentage": 35,
		"last_updated": "2024-05-01T10:00:00Z"
	}`))
	require.NoError(t, err)
	require.Equal(t, 12.5, s.PlatformCommissionRate)
	require.Equal(t, 75.0, s.ShippingSellerPercentage)
	require.Equal(t, 35.0, s.ShippingMaxSellerPercentage)
	require.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), s.LastUpdated)
}

func TestDecodeSettingsEnvelope(t *testing.T) {
	s, err := finance.DecodeSettings(strings.NewReader(`{"data":{"platform_commission_rate":8,"shipping_seller_percentage":70,"shipping_max_seller_percentage":30}}`))
	require.NoError(t, err)
	require.Equal(t, 8.0, s.PlatformCommissionRate)
}

func TestDecodeSettingsRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":      `{`,
		"missing field": `{"platform_commission_rate":8,"shipping_seller_percentage":70}`,
		"wrong type":    `{"platform_commission_rate":"eight","shipping_seller_percentage":70,"shipping_max_seller_percentage":30}`,
		"out of range":  `{"platform_commission_rate":80,"shipping_seller_percentage":70,"shipping_max_seller_percentage":30}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := finance.DecodeSettings(strings.NewReader(body))
			require.ErrorIs(t, err, finance.ErrInvalidSettings)
		})
	}
}

func TestSettingsDTORoundTrip(t *testing.T) {
	in := finance.Settings{
		PlatformCommissionRate:      10,
		ShippingSellerPercentage:    80,
		ShippingMaxSellerPercentage: 40,
		LastUpdated:                 time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	out, err := in.DTO().Settings()
	require.NoError(t, err)
	require.Equal(t, in, out)
}
