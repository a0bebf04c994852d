package pricing

import (
	"context"

	"github.com/noah-isme/toko-finance/internal/common"
	"github.com/noah-isme/toko-finance/internal/finance"
	"github.com/noah-isme/toko-finance/internal/obs"
)

// SettingsProvider yields the effective financial settings. *finance.Store
// satisfies it.
type SettingsProvider interface {
	Get(ctx context.Context) finance.Settings
}

// Engine binds the pure calculations to the current financial settings.
type Engine struct {
	settings SettingsProvider
}

// NewEngine constructs an Engine. A nil provider always uses the defaults.
func NewEngine(settings SettingsProvider) *Engine {
	return &Engine{settings: settings}
}

// Settings returns the settings a calculation made now would use.
func (e *Engine) Settings(ctx context.Context) finance.Settings {
	if e == nil || e.settings == nil {
		return finance.DefaultSettings()
	}
	return e.settings.Get(ctx)
}

// CalculateLinePricing runs a single line through the discount pipeline.
func (e *Engine) CalculateLinePricing(item LineItem) (LinePricing, error) {
	return CalculateLinePricing(item)
}

// PriceOrder prices a batch of lines sharing one coupon.
func (e *Engine) PriceOrder(items []LineItem, couponPct float64) (OrderPricing, error) {
	return PriceOrder(items, couponPct)
}

// SummarizeOrder computes commission and shipping split with the current settings.
func (e *Engine) SummarizeOrder(ctx context.Context, subtotal, shippingCost Money, sellerIDs []string) (OrderFinancialSummary, error) {
	return SummarizeOrder(subtotal, shippingCost, sellerIDs, RatesFrom(e.Settings(ctx)))
}

// ReconstructBreakdown rebuilds a persisted line's discount trail.
func (e *Engine) ReconstructBreakdown(item PersistedLineItem, meta OrderMetadata) ItemDiscountBreakdown {
	out := ReconstructBreakdown(item, meta)
	switch {
	case out.Ambiguous:
		obs.RecordBreakdown("ambiguous")
	case out.Inferred:
		obs.RecordBreakdown("inferred")
	default:
		obs.RecordBreakdown("exact")
	}
	return out
}

// ValidateConfiguration reports every violation in a candidate configuration.
func (e *Engine) ValidateConfiguration(s finance.Settings) common.ValidationErrors {
	return finance.Validate(s)
}

// RatesFrom maps settings onto the rates used by SummarizeOrder.
func RatesFrom(s finance.Settings) SummaryRates {
	return SummaryRates{
		CommissionRate: s.PlatformCommissionRate,
		Shipping: ShippingPolicy{
			SingleSellerPercentage: s.ShippingSellerPercentage,
			MaxSellerPercentage:    s.ShippingMaxSellerPercentage,
		},
	}
}
