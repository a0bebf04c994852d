package finance

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-finance/internal/common"
)

// Defaults served whenever no configuration can be fetched.
const (
	DefaultPlatformCommissionRate      = 10.0
	DefaultShippingSellerPercentage    = 80.0
	DefaultShippingMaxSellerPercentage = 40.0
	DefaultTTL                         = 5 * time.Minute
)

var (
	// ErrSettingsNotFound is returned by sources holding no settings yet.
	ErrSettingsNotFound = errors.New("finance: settings not found")
	// ErrSourceUnavailable wraps transport failures of a settings source.
	ErrSourceUnavailable = errors.New("finance: settings source unavailable")
	// ErrInvalidSettings marks a fetched payload that failed validation.
	ErrInvalidSettings = errors.New("finance: invalid settings")
)

// Settings are the tunable business parameters of the pricing engine.
// ShippingMaxSellerPercentage must stay below ShippingSellerPercentage; that
// is enforced by Validate, not by the type.
type Settings struct {
	PlatformCommissionRate      float64   `json:"platform_commission_rate" validate:"gte=0,lte=50"`
	ShippingSellerPercentage    float64   `json:"shipping_seller_percentage" validate:"gte=0,lte=100"`
	ShippingMaxSellerPercentage float64   `json:"shipping_max_seller_percentage" validate:"gte=0,lte=100"`
	LastUpdated                 time.Time `json:"last_updated"`
}

// Rounded returns the settings at the two-decimal precision they are stored with.
func (s Settings) Rounded() Settings {
	s.PlatformCommissionRate = round2(s.PlatformCommissionRate)
	s.ShippingSellerPercentage = round2(s.ShippingSellerPercentage)
	s.ShippingMaxSellerPercentage = round2(s.ShippingMaxSellerPercentage)
	return s
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// DefaultSettings returns the hard-coded fallback configuration.
func DefaultSettings() Settings {
	return Settings{
		PlatformCommissionRate:      DefaultPlatformCommissionRate,
		ShippingSellerPercentage:    DefaultShippingSellerPercentage,
		ShippingMaxSellerPercentage: DefaultShippingMaxSellerPercentage,
	}
}

// SettingsDTO is the wire shape persisted by the backend. All rates are
// required; a payload missing one is rejected instead of defaulting to zero.
type SettingsDTO struct {
	PlatformCommissionRate      *float64   `json:"platform_commission_rate"`
	ShippingSellerPercentage    *float64   `json:"shipping_seller_percentage"`
	ShippingMaxSellerPercentage *float64   `json:"shipping_max_seller_percentage"`
	LastUpdated                 *time.Time `json:"last_updated,omitempty"`
}

// DTO converts settings to their wire shape.
func (s Settings) DTO() SettingsDTO {
	commission := s.PlatformCommissionRate
	single := s.ShippingSellerPercentage
	maxShare := s.ShippingMaxSellerPercentage
	dto := SettingsDTO{
		PlatformCommissionRate:      &commission,
		ShippingSellerPercentage:    &single,
		ShippingMaxSellerPercentage: &maxShare,
	}
	if !s.LastUpdated.IsZero() {
		updated := s.LastUpdated
		dto.LastUpdated = &updated
	}
	return dto
}

// Settings converts the DTO, reporting every missing field.
func (d SettingsDTO) Settings() (Settings, error) {
	var errs common.ValidationErrors
	if d.PlatformCommissionRate == nil {
		errs.Add("platform_commission_rate", common.CodeRequired, "is required")
	}
	if d.ShippingSellerPercentage == nil {
		errs.Add("shipping_seller_percentage", common.CodeRequired, "is required")
	}
	if d.ShippingMaxSellerPercentage == nil {
		errs.Add("shipping_max_seller_percentage", common.CodeRequired, "is required")
	}
	if len(errs) > 0 {
		return Settings{}, errs
	}
	s := Settings{
		PlatformCommissionRate:      *d.PlatformCommissionRate,
		ShippingSellerPercentage:    *d.ShippingSellerPercentage,
		ShippingMaxSellerPercentage: *d.ShippingMaxSellerPercentage,
	}
	if d.LastUpdated != nil {
		s.LastUpdated = d.LastUpdated.UTC()
	}
	return s, nil
}

type settingsEnvelope struct {
	Data *SettingsDTO `json:"data"`
	SettingsDTO
}

// DecodeSettings reads a settings payload, bare or wrapped in {"data": ...},
// and validates it. Malformed payloads are rejected here so no partial value
// reaches a calculation.
func DecodeSettings(r io.Reader) (Settings, error) {
	var env settingsEnvelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return Settings{}, fmt.Errorf("%w: decode: %v", ErrInvalidSettings, err)
	}
	dto := env.SettingsDTO
	if env.Data != nil {
		dto = *env.Data
	}
	s, err := dto.Settings()
	if err != nil {
		return Settings{}, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	if errs := Validate(s); len(errs) > 0 {
		return Settings{}, fmt.Errorf("%w: %v", ErrInvalidSettings, errs)
	}
	return s, nil
}
