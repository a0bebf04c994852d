package finance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-finance/internal/common"
	"github.com/noah-isme/toko-finance/internal/obs"
)

// Saver persists settings. PGRepository satisfies it.
type Saver interface {
	SaveSettings(ctx context.Context, s Settings) (Settings, error)
}

// Locker serialises updates across instances. lock.Locker satisfies it.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

const (
	updateLockKey = "finance:settings:update"
	updateLockTTL = 10 * time.Second
)

// SharedInvalidator drops the fleet-wide copy of the settings.
type SharedInvalidator interface {
	Invalidate(ctx context.Context) error
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store       *Store
	Repo        Saver
	Shared      SharedInvalidator
	Broadcaster *Broadcaster
	Locker      Locker
	Logger      *zerolog.Logger
	Now         func() time.Time
}

// Service reads and updates the financial settings.
type Service struct {
	store       *Store
	repo        Saver
	shared      SharedInvalidator
	broadcaster *Broadcaster
	locker      Locker
	logger      zerolog.Logger
	now         func() time.Time
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("finance: store is required")
	}
	svc := &Service{
		store:       cfg.Store,
		repo:        cfg.Repo,
		shared:      cfg.Shared,
		broadcaster: cfg.Broadcaster,
		locker:      cfg.Locker,
		logger:      zerolog.Nop(),
		now:         cfg.Now,
	}
	if cfg.Logger != nil {
		svc.logger = *cfg.Logger
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc, nil
}

// Current returns the effective settings.
func (s *Service) Current(ctx context.Context) Settings {
	return s.store.Get(ctx)
}

// Validate checks a candidate payload without saving it. Rates are rounded to
// the stored precision first.
func (s *Service) Validate(dto SettingsDTO) (Settings, error) {
	settings, err := dto.Settings()
	if err != nil {
		return Settings{}, validationFailed(err)
	}
	settings = settings.Rounded()
	if errs := Validate(settings); len(errs) > 0 {
		return Settings{}, validationFailed(errs)
	}
	return settings, nil
}

// Update validates, persists and propagates new settings. Invalid payloads
// are rejected before anything is written.
func (s *Service) Update(ctx context.Context, dto SettingsDTO) (Settings, error) {
	settings, err := s.Validate(dto)
	if err != nil {
		obs.RecordSettingsUpdate("invalid")
		return Settings{}, err
	}
	if s.repo == nil {
		obs.RecordSettingsUpdate("error")
		return Settings{}, common.NewAppError("SETTINGS_READ_ONLY", "settings source is read-only", http.StatusConflict, nil)
	}
	var saved Settings
	err = s.withLock(ctx, func(ctx context.Context) error {
		settings.LastUpdated = s.now().UTC()
		var saveErr error
		saved, saveErr = s.repo.SaveSettings(ctx, settings)
		if saveErr != nil {
			return fmt.Errorf("save settings: %w", saveErr)
		}
		// shared copy first: a local miss in between must not refill from it
		if s.shared != nil {
			if err := s.shared.Invalidate(ctx); err != nil {
				s.logger.Warn().Err(err).Msg("shared settings invalidation failed")
			}
		}
		s.store.Invalidate()
		return nil
	})
	if err != nil {
		obs.RecordSettingsUpdate("error")
		return Settings{}, err
	}
	if err := s.broadcaster.Publish(ctx, saved.LastUpdated); err != nil {
		s.logger.Warn().Err(err).Msg("settings broadcast failed")
	}
	obs.RecordSettingsUpdate("success")
	s.logger.Info().
		Float64("platform_commission_rate", saved.PlatformCommissionRate).
		Float64("shipping_seller_percentage", saved.ShippingSellerPercentage).
		Float64("shipping_max_seller_percentage", saved.ShippingMaxSellerPercentage).
		Msg("financial settings updated")
	return saved, nil
}

func (s *Service) withLock(ctx context.Context, fn func(context.Context) error) error {
	if s.locker == nil {
		return fn(ctx)
	}
	return s.locker.WithLock(ctx, updateLockKey, updateLockTTL, fn)
}

func validationFailed(err error) *common.AppError {
	appErr := common.NewAppError("VALIDATION_ERROR", "invalid financial settings", http.StatusUnprocessableEntity, err)
	var errs common.ValidationErrors
	if errors.As(err, &errs) {
		return appErr.WithDetails(errs)
	}
	return appErr
}
