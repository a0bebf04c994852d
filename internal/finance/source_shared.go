package finance

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-finance/internal/cache"
)

// SharedKey is the Redis key holding the settings shared across instances.
const SharedKey = "settings"

// SharedSource fronts another Source with a Redis copy so that a fleet of
// instances hits the system of record once per shared TTL.
type SharedSource struct {
	Cache  *cache.JSON
	Next   Source
	Logger *zerolog.Logger
}

// FetchSettings implements Source. Redis errors fall through to Next.
func (s SharedSource) FetchSettings(ctx context.Context) (Settings, error) {
	if s.Cache.Enabled() {
		var dto SettingsDTO
		ok, err := s.Cache.Get(ctx, SharedKey, &dto)
		switch {
		case err != nil:
			s.warn(err, "shared settings read failed")
		case ok:
			settings, convErr := dto.Settings()
			if convErr == nil && len(Validate(settings)) == 0 {
				return settings, nil
			}
			s.warn(errors.Join(convErr, Validate(settings).Err()), "shared settings discarded")
		}
	}
	if s.Next == nil {
		return Settings{}, ErrSettingsNotFound
	}
	settings, err := s.Next.FetchSettings(ctx)
	if err != nil {
		return Settings{}, err
	}
	if setErr := s.Cache.Set(ctx, SharedKey, settings.DTO()); setErr != nil {
		s.warn(setErr, "shared settings write failed")
	}
	return settings, nil
}

// Invalidate drops the shared copy.
func (s SharedSource) Invalidate(ctx context.Context) error {
	return s.Cache.Delete(ctx, SharedKey)
}

func (s SharedSource) warn(err error, msg string) {
	if s.Logger == nil {
		return
	}
	s.Logger.Warn().Err(err).Msg(msg)
}
