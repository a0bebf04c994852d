package finance

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"

	"github.com/noah-isme/toko-finance/internal/obs"
)

// Source fetches the current settings from their system of record.
type Source interface {
	FetchSettings(ctx context.Context) (Settings, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (Settings, error)

// FetchSettings implements Source.
func (f SourceFunc) FetchSettings(ctx context.Context) (Settings, error) { return f(ctx) }

// StoreConfig groups Store dependencies.
type StoreConfig struct {
	Source Source
	// SourceName labels logs and metrics.
	SourceName string
	TTL        time.Duration
	// FailureBackoff serves the fallback without refetching for this long
	// after a failed fetch. Zero refetches on every miss.
	FailureBackoff time.Duration
	FetchTimeout   time.Duration
	Logger         *zerolog.Logger
	Now            func() time.Time
}

// Store is the time-bounded settings cache. Reads never fail: a fetch error
// degrades to the last cached value, then to DefaultSettings.
type Store struct {
	source         Source
	sourceName     string
	ttl            time.Duration
	failureBackoff time.Duration
	fetchTimeout   time.Duration
	logger         zerolog.Logger
	now            func() time.Time

	group singleflight.Group

	mu         sync.RWMutex
	cached     *Settings
	cachedAt   time.Time
	failedAt   time.Time
	generation uint64
}

// NewStore constructs a Store. A nil source always serves defaults.
func NewStore(cfg StoreConfig) *Store {
	s := &Store{
		source:         cfg.Source,
		sourceName:     cfg.SourceName,
		ttl:            cfg.TTL,
		failureBackoff: cfg.FailureBackoff,
		fetchTimeout:   cfg.FetchTimeout,
		logger:         zerolog.Nop(),
		now:            cfg.Now,
	}
	if s.ttl <= 0 {
		s.ttl = DefaultTTL
	}
	if s.sourceName == "" {
		s.sourceName = "default"
	}
	if cfg.Logger != nil {
		s.logger = cfg.Logger.With().Str("component", "finance_settings").Logger()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Get returns the cached settings while fresh and refetches otherwise.
// Concurrent misses share one in-flight fetch.
func (s *Store) Get(ctx context.Context) Settings {
	settings, gen, ok := s.lookup()
	if ok {
		return settings
	}
	obs.RecordSettingsCache("miss")

	key := "settings:" + strconv.FormatUint(gen, 10)
	v, _, _ := s.group.Do(key, func() (any, error) {
		// a flight that finished between our lookup and Do may have filled the cache
		if settings, _, ok := s.lookup(); ok {
			return settings, nil
		}
		return s.refresh(context.WithoutCancel(ctx), gen), nil
	})
	return v.(Settings)
}

// Invalidate drops the cached value. A Get that starts afterwards never sees
// the dropped value, even if an older fetch completes later.
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached = nil
	s.cachedAt = time.Time{}
	s.failedAt = time.Time{}
	s.generation++
}

func (s *Store) lookup() (Settings, uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.now()
	if s.cached != nil && now.Before(s.cachedAt.Add(s.ttl)) {
		obs.RecordSettingsCache("hit")
		return *s.cached, s.generation, true
	}
	if s.failureBackoff > 0 && !s.failedAt.IsZero() && now.Before(s.failedAt.Add(s.failureBackoff)) {
		obs.RecordSettingsCache("backoff")
		return s.fallbackLocked(), s.generation, true
	}
	return Settings{}, s.generation, false
}

func (s *Store) refresh(ctx context.Context, gen uint64) Settings {
	if s.source == nil {
		return s.fallback()
	}
	ctx, span := otel.Tracer("finance").Start(ctx, "finance.settings.fetch")
	defer span.End()
	span.SetAttributes(attribute.String("finance.source", s.sourceName))

	if s.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.fetchTimeout)
		defer cancel()
	}

	start := time.Now()
	settings, err := s.source.FetchSettings(ctx)
	if err == nil {
		if errs := Validate(settings); len(errs) > 0 {
			err = fmt.Errorf("%w: %v", ErrInvalidSettings, errs)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.generation == gen

	if err != nil {
		obs.RecordSettingsFetch(s.sourceName, "error", time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, "settings fetch failed")
		if current {
			s.failedAt = s.now()
		}
		fallback := s.fallbackLocked()
		s.logger.Warn().Err(err).
			Str("source", s.sourceName).
			Bool("stale", s.cached != nil).
			Msg("finance settings fetch failed, serving fallback")
		return fallback
	}

	obs.RecordSettingsFetch(s.sourceName, "success", time.Since(start))
	if current {
		stored := settings
		s.cached = &stored
		s.cachedAt = s.now()
		s.failedAt = time.Time{}
	}
	return settings
}

func (s *Store) fallback() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fallbackLocked()
}

func (s *Store) fallbackLocked() Settings {
	if s.cached != nil {
		return *s.cached
	}
	return DefaultSettings()
}
