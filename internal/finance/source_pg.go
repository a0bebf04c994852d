package finance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool used by PGRepository.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PGRepository stores the single settings row in Postgres.
type PGRepository struct {
	DB DB
}

const selectSettingsSQL = `SELECT platform_commission_rate, shipping_seller_percentage, shipping_max_seller_percentage, updated_at
FROM financial_settings
WHERE id = 1`

const upsertSettingsSQL = `INSERT INTO financial_settings (id, platform_commission_rate, shipping_seller_percentage, shipping_max_seller_percentage, updated_at)
VALUES (1, $1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET
	platform_commission_rate = EXCLUDED.platform_commission_rate,
	shipping_seller_percentage = EXCLUDED.shipping_seller_percentage,
	shipping_max_seller_percentage = EXCLUDED.shipping_max_seller_percentage,
	updated_at = EXCLUDED.updated_at`

// FetchSettings implements Source.
func (r PGRepository) FetchSettings(ctx context.Context) (Settings, error) {
	if r.DB == nil {
		return Settings{}, fmt.Errorf("%w: database not configured", ErrSourceUnavailable)
	}
	var (
		s         Settings
		updatedAt time.Time
	)
	err := r.DB.QueryRow(ctx, selectSettingsSQL).Scan(
		&s.PlatformCommissionRate,
		&s.ShippingSellerPercentage,
		&s.ShippingMaxSellerPercentage,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Settings{}, ErrSettingsNotFound
		}
		return Settings{}, fmt.Errorf("finance: select settings: %w", err)
	}
	s.LastUpdated = updatedAt.UTC()
	return s, nil
}

// SaveSettings upserts the settings row. LastUpdated is stamped by the caller.
func (r PGRepository) SaveSettings(ctx context.Context, s Settings) (Settings, error) {
	if r.DB == nil {
		return Settings{}, fmt.Errorf("%w: database not configured", ErrSourceUnavailable)
	}
	if s.LastUpdated.IsZero() {
		s.LastUpdated = time.Now().UTC()
	}
	if _, err := r.DB.Exec(ctx, upsertSettingsSQL,
		s.PlatformCommissionRate,
		s.ShippingSellerPercentage,
		s.ShippingMaxSellerPercentage,
		s.LastUpdated,
	); err != nil {
		return Settings{}, fmt.Errorf("finance: upsert settings: %w", err)
	}
	return s, nil
}
