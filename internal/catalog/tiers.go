package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-finance/internal/cache"
	"github.com/noah-isme/toko-finance/internal/pricing"
)

// Querier is the subset of pgxpool.Pool used by TierRepository.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// TierRepositoryConfig groups TierRepository dependencies.
type TierRepositoryConfig struct {
	DB     Querier
	Cache  *cache.JSON
	Logger *zerolog.Logger
}

// TierRepository loads per-product volume discount tables.
type TierRepository struct {
	db     Querier
	cache  *cache.JSON
	logger zerolog.Logger
}

const listTiersSQL = `SELECT min_quantity, discount_percentage, label
FROM product_volume_discounts
WHERE product_id = $1
ORDER BY min_quantity ASC`

// NewTierRepository constructs a TierRepository.
func NewTierRepository(cfg TierRepositoryConfig) (*TierRepository, error) {
	if cfg.DB == nil {
		return nil, errors.New("catalog: database is required")
	}
	repo := &TierRepository{db: cfg.DB, cache: cfg.Cache, logger: zerolog.Nop()}
	if cfg.Logger != nil {
		repo.logger = *cfg.Logger
	}
	return repo, nil
}

// VolumeTiers returns the tiers of a product sorted by threshold. A product
// without tiers yields an empty slice.
func (r *TierRepository) VolumeTiers(ctx context.Context, productID uuid.UUID) ([]pricing.VolumeTier, error) {
	key := tiersCacheKey(productID)
	var cached []pricing.VolumeTier
	ok, err := r.cache.Get(ctx, key, &cached)
	if err != nil {
		r.logger.Warn().Err(err).Str("product_id", productID.String()).Msg("volume tier cache read failed")
	}
	if ok {
		return cached, nil
	}

	rows, err := r.db.Query(ctx, listTiersSQL, productID)
	if err != nil {
		return nil, fmt.Errorf("list volume tiers: %w", err)
	}
	defer rows.Close()

	tiers := make([]pricing.VolumeTier, 0, 4)
	for rows.Next() {
		var tier pricing.VolumeTier
		if err := rows.Scan(&tier.MinQuantity, &tier.DiscountPercentage, &tier.Label); err != nil {
			return nil, fmt.Errorf("scan volume tier: %w", err)
		}
		tiers = append(tiers, tier)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list volume tiers: %w", err)
	}

	if err := r.cache.Set(ctx, key, tiers); err != nil {
		r.logger.Warn().Err(err).Str("product_id", productID.String()).Msg("volume tier cache write failed")
	}
	return tiers, nil
}

func tiersCacheKey(productID uuid.UUID) string {
	return "tiers:" + productID.String()
}
