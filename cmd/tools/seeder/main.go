package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-finance/internal/finance"
	"github.com/noah-isme/toko-finance/internal/obs"
	"github.com/noah-isme/toko-finance/internal/pricing"
)

// demoTiers mirrors the wholesale table used on the storefront.
var demoTiers = []pricing.VolumeTier{
	{MinQuantity: 3, DiscountPercentage: 5, Label: "3+ unidades"},
	{MinQuantity: 6, DiscountPercentage: 10, Label: "6+ unidades"},
	{MinQuantity: 12, DiscountPercentage: 15, Label: "12+ unidades"},
}

func main() {
	if err := godotenv.Load(); err != nil {
		// fine outside local development
		_ = err
	}
	logger := obs.NewLogger("console", "info")

	productFlag := flag.String("product", "", "product id to attach demo volume tiers to (random when empty)")
	flag.Parse()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Fatal().Msg("DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("open database")
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	seedSettings(ctx, pool, logger)

	productID := uuid.New()
	if *productFlag != "" {
		productID, err = uuid.Parse(*productFlag)
		if err != nil {
			logger.Fatal().Err(err).Msg("parse product id")
		}
	}
	seedTiers(ctx, pool, productID, logger)

	logger.Info().Msg("seeding completed")
}

func seedSettings(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger) {
	repo := finance.PGRepository{DB: pool}
	if _, err := repo.FetchSettings(ctx); err == nil {
		logger.Info().Msg("financial settings already present, skipping")
		return
	}
	saved, err := repo.SaveSettings(ctx, finance.DefaultSettings())
	if err != nil {
		logger.Fatal().Err(err).Msg("seed financial settings")
	}
	logger.Info().
		Float64("platform_commission_rate", saved.PlatformCommissionRate).
		Float64("shipping_seller_percentage", saved.ShippingSellerPercentage).
		Float64("shipping_max_seller_percentage", saved.ShippingMaxSellerPercentage).
		Msg("financial settings seeded")
}

func seedTiers(ctx context.Context, pool *pgxpool.Pool, productID uuid.UUID, logger zerolog.Logger) {
	if errs := pricing.ValidateTiers(demoTiers); len(errs) > 0 {
		logger.Fatal().Err(errs).Msg("demo tiers invalid")
	}
	batch := &pgx.Batch{}
	for _, tier := range demoTiers {
		batch.Queue(`INSERT INTO product_volume_discounts (product_id, min_quantity, discount_percentage, label)
VALUES ($1, $2, $3, $4)
ON CONFLICT (product_id, min_quantity) DO UPDATE SET discount_percentage = EXCLUDED.discount_percentage, label = EXCLUDED.label`,
			productID, tier.MinQuantity, tier.DiscountPercentage, tier.Label)
	}
	if err := pool.SendBatch(ctx, batch).Close(); err != nil {
		logger.Fatal().Err(err).Msg("seed volume tiers")
	}
	logger.Info().Str("product_id", productID.String()).Int("tiers", len(demoTiers)).Msg("volume tiers seeded")
}
