package main

import (
	"flag"
	"os"

	"github.com/joho/godotenv"

	"github.com/noah-isme/toko-finance/internal/db"
	"github.com/noah-isme/toko-finance/internal/obs"
)

func main() {
	_ = godotenv.Load()
	logger := obs.NewLogger("console", "info")

	dir := flag.String("dir", string(db.Up), "migration direction: up or down")
	flag.Parse()

	url := os.Getenv("DATABASE_URL")
	if url == "" {
		logger.Fatal().Msg("DATABASE_URL is not set")
	}

	version, err := db.Migrate(url, db.Direction(*dir))
	if err != nil {
		logger.Fatal().Err(err).Str("direction", *dir).Msg("migrate")
	}
	logger.Info().Uint("version", version).Str("direction", *dir).Msg("migrations applied")
}
