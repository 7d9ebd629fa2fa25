// Command cache-sweep removes expired lookup-cache entries and prints cache
// statistics. Intended to run from cron or a scheduled job.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"bandroom/internal/config"
	"bandroom/internal/lookup"
	"bandroom/internal/models"
	"bandroom/internal/repositories"
)

func main() {
	// Load .env file for local development
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	maxAgeHours := flag.Int("max-age-hours", 0, "retention window in hours (0 uses the cache policy)")
	statsOnly := flag.Bool("stats-only", false, "print cache statistics without deleting anything")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := models.NewDatabase(ctx, cfg.MongodbURL, cfg.DBName)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close(context.Background())

	resultCache := lookup.NewResultCache(repositories.NewMongoEntryRepository(db), nil)

	stats, err := resultCache.Stats(ctx)
	if err != nil {
		slog.Error("Failed to collect cache stats", "error", err)
		os.Exit(1)
	}
	slog.Info("Cache state before sweep",
		"total_entries", stats.TotalEntries,
		"estimated_size_mb", stats.EstimatedSizeMB,
		"by_kind", stats.CountsByKind)

	if *statsOnly {
		return
	}

	policy := config.GetCachePolicy()
	maxAge := time.Duration(policy.SweepMaxAgeHours) * time.Hour
	if *maxAgeHours > 0 {
		maxAge = time.Duration(*maxAgeHours) * time.Hour
	}

	deleted, err := resultCache.SweepExpired(ctx, maxAge)
	if err != nil {
		slog.Error("Sweep failed", "error", err)
		os.Exit(1)
	}

	slog.Info("Sweep complete", "deleted", deleted, "max_age", maxAge)
}
