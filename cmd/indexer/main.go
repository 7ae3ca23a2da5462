package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/geyser-noncompliance/internal/adapters/database"
	"github.com/zatekoja/geyser-noncompliance/internal/adapters/search"
	"github.com/zatekoja/geyser-noncompliance/internal/application/services"
	"github.com/zatekoja/geyser-noncompliance/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/geyser-noncompliance/internal/infrastructure/clients/typesense"
	"github.com/zatekoja/geyser-noncompliance/internal/infrastructure/observability"
	"github.com/zatekoja/geyser-noncompliance/pkg/config"
)

func main() {
	var reset bool
	var workers int
	flag.BoolVar(&reset, "reset", os.Getenv("RESET_TYPESENSE") == "true", "drop the assessments collection before reindexing")
	flag.IntVar(&workers, "workers", 0, "Number of concurrent workers (default RECLASSIFY_WORKERS)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	observability.InitLogger("indexer", cfg.Server.Env, cfg.Server.LogLevel)

	if workers <= 0 {
		workers = cfg.Reclassify.Workers
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := indexOnce(ctx, cfg, reset, workers); err != nil {
		log.Fatal().Err(err).Msg("Reindex failed")
	}
}

func indexOnce(ctx context.Context, cfg *config.Config, reset bool, workers int) error {
	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		return err
	}
	defer pgClient.Close()

	tsClient, err := typesense.NewClient(&cfg.Typesense)
	if err != nil {
		return err
	}

	if reset {
		log.Info().Msg("Dropping assessments collection")
		if err := tsClient.DropSchema(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to drop collection")
		}
	}
	if err := tsClient.InitSchema(ctx); err != nil {
		return err
	}

	svc := services.NewAssessmentBackfillService(
		database.NewAssessmentAdapter(pgClient),
		search.NewTypesenseAdapter(tsClient),
		nil, nil,
		workers, cfg.Reclassify.PageSize,
	)

	start := time.Now()
	summary, err := svc.ReindexAll(ctx)
	if summary != nil {
		log.Info().
			Dur("duration", time.Since(start)).
			Int("indexed", summary.UpdatedCount).
			Int("failed", summary.FailureCount).
			Msg("Reindex complete")
	}
	return err
}
