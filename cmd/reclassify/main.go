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
	"github.com/zatekoja/geyser-noncompliance/internal/adapters/events"
	"github.com/zatekoja/geyser-noncompliance/internal/adapters/search"
	"github.com/zatekoja/geyser-noncompliance/internal/application/services"
	"github.com/zatekoja/geyser-noncompliance/internal/domain/providers"
	"github.com/zatekoja/geyser-noncompliance/internal/domain/repositories"
	"github.com/zatekoja/geyser-noncompliance/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/geyser-noncompliance/internal/infrastructure/clients/redis"
	"github.com/zatekoja/geyser-noncompliance/internal/infrastructure/clients/typesense"
	"github.com/zatekoja/geyser-noncompliance/internal/infrastructure/observability"
	"github.com/zatekoja/geyser-noncompliance/pkg/config"
)

func main() {
	var workers int
	var pageSize int
	var assessmentID string
	var schedule string

	flag.IntVar(&workers, "workers", 0, "Number of concurrent workers (default RECLASSIFY_WORKERS)")
	flag.IntVar(&pageSize, "page-size", 0, "Ids fetched per page (default RECLASSIFY_PAGE_SIZE)")
	flag.StringVar(&assessmentID, "assessment", "", "Single assessment ID to reclassify")
	flag.StringVar(&schedule, "schedule", "", "Cron expression to repeat the pass (default RECLASSIFY_SCHEDULE, empty runs once)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	observability.InitLogger("reclassify", cfg.Server.Env, cfg.Server.LogLevel)

	if workers <= 0 {
		workers = cfg.Reclassify.Workers
	}
	if pageSize <= 0 {
		pageSize = cfg.Reclassify.PageSize
	}
	if schedule == "" {
		schedule = cfg.Reclassify.Schedule
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pgClient.Close()

	repo := database.NewAssessmentAdapter(pgClient)

	var searchRepo repositories.AssessmentSearchRepository
	if tsClient, err := typesense.NewClient(&cfg.Typesense); err != nil {
		log.Warn().Err(err).Msg("Typesense unavailable; index will not be refreshed")
	} else {
		searchRepo = search.NewTypesenseAdapter(tsClient)
	}

	var bus providers.EventBus
	if redisClient, err := redis.NewClient(&cfg.Redis); err != nil {
		log.Warn().Err(err).Msg("Redis unavailable; reclassified events will not be published")
	} else {
		defer redisClient.Close()
		bus = events.NewRedisEventBus(redisClient)
		defer bus.Close()
	}

	svc := services.NewAssessmentBackfillService(repo, searchRepo, bus, nil, workers, pageSize)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if assessmentID != "" {
		changed, err := svc.ReclassifySingle(ctx, assessmentID)
		if err != nil {
			log.Fatal().Err(err).Str("assessment_id", assessmentID).Msg("Failed to reclassify assessment")
		}
		log.Info().Str("assessment_id", assessmentID).Bool("changed", changed).Msg("Reclassified assessment")
		return
	}

	runPass := func(ctx context.Context) error {
		start := time.Now()
		log.Info().Int("workers", workers).Int("page_size", pageSize).Msg("Starting reclassification")
		summary, err := svc.ReclassifyAll(ctx)
		if summary != nil {
			log.Info().
				Dur("duration", time.Since(start)).
				Int("processed", summary.TotalProcessed).
				Int("updated", summary.UpdatedCount).
				Int("unchanged", summary.UnchangedCount).
				Int("failed", summary.FailureCount).
				Msg("Reclassification complete")
		}
		return err
	}

	if schedule == "" {
		if err := runPass(ctx); err != nil {
			log.Fatal().Err(err).Msg("Reclassification failed")
		}
		return
	}

	parsed, err := services.ParseSchedule(schedule)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid schedule")
	}
	services.NewScheduledJob("reclassify", parsed, runPass).Start(ctx)
}
