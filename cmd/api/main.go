package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/geyser-noncompliance/internal/adapters/cache"
	"github.com/zatekoja/geyser-noncompliance/internal/adapters/database"
	"github.com/zatekoja/geyser-noncompliance/internal/adapters/events"
	"github.com/zatekoja/geyser-noncompliance/internal/adapters/search"
	"github.com/zatekoja/geyser-noncompliance/internal/api/handlers"
	"github.com/zatekoja/geyser-noncompliance/internal/api/routes"
	"github.com/zatekoja/geyser-noncompliance/internal/application/services"
	"github.com/zatekoja/geyser-noncompliance/internal/domain/providers"
	"github.com/zatekoja/geyser-noncompliance/internal/domain/repositories"
	"github.com/zatekoja/geyser-noncompliance/internal/infrastructure/clients/pdfservice"
	"github.com/zatekoja/geyser-noncompliance/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/geyser-noncompliance/internal/infrastructure/clients/redis"
	"github.com/zatekoja/geyser-noncompliance/internal/infrastructure/clients/typesense"
	"github.com/zatekoja/geyser-noncompliance/internal/infrastructure/observability"
	"github.com/zatekoja/geyser-noncompliance/pkg/config"
)

const cacheKeyPrefix = "noncompliance:"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Server.Env, cfg.Server.LogLevel)

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	// Database
	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()

	if err := postgres.RunMigrations(&cfg.Database); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply migrations")
	}

	// Redis backs drafts, the read cache and the event bus. Without it the
	// process keeps everything in memory, which only suits a single instance.
	var cacheProvider providers.CacheProvider
	var eventBus providers.EventBus
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable; using in-memory drafts and event bus")
		memory := cache.NewMemoryAdapter()
		go memory.Run(ctx)
		cacheProvider = memory
		eventBus = events.NewLocalEventBus()
	} else {
		defer redisClient.Close()
		cacheProvider = cache.NewRedisAdapter(redisClient, cacheKeyPrefix)
		eventBus = events.NewRedisEventBus(redisClient)
	}

	// Search is optional; without it the search endpoint reports unavailable
	var searchRepo repositories.AssessmentSearchRepository
	tsClient, err := typesense.NewClient(&cfg.Typesense)
	if err != nil {
		log.Warn().Err(err).Msg("Typesense unavailable; assessment search disabled")
	} else {
		if err := tsClient.InitSchema(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to init Typesense schema")
		}
		searchRepo = search.NewTypesenseAdapter(tsClient)
	}

	// Adapters and services
	var assessmentRepo repositories.AssessmentRepository = database.NewAssessmentAdapter(pgClient)
	var cacheInvalidationService *services.CacheInvalidationService
	if redisClient != nil {
		cached := database.NewCachedAssessmentAdapter(assessmentRepo, cacheProvider, metrics)
		assessmentRepo = cached

		cacheInvalidationService = services.NewCacheInvalidationService(cached, eventBus)
		if err := cacheInvalidationService.Start(); err != nil {
			log.Warn().Err(err).Msg("Failed to start cache invalidation service")
			cacheInvalidationService = nil
		}
	}

	drafts := cache.NewDraftStore(cacheProvider, cfg.Drafts.TTLSeconds)
	renderer := pdfservice.NewClient(&cfg.PDFService)

	assessmentService := services.NewAssessmentService(assessmentRepo, searchRepo, eventBus, drafts, renderer, metrics)

	if cfg.Reclassify.Schedule != "" {
		schedule, err := services.ParseSchedule(cfg.Reclassify.Schedule)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid RECLASSIFY_SCHEDULE")
		}
		backfill := services.NewAssessmentBackfillService(
			assessmentRepo, searchRepo, eventBus, metrics,
			cfg.Reclassify.Workers, cfg.Reclassify.PageSize,
		)
		job := services.NewScheduledJob("reclassify", schedule, func(ctx context.Context) error {
			summary, err := backfill.ReclassifyAll(ctx)
			if summary != nil {
				log.Info().Interface("summary", summary).Msg("Reclassification pass finished")
			}
			return err
		})
		go job.Start(ctx)
	}

	// Handlers and router
	readinessChecks := map[string]handlers.HealthChecker{"postgres": pgClient}
	if redisClient != nil {
		readinessChecks["redis"] = redisClient
	}

	router := routes.NewRouter(
		handlers.NewAssessmentHandler(assessmentService),
		handlers.NewCatalogHandler(),
		handlers.NewSSEHandler(eventBus),
		cfg.Server.AllowedOrigins,
		metrics,
	).WithReadiness(handlers.NewReadinessHandler(readinessChecks))

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:        serverAddr,
		Handler:     router.SetupRoutes(),
		ReadTimeout: 15 * time.Second,
		// No write timeout: event streams stay open and exports wait on the renderer
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Server shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}

	if cacheInvalidationService != nil {
		cacheInvalidationService.Stop()
	}

	if err := eventBus.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing event bus")
	}

	log.Info().Msg("Server stopped")
}
