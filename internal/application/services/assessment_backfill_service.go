package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/geyser-noncompliance/internal/domain/entities"
	"github.com/zatekoja/geyser-noncompliance/internal/domain/providers"
	"github.com/zatekoja/geyser-noncompliance/internal/domain/repositories"
	"github.com/zatekoja/geyser-noncompliance/internal/infrastructure/observability"
)

const DefaultBatchSize = 200

// BackfillSummary counts the outcome of one pass over stored assessments
type BackfillSummary struct {
	TotalProcessed int `json:"totalProcessed"`
	UpdatedCount   int `json:"updatedCount"`
	UnchangedCount int `json:"unchangedCount"`
	FailureCount   int `json:"failureCount"`
}

// AssessmentBackfillService walks every stored assessment with a worker pool
// to re-derive classifications or rebuild the search index.
type AssessmentBackfillService struct {
	repo        repositories.AssessmentRepository
	search      repositories.AssessmentSearchRepository
	bus         providers.EventBus
	metrics     *observability.Metrics
	workerCount int
	batchSize   int
	now         func() time.Time
}

// NewAssessmentBackfillService creates the backfill service. search, bus and metrics may be nil.
func NewAssessmentBackfillService(
	repo repositories.AssessmentRepository,
	search repositories.AssessmentSearchRepository,
	bus providers.EventBus,
	metrics *observability.Metrics,
	workers int,
	batchSize int,
) *AssessmentBackfillService {
	if workers <= 0 {
		workers = 1
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &AssessmentBackfillService{
		repo:        repo,
		search:      search,
		bus:         bus,
		metrics:     metrics,
		workerCount: workers,
		batchSize:   batchSize,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// ReclassifyAll re-runs the classification over every stored record and
// rewrites those whose derived fields differ. Manual overrides are kept.
func (s *AssessmentBackfillService) ReclassifyAll(ctx context.Context) (*BackfillSummary, error) {
	summary, err := s.forEach(ctx, s.ReclassifySingle)
	if summary != nil {
		observability.RecordReclassified(ctx, s.metrics, summary.UpdatedCount)
	}
	return summary, err
}

// ReclassifySingle reports whether the record was rewritten
func (s *AssessmentBackfillService) ReclassifySingle(ctx context.Context, id string) (bool, error) {
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to get assessment %s: %w", id, err)
	}

	stored := record.Classification()
	if !record.Reconcile() {
		return false, nil
	}

	derived := record.Classification()
	record.UpdatedAt = s.now()
	if err := s.repo.UpdateClassification(ctx, record); err != nil {
		return false, fmt.Errorf("failed to update assessment %s: %w", id, err)
	}

	log.Info().
		Str("assessment_id", id).
		Str("from_compliance", string(stored.OverallCompliance)).
		Str("to_compliance", string(derived.OverallCompliance)).
		Str("from_risk", string(stored.RiskLevel)).
		Str("to_risk", string(derived.RiskLevel)).
		Msg("Assessment reclassified")

	if s.search != nil {
		if err := s.search.Index(ctx, record); err != nil {
			log.Warn().Err(err).Str("assessment_id", id).Msg("Failed to reindex reclassified assessment")
		}
	}
	if s.bus != nil {
		event := entities.NewAssessmentEvent(record, entities.AssessmentEventTypeReclassified, "")
		if err := s.bus.Publish(ctx, providers.EventChannelAssessments, event); err != nil {
			log.Warn().Err(err).Str("assessment_id", id).Msg("Failed to publish reclassified event")
		}
	}
	return true, nil
}

// ReindexAll upserts every stored record into the search index
func (s *AssessmentBackfillService) ReindexAll(ctx context.Context) (*BackfillSummary, error) {
	if s.search == nil {
		return nil, fmt.Errorf("search index is not configured")
	}
	return s.forEach(ctx, func(ctx context.Context, id string) (bool, error) {
		record, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return false, fmt.Errorf("failed to get assessment %s: %w", id, err)
		}
		if err := s.search.Index(ctx, record); err != nil {
			return false, err
		}
		return true, nil
	})
}

// forEach feeds stored ids to the workers page by page
func (s *AssessmentBackfillService) forEach(ctx context.Context, fn func(context.Context, string) (bool, error)) (*BackfillSummary, error) {
	var processed, updated, unchanged, failure int64

	idChan := make(chan string, s.batchSize)
	var wg sync.WaitGroup

	for i := 0; i < s.workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range idChan {
				changed, err := fn(ctx, id)
				atomic.AddInt64(&processed, 1)
				switch {
				case err != nil:
					atomic.AddInt64(&failure, 1)
					log.Error().Err(err).Str("assessment_id", id).Msg("Backfill failed")
				case changed:
					atomic.AddInt64(&updated, 1)
				default:
					atomic.AddInt64(&unchanged, 1)
				}
			}
		}()
	}

	summarize := func() *BackfillSummary {
		return &BackfillSummary{
			TotalProcessed: int(atomic.LoadInt64(&processed)),
			UpdatedCount:   int(atomic.LoadInt64(&updated)),
			UnchangedCount: int(atomic.LoadInt64(&unchanged)),
			FailureCount:   int(atomic.LoadInt64(&failure)),
		}
	}
	stop := func() {
		close(idChan)
		wg.Wait()
	}

	offset := 0
	for {
		ids, err := s.repo.ListIDs(ctx, s.batchSize, offset)
		if err != nil {
			stop()
			return summarize(), fmt.Errorf("failed to list assessments: %w", err)
		}
		if len(ids) == 0 {
			break
		}

		for _, id := range ids {
			select {
			case idChan <- id:
			case <-ctx.Done():
				stop()
				return summarize(), ctx.Err()
			}
		}

		if len(ids) < s.batchSize {
			break
		}
		offset += len(ids)
	}

	stop()
	return summarize(), nil
}
