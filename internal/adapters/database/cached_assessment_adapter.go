package database

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/geyser-noncompliance/internal/domain/entities"
	"github.com/zatekoja/geyser-noncompliance/internal/domain/providers"
	"github.com/zatekoja/geyser-noncompliance/internal/domain/repositories"
	"github.com/zatekoja/geyser-noncompliance/internal/infrastructure/observability"
)

// CachedAssessmentAdapter wraps an AssessmentRepository with read-through caching.
// Writes go to the repository first and then invalidate the affected keys.
type CachedAssessmentAdapter struct {
	adapter repositories.AssessmentRepository
	cache   providers.CacheProvider
	metrics *observability.Metrics
}

var _ repositories.AssessmentRepository = (*CachedAssessmentAdapter)(nil)

// NewCachedAssessmentAdapter creates a new cached assessment adapter
func NewCachedAssessmentAdapter(adapter repositories.AssessmentRepository, cache providers.CacheProvider, metrics *observability.Metrics) *CachedAssessmentAdapter {
	return &CachedAssessmentAdapter{
		adapter: adapter,
		cache:   cache,
		metrics: metrics,
	}
}

// Cache TTLs (in seconds)
const (
	assessmentByIDTTL  = 300
	assessmentsJobTTL  = 120
	assessmentKeyspace = "assessment"
	jobListKeyspace    = "assessment_job"
)

func assessmentCacheKey(id string) string {
	return "assessment:" + id
}

func jobAssessmentsCacheKey(jobID string) string {
	return "assessments:job:" + jobID
}

// Upsert saves and invalidates the record and its job list
func (a *CachedAssessmentAdapter) Upsert(ctx context.Context, record *entities.AssessmentRecord) error {
	if err := a.adapter.Upsert(ctx, record); err != nil {
		return err
	}
	a.invalidate(ctx, record)
	return nil
}

// GetByID retrieves an assessment with caching
func (a *CachedAssessmentAdapter) GetByID(ctx context.Context, id string) (*entities.AssessmentRecord, error) {
	key := assessmentCacheKey(id)

	var record entities.AssessmentRecord
	if a.readCache(ctx, key, assessmentKeyspace, &record) {
		return &record, nil
	}

	stored, err := a.adapter.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	a.writeCache(ctx, key, stored, assessmentByIDTTL)
	return stored, nil
}

// ListByJob lists a job's assessments with caching
func (a *CachedAssessmentAdapter) ListByJob(ctx context.Context, jobID string) ([]*entities.AssessmentRecord, error) {
	key := jobAssessmentsCacheKey(jobID)

	var records []*entities.AssessmentRecord
	if a.readCache(ctx, key, jobListKeyspace, &records) {
		return records, nil
	}

	records, err := a.adapter.ListByJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	a.writeCache(ctx, key, records, assessmentsJobTTL)
	return records, nil
}

// ListIDs is not cached; it only serves batch jobs
func (a *CachedAssessmentAdapter) ListIDs(ctx context.Context, limit, offset int) ([]string, error) {
	return a.adapter.ListIDs(ctx, limit, offset)
}

// UpdateClassification saves and invalidates the record and its job list
func (a *CachedAssessmentAdapter) UpdateClassification(ctx context.Context, record *entities.AssessmentRecord) error {
	if err := a.adapter.UpdateClassification(ctx, record); err != nil {
		return err
	}
	a.invalidate(ctx, record)
	return nil
}

func (a *CachedAssessmentAdapter) readCache(ctx context.Context, key, keyspace string, out interface{}) bool {
	cached, err := a.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, providers.ErrCacheMiss) {
			log.Debug().Err(err).Str("key", key).Msg("Cache read failed")
		}
		observability.RecordCacheMiss(ctx, a.metrics, keyspace)
		return false
	}
	if err := json.Unmarshal(cached, out); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to unmarshal cached assessment")
		observability.RecordCacheMiss(ctx, a.metrics, keyspace)
		return false
	}
	observability.RecordCacheHit(ctx, a.metrics, keyspace)
	return true
}

func (a *CachedAssessmentAdapter) writeCache(ctx context.Context, key string, value interface{}, ttl int) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := a.cache.Set(ctx, key, data, ttl); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to cache assessment")
	}
}

func (a *CachedAssessmentAdapter) invalidate(ctx context.Context, record *entities.AssessmentRecord) {
	a.Invalidate(ctx, record.ID, record.JobID)
}

// Invalidate drops the cached record and its job list. Used when another
// process rewrote the stored row.
func (a *CachedAssessmentAdapter) Invalidate(ctx context.Context, assessmentID, jobID string) {
	for _, key := range []string{assessmentCacheKey(assessmentID), jobAssessmentsCacheKey(jobID)} {
		if err := a.cache.Delete(ctx, key); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Failed to invalidate cached assessment")
		}
	}
}
