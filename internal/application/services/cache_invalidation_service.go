package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/geyser-noncompliance/internal/domain/entities"
	"github.com/zatekoja/geyser-noncompliance/internal/domain/providers"
)

// AssessmentCacheInvalidator drops cached reads of one stored assessment
type AssessmentCacheInvalidator interface {
	Invalidate(ctx context.Context, assessmentID, jobID string)
}

// CacheInvalidationService evicts cached assessments when another process
// rewrites them, such as the reclassify job running against the database directly.
type CacheInvalidationService struct {
	cache    AssessmentCacheInvalidator
	eventBus providers.EventBus
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewCacheInvalidationService creates a new cache invalidation service
func NewCacheInvalidationService(cache AssessmentCacheInvalidator, eventBus providers.EventBus) *CacheInvalidationService {
	ctx, cancel := context.WithCancel(context.Background())
	return &CacheInvalidationService{
		cache:    cache,
		eventBus: eventBus,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start begins listening for events and invalidating cache
func (s *CacheInvalidationService) Start() error {
	eventChan, err := s.eventBus.Subscribe(s.ctx, providers.EventChannelAssessments)
	if err != nil {
		return fmt.Errorf("failed to subscribe to assessment events: %w", err)
	}

	go s.processEvents(eventChan)
	log.Info().Msg("Cache invalidation service started")
	return nil
}

// Stop stops the service and waits for the event loop to exit
func (s *CacheInvalidationService) Stop() {
	s.cancel()
	<-s.done
	log.Info().Msg("Cache invalidation service stopped")
}

func (s *CacheInvalidationService) processEvents(eventChan <-chan *entities.AssessmentEvent) {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if event == nil {
				continue
			}
			s.handleEvent(event)
		}
	}
}

// handleEvent evicts on reclassification only. Submissions go through the
// cached repository, which already invalidates on write.
func (s *CacheInvalidationService) handleEvent(event *entities.AssessmentEvent) {
	if event.EventType != entities.AssessmentEventTypeReclassified {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.cache.Invalidate(ctx, event.AssessmentID, event.JobID)
	log.Debug().
		Str("assessment_id", event.AssessmentID).
		Str("job_id", event.JobID).
		Msg("Invalidated cached assessment after reclassification")
}
