package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zatekoja/geyser-noncompliance/internal/domain/entities"
	"github.com/zatekoja/geyser-noncompliance/internal/domain/providers"
	"github.com/zatekoja/geyser-noncompliance/internal/domain/repositories"
	"github.com/zatekoja/geyser-noncompliance/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/geyser-noncompliance/pkg/errors"
)

// StartSessionRequest opens an assessment session for a job
type StartSessionRequest struct {
	Job                  entities.JobContext    `json:"job"`
	AssignedStaff        *entities.StaffContext `json:"assignedStaff,omitempty"`
	ExistingAssessmentID string                 `json:"existingAssessmentId,omitempty"`
}

// SessionView is what the form client renders after every call
type SessionView struct {
	Assessment  *entities.AssessmentRecord `json:"assessment"`
	Summary     entities.Summary           `json:"summary"`
	Submittable bool                       `json:"submittable"`
}

func newSessionView(record *entities.AssessmentRecord) *SessionView {
	return &SessionView{
		Assessment:  record,
		Summary:     record.Summary(),
		Submittable: record.Submittable(),
	}
}

// AssessmentService owns open assessment sessions and the submit/export flow.
// Mutations of one session are applied one at a time in arrival order.
type AssessmentService struct {
	repo     repositories.AssessmentRepository
	search   repositories.AssessmentSearchRepository
	bus      providers.EventBus
	drafts   providers.DraftStore
	renderer providers.DocumentRenderer
	metrics  *observability.Metrics
	locks    *sessionLocks
	now      func() time.Time
}

// NewAssessmentService creates a new assessment service. search, bus and metrics may be nil.
func NewAssessmentService(
	repo repositories.AssessmentRepository,
	search repositories.AssessmentSearchRepository,
	bus providers.EventBus,
	drafts providers.DraftStore,
	renderer providers.DocumentRenderer,
	metrics *observability.Metrics,
) *AssessmentService {
	return &AssessmentService{
		repo:     repo,
		search:   search,
		bus:      bus,
		drafts:   drafts,
		renderer: renderer,
		metrics:  metrics,
		locks:    newSessionLocks(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// StartSession opens a session seeded from the job and staff. With an existing
// assessment id the open draft is resumed, else the stored record is loaded.
func (s *AssessmentService) StartSession(ctx context.Context, req StartSessionRequest) (*SessionView, error) {
	if strings.TrimSpace(req.Job.ID) == "" {
		return nil, apperrors.NewValidationError("job id is required")
	}

	var existing *entities.AssessmentRecord
	resumed := false
	if req.ExistingAssessmentID != "" {
		unlock := s.locks.lock(req.ExistingAssessmentID)
		defer unlock()

		record, err := s.loadDraftOrStored(ctx, req.ExistingAssessmentID)
		if err != nil {
			return nil, err
		}
		if record.JobID != "" && record.JobID != req.Job.ID {
			return nil, apperrors.NewConflictError(fmt.Sprintf("assessment %s belongs to job %s", record.ID, record.JobID))
		}
		existing = record
		resumed = true
	}

	record := entities.NewAssessmentRecord(req.Job, req.AssignedStaff, existing, s.now())
	if err := s.drafts.Save(ctx, record); err != nil {
		return nil, err
	}

	observability.RecordSessionOpened(ctx, s.metrics, resumed)
	observability.AssessmentLogger(ctx, record.ID, record.JobID).Info().
		Bool("resumed", resumed).
		Msg("Assessment session opened")
	s.publish(ctx, record, entities.AssessmentEventTypeSessionOpened, "")

	return newSessionView(record), nil
}

// GetSession returns the open session
func (s *AssessmentService) GetSession(ctx context.Context, id string) (*SessionView, error) {
	record, err := s.drafts.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return newSessionView(record), nil
}

// ToggleIssue flips selection of one catalog issue
func (s *AssessmentService) ToggleIssue(ctx context.Context, id string, index int) (*SessionView, error) {
	return s.mutate(ctx, id, func(record *entities.AssessmentRecord) error {
		return record.ToggleIssue(index)
	})
}

// UpdateIssue merges a partial change into one issue's details
func (s *AssessmentService) UpdateIssue(ctx context.Context, id string, index int, update entities.IssueUpdate) (*SessionView, error) {
	return s.mutate(ctx, id, func(record *entities.AssessmentRecord) error {
		return record.ApplyIssueUpdate(index, update)
	})
}

// UpdateFields assigns top-level fields by JSON name. The whole patch is
// rejected when any one field is.
func (s *AssessmentService) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) (*SessionView, error) {
	if len(fields) == 0 {
		return nil, apperrors.NewValidationError("no fields to update")
	}
	return s.mutate(ctx, id, func(record *entities.AssessmentRecord) error {
		for name, value := range fields {
			if err := record.UpdateField(name, value); err != nil {
				return err
			}
		}
		return nil
	})
}

// DiscardSession drops the draft without persisting it
func (s *AssessmentService) DiscardSession(ctx context.Context, id string) error {
	unlock := s.locks.lock(id)
	defer unlock()

	return s.drafts.Delete(ctx, id)
}

// Submit persists the session. At least one issue must be selected. Indexing,
// the event and draft removal happen after the write and never fail the call.
func (s *AssessmentService) Submit(ctx context.Context, id string) (*entities.AssessmentRecord, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	record, err := s.drafts.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !record.Submittable() {
		return nil, apperrors.NewValidationError("select at least one compliance issue before submitting")
	}

	now := s.now()
	record.UpdatedAt = now
	record.SubmittedAt = &now

	if err := s.repo.Upsert(ctx, record); err != nil {
		return nil, err
	}

	logger := observability.AssessmentLogger(ctx, record.ID, record.JobID)
	observability.RecordSubmission(ctx, s.metrics, string(record.OverallCompliance), string(record.RiskLevel))
	logger.Info().
		Str("overall_compliance", string(record.OverallCompliance)).
		Str("risk_level", string(record.RiskLevel)).
		Msg("Assessment submitted")

	if s.search != nil {
		if err := s.search.Index(ctx, record); err != nil {
			logger.Warn().Err(err).Msg("Failed to index assessment")
		}
	}
	s.publish(ctx, record, entities.AssessmentEventTypeSubmitted, "")
	if err := s.drafts.Delete(ctx, record.ID); err != nil {
		logger.Warn().Err(err).Msg("Failed to discard submitted draft")
	}

	return record, nil
}

// ExportSession renders the open session's current state
func (s *AssessmentService) ExportSession(ctx context.Context, id string) (*entities.ExportedDocument, error) {
	snapshot, err := s.snapshot(ctx, id, false)
	if err != nil {
		return nil, err
	}
	return s.export(ctx, snapshot)
}

// ExportAssessment renders an assessment, preferring its open draft over the stored copy
func (s *AssessmentService) ExportAssessment(ctx context.Context, id string) (*entities.ExportedDocument, error) {
	snapshot, err := s.snapshot(ctx, id, true)
	if err != nil {
		return nil, err
	}
	return s.export(ctx, snapshot)
}

// Get returns a stored assessment
func (s *AssessmentService) Get(ctx context.Context, id string) (*entities.AssessmentRecord, error) {
	return s.repo.GetByID(ctx, id)
}

// ListByJob returns the stored assessments of a job, newest first
func (s *AssessmentService) ListByJob(ctx context.Context, jobID string) ([]*entities.AssessmentRecord, error) {
	return s.repo.ListByJob(ctx, jobID)
}

// Search queries the assessment index
func (s *AssessmentService) Search(ctx context.Context, query repositories.AssessmentSearchQuery) (*repositories.AssessmentSearchResult, error) {
	if s.search == nil {
		return nil, apperrors.NewExternalError("assessment search is not available", nil)
	}
	if query.RiskLevel != "" && !query.RiskLevel.Valid() {
		return nil, apperrors.NewValidationErrorf("unknown risk level %q", query.RiskLevel)
	}
	if query.OverallCompliance != "" && !query.OverallCompliance.Valid() {
		return nil, apperrors.NewValidationErrorf("unknown compliance status %q", query.OverallCompliance)
	}
	return s.search.Search(ctx, query)
}

func (s *AssessmentService) mutate(ctx context.Context, id string, apply func(*entities.AssessmentRecord) error) (*SessionView, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	record, err := s.drafts.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(record); err != nil {
		if _, ok := apperrors.As(err); ok {
			return nil, err
		}
		return nil, apperrors.NewValidationError(err.Error())
	}
	record.UpdatedAt = s.now()

	if err := s.drafts.Save(ctx, record); err != nil {
		return nil, err
	}
	return newSessionView(record), nil
}

// snapshot copies the record under the session lock so the render runs unlocked
func (s *AssessmentService) snapshot(ctx context.Context, id string, allowStored bool) (*entities.AssessmentRecord, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	if allowStored {
		record, err := s.loadDraftOrStored(ctx, id)
		if err != nil {
			return nil, err
		}
		return record.Clone(), nil
	}

	record, err := s.drafts.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return record.Clone(), nil
}

func (s *AssessmentService) loadDraftOrStored(ctx context.Context, id string) (*entities.AssessmentRecord, error) {
	record, err := s.drafts.Load(ctx, id)
	if err == nil {
		return record, nil
	}
	if !apperrors.IsNotFound(err) {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// export makes a single renderer call. Failures are logged, counted and
// returned as EXTERNAL errors.
func (s *AssessmentService) export(ctx context.Context, record *entities.AssessmentRecord) (*entities.ExportedDocument, error) {
	ctx, span := observability.StartSpan(ctx, "AssessmentService.export")
	defer span.End()

	logger := observability.AssessmentLogger(ctx, record.ID, record.JobID)
	start := time.Now()

	rendered, err := s.renderer.Render(ctx, record)
	if err == nil && len(rendered.Data) == 0 {
		err = errors.New("document renderer returned an empty document")
	}
	if err != nil {
		observability.RecordError(span, err)
		observability.RecordExport(ctx, s.metrics, observability.ExportOutcomeFailure, time.Since(start))
		logger.Error().Err(err).Msg("Failed to generate non-compliance document")
		s.publish(ctx, record, entities.AssessmentEventTypeExportFailed, err.Error())
		return nil, apperrors.NewExternalError("failed to generate non-compliance document", err)
	}

	observability.RecordExport(ctx, s.metrics, observability.ExportOutcomeSuccess, time.Since(start))
	filename := entities.ExportFilename(record.InsuranceName)
	logger.Info().Str("filename", filename).Int("bytes", len(rendered.Data)).Msg("Non-compliance document generated")
	s.publish(ctx, record, entities.AssessmentEventTypeExported, filename)

	return &entities.ExportedDocument{
		AssessmentID: record.ID,
		Filename:     filename,
		ContentType:  rendered.ContentType,
		Data:         rendered.Data,
	}, nil
}

// publish sends the event to the global and per-job channels; failures are logged only
func (s *AssessmentService) publish(ctx context.Context, record *entities.AssessmentRecord, eventType entities.AssessmentEventType, detail string) {
	if s.bus == nil {
		return
	}
	event := entities.NewAssessmentEvent(record, eventType, detail)
	channels := []string{providers.EventChannelAssessments}
	if record.JobID != "" {
		channels = append(channels, providers.GetJobChannel(record.JobID))
	}
	for _, channel := range channels {
		if err := s.bus.Publish(ctx, channel, event); err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).
				Str("channel", channel).
				Str("event_type", string(eventType)).
				Msg("Failed to publish assessment event")
		}
	}
}
