package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/geyser-noncompliance/internal/adapters/cache"
	"github.com/zatekoja/geyser-noncompliance/internal/domain/entities"
	apperrors "github.com/zatekoja/geyser-noncompliance/pkg/errors"
)

type mockAssessmentRepository struct {
	mock.Mock
}

func (m *mockAssessmentRepository) Upsert(ctx context.Context, record *entities.AssessmentRecord) error {
	return m.Called(ctx, record).Error(0)
}

func (m *mockAssessmentRepository) GetByID(ctx context.Context, id string) (*entities.AssessmentRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.AssessmentRecord), args.Error(1)
}

func (m *mockAssessmentRepository) ListByJob(ctx context.Context, jobID string) ([]*entities.AssessmentRecord, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.AssessmentRecord), args.Error(1)
}

func (m *mockAssessmentRepository) ListIDs(ctx context.Context, limit, offset int) ([]string, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockAssessmentRepository) UpdateClassification(ctx context.Context, record *entities.AssessmentRecord) error {
	return m.Called(ctx, record).Error(0)
}

func cachedRecord() *entities.AssessmentRecord {
	r := entities.NewAssessmentRecord(entities.JobContext{ID: "job-8"}, nil, nil, time.Now().UTC())
	r.ID = "noncompliance-cached"
	return r
}

func TestCachedAssessmentAdapter_GetByID_ReadsThrough(t *testing.T) {
	ctx := context.Background()
	repo := new(mockAssessmentRepository)
	adapter := NewCachedAssessmentAdapter(repo, cache.NewMemoryAdapter(), nil)
	record := cachedRecord()

	repo.On("GetByID", ctx, record.ID).Return(record, nil).Once()

	first, err := adapter.GetByID(ctx, record.ID)
	require.NoError(t, err)
	second, err := adapter.GetByID(ctx, record.ID)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.RiskLevel, second.RiskLevel)
	repo.AssertNumberOfCalls(t, "GetByID", 1)
}

func TestCachedAssessmentAdapter_GetByID_DoesNotCacheErrors(t *testing.T) {
	ctx := context.Background()
	repo := new(mockAssessmentRepository)
	adapter := NewCachedAssessmentAdapter(repo, cache.NewMemoryAdapter(), nil)

	repo.On("GetByID", ctx, "missing").Return(nil, apperrors.NewNotFoundError("assessment missing not found")).Twice()

	_, err := adapter.GetByID(ctx, "missing")
	assert.True(t, apperrors.IsNotFound(err))
	_, err = adapter.GetByID(ctx, "missing")
	assert.True(t, apperrors.IsNotFound(err))
	repo.AssertExpectations(t)
}

func TestCachedAssessmentAdapter_UpsertInvalidates(t *testing.T) {
	ctx := context.Background()
	repo := new(mockAssessmentRepository)
	adapter := NewCachedAssessmentAdapter(repo, cache.NewMemoryAdapter(), nil)
	record := cachedRecord()

	repo.On("GetByID", ctx, record.ID).Return(record, nil).Twice()
	repo.On("ListByJob", ctx, record.JobID).Return([]*entities.AssessmentRecord{record}, nil).Twice()
	repo.On("Upsert", ctx, record).Return(nil).Once()

	_, err := adapter.GetByID(ctx, record.ID)
	require.NoError(t, err)
	_, err = adapter.ListByJob(ctx, record.JobID)
	require.NoError(t, err)

	require.NoError(t, adapter.Upsert(ctx, record))

	_, err = adapter.GetByID(ctx, record.ID)
	require.NoError(t, err)
	listed, err := adapter.ListByJob(ctx, record.JobID)
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	repo.AssertExpectations(t)
}

func TestCachedAssessmentAdapter_FailedWriteKeepsCache(t *testing.T) {
	ctx := context.Background()
	repo := new(mockAssessmentRepository)
	adapter := NewCachedAssessmentAdapter(repo, cache.NewMemoryAdapter(), nil)
	record := cachedRecord()

	repo.On("GetByID", ctx, record.ID).Return(record, nil).Once()
	repo.On("UpdateClassification", ctx, record).Return(apperrors.NewInternalError("db down", nil)).Once()

	_, err := adapter.GetByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Error(t, adapter.UpdateClassification(ctx, record))

	_, err = adapter.GetByID(ctx, record.ID)
	require.NoError(t, err)
	repo.AssertNumberOfCalls(t, "GetByID", 1)
}
