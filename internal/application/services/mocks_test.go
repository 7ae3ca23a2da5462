package services

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/zatekoja/geyser-noncompliance/internal/domain/entities"
	"github.com/zatekoja/geyser-noncompliance/internal/domain/providers"
	"github.com/zatekoja/geyser-noncompliance/internal/domain/repositories"
)

type MockAssessmentRepo struct {
	mock.Mock
}

func (m *MockAssessmentRepo) Upsert(ctx context.Context, record *entities.AssessmentRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockAssessmentRepo) GetByID(ctx context.Context, id string) (*entities.AssessmentRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.AssessmentRecord), args.Error(1)
}

func (m *MockAssessmentRepo) ListByJob(ctx context.Context, jobID string) ([]*entities.AssessmentRecord, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.AssessmentRecord), args.Error(1)
}

func (m *MockAssessmentRepo) ListIDs(ctx context.Context, limit, offset int) ([]string, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockAssessmentRepo) UpdateClassification(ctx context.Context, record *entities.AssessmentRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

type MockSearchRepo struct {
	mock.Mock
}

func (m *MockSearchRepo) Index(ctx context.Context, record *entities.AssessmentRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockSearchRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockSearchRepo) Search(ctx context.Context, query repositories.AssessmentSearchQuery) (*repositories.AssessmentSearchResult, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repositories.AssessmentSearchResult), args.Error(1)
}

type MockRenderer struct {
	mock.Mock
}

func (m *MockRenderer) Render(ctx context.Context, record *entities.AssessmentRecord) (*providers.RenderedDocument, error) {
	args := m.Called(ctx, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*providers.RenderedDocument), args.Error(1)
}
