package repositories

import (
	"context"

	"github.com/zatekoja/geyser-noncompliance/internal/domain/entities"
)

// AssessmentRepository defines storage for submitted assessments
type AssessmentRepository interface {
	// Upsert inserts the record or replaces the stored one with the same id
	Upsert(ctx context.Context, record *entities.AssessmentRecord) error
	GetByID(ctx context.Context, id string) (*entities.AssessmentRecord, error)
	ListByJob(ctx context.Context, jobID string) ([]*entities.AssessmentRecord, error)
	// ListIDs pages through stored ids in a stable order
	ListIDs(ctx context.Context, limit, offset int) ([]string, error)
	// UpdateClassification rewrites only the derived columns and document fields
	UpdateClassification(ctx context.Context, record *entities.AssessmentRecord) error
}

// AssessmentSearchQuery filters the search index
type AssessmentSearchQuery struct {
	Text              string
	JobID             string
	RiskLevel         entities.RiskLevel
	OverallCompliance entities.ComplianceStatus
	Limit             int
	Offset            int
}

// AssessmentSearchHit is one indexed assessment
type AssessmentSearchHit struct {
	ID                string                    `json:"id"`
	JobID             string                    `json:"jobId"`
	ClaimNumber       string                    `json:"claimNumber"`
	ClientName        string                    `json:"clientName"`
	PropertyAddress   string                    `json:"propertyAddress"`
	InsuranceName     string                    `json:"insuranceName"`
	OverallCompliance entities.ComplianceStatus `json:"overallCompliance"`
	RiskLevel         entities.RiskLevel        `json:"riskLevel"`
	UrgentAction      bool                      `json:"urgentAction"`
	SelectedCount     int                       `json:"selectedCount"`
}

// AssessmentSearchResult is one page of hits
type AssessmentSearchResult struct {
	Hits  []AssessmentSearchHit `json:"hits"`
	Found int                   `json:"found"`
}

// AssessmentSearchRepository defines the search index of submitted assessments
type AssessmentSearchRepository interface {
	Index(ctx context.Context, record *entities.AssessmentRecord) error
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, query AssessmentSearchQuery) (*AssessmentSearchResult, error)
}
