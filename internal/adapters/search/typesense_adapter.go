package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"
	"github.com/zatekoja/geyser-noncompliance/internal/domain/entities"
	"github.com/zatekoja/geyser-noncompliance/internal/domain/repositories"
	tsclient "github.com/zatekoja/geyser-noncompliance/internal/infrastructure/clients/typesense"
	apperrors "github.com/zatekoja/geyser-noncompliance/pkg/errors"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 250
	searchQueryBy      = "claim_number,client_name,property_address,insurance_name,tags"
)

// TypesenseAdapter implements assessment search using Typesense
type TypesenseAdapter struct {
	client *tsclient.Client
}

// Ensure TypesenseAdapter implements AssessmentSearchRepository
var _ repositories.AssessmentSearchRepository = (*TypesenseAdapter)(nil)

// NewTypesenseAdapter creates a new Typesense adapter
func NewTypesenseAdapter(client *tsclient.Client) *TypesenseAdapter {
	return &TypesenseAdapter{client: client}
}

// Index upserts the searchable projection of a submitted assessment
func (a *TypesenseAdapter) Index(ctx context.Context, record *entities.AssessmentRecord) error {
	document := buildAssessmentDocument(record)

	_, err := a.client.Client().Collection(tsclient.AssessmentsCollection).Documents().Upsert(ctx, document)
	if err != nil {
		return fmt.Errorf("failed to index assessment %s: %w", record.ID, err)
	}
	return nil
}

// Delete removes an assessment from the index
func (a *TypesenseAdapter) Delete(ctx context.Context, id string) error {
	_, err := a.client.Client().Collection(tsclient.AssessmentsCollection).Document(id).Delete(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete assessment %s from index: %w", id, err)
	}
	return nil
}

// Search runs a text query with optional facet filters
func (a *TypesenseAdapter) Search(ctx context.Context, query repositories.AssessmentSearchQuery) (*repositories.AssessmentSearchResult, error) {
	limit, page, err := pagination(query.Limit, query.Offset)
	if err != nil {
		return nil, err
	}

	q := strings.TrimSpace(query.Text)
	if q == "" {
		q = "*"
	}

	params := &api.SearchCollectionParams{
		Q:       pointer.String(q),
		QueryBy: pointer.String(searchQueryBy),
		SortBy:  pointer.String("submitted_at:desc"),
		Page:    pointer.Int(page),
		PerPage: pointer.Int(limit),
	}
	if filter := buildFilter(query); filter != "" {
		params.FilterBy = pointer.String(filter)
	}

	result, err := a.client.Client().Collection(tsclient.AssessmentsCollection).Documents().Search(ctx, params)
	if err != nil {
		return nil, apperrors.NewExternalError("failed to search assessments", err)
	}

	out := &repositories.AssessmentSearchResult{Hits: []repositories.AssessmentSearchHit{}}
	if result.Found != nil {
		out.Found = *result.Found
	}
	if result.Hits == nil {
		return out, nil
	}
	for _, hit := range *result.Hits {
		if hit.Document == nil {
			continue
		}
		out.Hits = append(out.Hits, parseHit(*hit.Document))
	}
	return out, nil
}

func buildAssessmentDocument(record *entities.AssessmentRecord) map[string]interface{} {
	submittedAt := record.UpdatedAt.Unix()
	if record.SubmittedAt != nil {
		submittedAt = record.SubmittedAt.Unix()
	}

	return map[string]interface{}{
		"id":                 record.ID,
		"job_id":             record.JobID,
		"claim_number":       record.ClaimNumber,
		"client_name":        strings.TrimSpace(record.ClientName + " " + record.ClientSurname),
		"property_address":   record.PropertyAddress,
		"insurance_name":     record.InsuranceName,
		"overall_compliance": string(record.OverallCompliance),
		"risk_level":         string(record.RiskLevel),
		"urgent_action":      record.UrgentAction,
		"selected_count":     len(record.ComplianceIssues.SelectedIndices()),
		"submitted_at":       submittedAt,
		"tags":               BuildAssessmentTags(record),
	}
}

func pagination(limit, offset int) (perPage, page int, err error) {
	if limit < 0 || offset < 0 {
		return 0, 0, apperrors.NewValidationError("limit and offset must not be negative")
	}
	if limit == 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	return limit, offset/limit + 1, nil
}

// buildFilter joins the exact-match facet filters with &&
func buildFilter(query repositories.AssessmentSearchQuery) string {
	var clauses []string
	if query.JobID != "" {
		clauses = append(clauses, "job_id:="+quoteFilterValue(query.JobID))
	}
	if query.RiskLevel != "" {
		clauses = append(clauses, "risk_level:="+quoteFilterValue(string(query.RiskLevel)))
	}
	if query.OverallCompliance != "" {
		clauses = append(clauses, "overall_compliance:="+quoteFilterValue(string(query.OverallCompliance)))
	}
	return strings.Join(clauses, " && ")
}

func quoteFilterValue(value string) string {
	return "`" + strings.ReplaceAll(value, "`", "") + "`"
}

func parseHit(doc map[string]interface{}) repositories.AssessmentSearchHit {
	hit := repositories.AssessmentSearchHit{
		ID:                stringField(doc, "id"),
		JobID:             stringField(doc, "job_id"),
		ClaimNumber:       stringField(doc, "claim_number"),
		ClientName:        stringField(doc, "client_name"),
		PropertyAddress:   stringField(doc, "property_address"),
		InsuranceName:     stringField(doc, "insurance_name"),
		OverallCompliance: entities.ComplianceStatus(stringField(doc, "overall_compliance")),
		RiskLevel:         entities.RiskLevel(stringField(doc, "risk_level")),
	}
	if val, ok := doc["urgent_action"].(bool); ok {
		hit.UrgentAction = val
	}
	if val, ok := doc["selected_count"].(float64); ok {
		hit.SelectedCount = int(val)
	}
	return hit
}

func stringField(doc map[string]interface{}, key string) string {
	if val, ok := doc[key].(string); ok {
		return val
	}
	return ""
}
