package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/zatekoja/geyser-noncompliance/internal/domain/entities"
	"github.com/zatekoja/geyser-noncompliance/internal/domain/repositories"
	"github.com/zatekoja/geyser-noncompliance/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/geyser-noncompliance/pkg/errors"
)

const assessmentsTable = postgres.AssessmentsTable

// AssessmentAdapter implements AssessmentRepository on PostgreSQL.
// The full record lives in the data column; the other columns are for filtering.
type AssessmentAdapter struct {
	client *postgres.Client
	db     *goqu.Database
	sqlx   *sqlx.DB
}

var _ repositories.AssessmentRepository = (*AssessmentAdapter)(nil)

// NewAssessmentAdapter creates a new assessment adapter
func NewAssessmentAdapter(client *postgres.Client) *AssessmentAdapter {
	return &AssessmentAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
		sqlx:   sqlx.NewDb(client.DB(), "postgres"),
	}
}

type assessmentRow struct {
	ID   string `db:"id"`
	Data []byte `db:"data"`
}

// Upsert inserts the record or replaces the stored copy; created_at is kept from the first insert
func (a *AssessmentAdapter) Upsert(ctx context.Context, record *entities.AssessmentRecord) error {
	row, err := assessmentColumns(record)
	if err != nil {
		return err
	}
	row["id"] = record.ID
	row["created_at"] = record.CreatedAt

	query, args, err := a.db.Insert(assessmentsTable).
		Rows(row).
		OnConflict(goqu.DoUpdate("id", goqu.Record{
			"job_id":             goqu.I("excluded.job_id"),
			"insurance_name":     goqu.I("excluded.insurance_name"),
			"claim_number":       goqu.I("excluded.claim_number"),
			"client_name":        goqu.I("excluded.client_name"),
			"property_address":   goqu.I("excluded.property_address"),
			"overall_compliance": goqu.I("excluded.overall_compliance"),
			"risk_level":         goqu.I("excluded.risk_level"),
			"urgent_action":      goqu.I("excluded.urgent_action"),
			"selected_count":     goqu.I("excluded.selected_count"),
			"data":               goqu.I("excluded.data"),
			"updated_at":         goqu.I("excluded.updated_at"),
			"submitted_at":       goqu.I("excluded.submitted_at"),
		})).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build upsert query", err)
	}

	if _, err := a.sqlx.ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to save assessment", err)
	}
	return nil
}

// GetByID retrieves an assessment by ID
func (a *AssessmentAdapter) GetByID(ctx context.Context, id string) (*entities.AssessmentRecord, error) {
	query, args, err := a.db.Select("id", "data").From(assessmentsTable).
		Where(goqu.Ex{"id": id}).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	var row assessmentRow
	err = a.sqlx.GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("assessment %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get assessment", err)
	}

	return decodeAssessment(row)
}

// ListByJob returns the job's assessments, most recently submitted first
func (a *AssessmentAdapter) ListByJob(ctx context.Context, jobID string) ([]*entities.AssessmentRecord, error) {
	query, args, err := a.db.Select("id", "data").From(assessmentsTable).
		Where(goqu.Ex{"job_id": jobID}).
		Order(goqu.I("submitted_at").Desc().NullsLast(), goqu.I("created_at").Desc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	var rows []assessmentRow
	if err := a.sqlx.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to list assessments", err)
	}

	records := make([]*entities.AssessmentRecord, 0, len(rows))
	for _, row := range rows {
		record, err := decodeAssessment(row)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// ListIDs pages through ids in ascending order
func (a *AssessmentAdapter) ListIDs(ctx context.Context, limit, offset int) ([]string, error) {
	if limit <= 0 {
		return nil, apperrors.NewValidationError("limit must be positive")
	}

	query, args, err := a.db.Select("id").From(assessmentsTable).
		Order(goqu.I("id").Asc()).
		Limit(uint(limit)).
		Offset(uint(offset)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	var ids []string
	if err := a.sqlx.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to list assessment ids", err)
	}
	return ids, nil
}

// UpdateClassification rewrites the derived columns of an existing assessment
func (a *AssessmentAdapter) UpdateClassification(ctx context.Context, record *entities.AssessmentRecord) error {
	row, err := assessmentColumns(record)
	if err != nil {
		return err
	}

	query, args, err := a.db.Update(assessmentsTable).
		Set(goqu.Record{
			"overall_compliance": row["overall_compliance"],
			"risk_level":         row["risk_level"],
			"urgent_action":      row["urgent_action"],
			"selected_count":     row["selected_count"],
			"data":               row["data"],
			"updated_at":         row["updated_at"],
		}).
		Where(goqu.Ex{"id": record.ID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.sqlx.ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update assessment", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("assessment %s not found", record.ID))
	}
	return nil
}

func assessmentColumns(record *entities.AssessmentRecord) (goqu.Record, error) {
	if record == nil || record.ID == "" {
		return nil, apperrors.NewValidationError("assessment id is required")
	}
	data, err := json.Marshal(record)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to encode assessment", err)
	}

	updatedAt := record.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	var submittedAt interface{}
	if record.SubmittedAt != nil {
		submittedAt = *record.SubmittedAt
	}

	return goqu.Record{
		"job_id":             record.JobID,
		"insurance_name":     record.InsuranceName,
		"claim_number":       record.ClaimNumber,
		"client_name":        record.ClientName,
		"property_address":   record.PropertyAddress,
		"overall_compliance": string(record.OverallCompliance),
		"risk_level":         string(record.RiskLevel),
		"urgent_action":      record.UrgentAction,
		"selected_count":     len(record.ComplianceIssues.SelectedIndices()),
		"data":               string(data),
		"updated_at":         updatedAt,
		"submitted_at":       submittedAt,
	}, nil
}

func decodeAssessment(row assessmentRow) (*entities.AssessmentRecord, error) {
	var record entities.AssessmentRecord
	if err := json.Unmarshal(row.Data, &record); err != nil {
		return nil, apperrors.NewInternalError(fmt.Sprintf("failed to decode assessment %s", row.ID), err)
	}
	record.ID = row.ID
	if record.ComplianceIssues == nil {
		record.ComplianceIssues = make(entities.IssueMap)
	}
	return &record, nil
}
