package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/geyser-noncompliance/internal/domain/entities"
	"github.com/zatekoja/geyser-noncompliance/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/geyser-noncompliance/pkg/errors"
)

func setupAssessmentAdapter(t *testing.T) (*AssessmentAdapter, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return NewAssessmentAdapter(postgres.NewClientFromDB(mockDB)), mock
}

func storedRecord(t *testing.T) *entities.AssessmentRecord {
	t.Helper()
	now := time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC)
	r := entities.NewAssessmentRecord(entities.JobContext{ID: "job-3", ClaimNo: "CLM-42"}, nil, nil, now)
	r.ID = "noncompliance-1"
	require.NoError(t, r.ToggleIssue(12))
	r.SubmittedAt = &now
	return r
}

func TestAssessmentAdapter_Upsert(t *testing.T) {
	adapter, mock := setupAssessmentAdapter(t)
	record := storedRecord(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "noncompliance_assessments"`) + `.*ON CONFLICT`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, adapter.Upsert(context.Background(), record))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssessmentAdapter_Upsert_DriverError(t *testing.T) {
	adapter, mock := setupAssessmentAdapter(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "noncompliance_assessments"`)).
		WillReturnError(errors.New("connection reset"))

	err := adapter.Upsert(context.Background(), storedRecord(t))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInternal))
}

func TestAssessmentAdapter_Upsert_RequiresID(t *testing.T) {
	adapter, _ := setupAssessmentAdapter(t)

	err := adapter.Upsert(context.Background(), &entities.AssessmentRecord{})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestAssessmentAdapter_GetByID(t *testing.T) {
	adapter, mock := setupAssessmentAdapter(t)
	record := storedRecord(t)
	data, err := json.Marshal(record)
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id", "data" FROM "noncompliance_assessments"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "data"}).AddRow(record.ID, data))

	got, err := adapter.GetByID(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.ID, got.ID)
	assert.Equal(t, "CLM-42", got.ClaimNumber)
	assert.True(t, got.ComplianceIssues[12].Selected)
	assert.Equal(t, entities.CompliancePartial, got.OverallCompliance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssessmentAdapter_GetByID_NotFound(t *testing.T) {
	adapter, mock := setupAssessmentAdapter(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id", "data"`)).WillReturnError(sql.ErrNoRows)

	_, err := adapter.GetByID(context.Background(), "missing")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestAssessmentAdapter_GetByID_CorruptData(t *testing.T) {
	adapter, mock := setupAssessmentAdapter(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id", "data"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "data"}).AddRow("noncompliance-x", []byte("{not json")))

	_, err := adapter.GetByID(context.Background(), "noncompliance-x")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInternal))
}

func TestAssessmentAdapter_ListByJob(t *testing.T) {
	adapter, mock := setupAssessmentAdapter(t)
	record := storedRecord(t)
	data, err := json.Marshal(record)
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id", "data" FROM "noncompliance_assessments" WHERE ("job_id" = 'job-3')`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "data"}).
			AddRow(record.ID, data).
			AddRow("noncompliance-2", []byte(`{"jobId":"job-3"}`)))

	records, err := adapter.ListByJob(context.Background(), "job-3")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "noncompliance-2", records[1].ID)
	assert.NotNil(t, records[1].ComplianceIssues)
}

func TestAssessmentAdapter_ListIDs(t *testing.T) {
	adapter, mock := setupAssessmentAdapter(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id" FROM "noncompliance_assessments" ORDER BY "id" ASC LIMIT 2 OFFSET 4`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("a").AddRow("b"))

	ids, err := adapter.ListIDs(context.Background(), 2, 4)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)

	_, err = adapter.ListIDs(context.Background(), 0, 0)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestAssessmentAdapter_UpdateClassification(t *testing.T) {
	adapter, mock := setupAssessmentAdapter(t)
	record := storedRecord(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "noncompliance_assessments" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, adapter.UpdateClassification(context.Background(), record))

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "noncompliance_assessments" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := adapter.UpdateClassification(context.Background(), record)
	assert.True(t, apperrors.IsNotFound(err))

	assert.NoError(t, mock.ExpectationsWereMet())
}
