package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/zatekoja/geyser-noncompliance/internal/application/services"
	"github.com/zatekoja/geyser-noncompliance/internal/domain/entities"
	"github.com/zatekoja/geyser-noncompliance/internal/domain/repositories"
)

// AssessmentService is the session and submission API the handler drives
type AssessmentService interface {
	StartSession(ctx context.Context, req services.StartSessionRequest) (*services.SessionView, error)
	GetSession(ctx context.Context, id string) (*services.SessionView, error)
	ToggleIssue(ctx context.Context, id string, index int) (*services.SessionView, error)
	UpdateIssue(ctx context.Context, id string, index int, update entities.IssueUpdate) (*services.SessionView, error)
	UpdateFields(ctx context.Context, id string, fields map[string]interface{}) (*services.SessionView, error)
	DiscardSession(ctx context.Context, id string) error
	Submit(ctx context.Context, id string) (*entities.AssessmentRecord, error)
	ExportSession(ctx context.Context, id string) (*entities.ExportedDocument, error)
	ExportAssessment(ctx context.Context, id string) (*entities.ExportedDocument, error)
	Get(ctx context.Context, id string) (*entities.AssessmentRecord, error)
	ListByJob(ctx context.Context, jobID string) ([]*entities.AssessmentRecord, error)
	Search(ctx context.Context, query repositories.AssessmentSearchQuery) (*repositories.AssessmentSearchResult, error)
}

// AssessmentHandler handles non-compliance assessment HTTP requests
type AssessmentHandler struct {
	service AssessmentService
}

// NewAssessmentHandler creates a new assessment handler
func NewAssessmentHandler(service AssessmentService) *AssessmentHandler {
	return &AssessmentHandler{service: service}
}

// StartSession handles POST /api/noncompliance/sessions
func (h *AssessmentHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req services.StartSessionRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := h.service.StartSession(r.Context(), req)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, view)
}

// GetSession handles GET /api/noncompliance/sessions/{id}
func (h *AssessmentHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.GetSession(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, view)
}

// UpdateFields handles PATCH /api/noncompliance/sessions/{id}
func (h *AssessmentHandler) UpdateFields(w http.ResponseWriter, r *http.Request) {
	var fields map[string]interface{}
	if err := decodeJSON(w, r, &fields, false); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := h.service.UpdateFields(r.Context(), r.PathValue("id"), fields)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, view)
}

// ToggleIssue handles POST /api/noncompliance/sessions/{id}/issues/{index}/toggle
func (h *AssessmentHandler) ToggleIssue(w http.ResponseWriter, r *http.Request) {
	index, err := pathIndex(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := h.service.ToggleIssue(r.Context(), r.PathValue("id"), index)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, view)
}

// UpdateIssue handles PATCH /api/noncompliance/sessions/{id}/issues/{index}
func (h *AssessmentHandler) UpdateIssue(w http.ResponseWriter, r *http.Request) {
	index, err := pathIndex(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	var update entities.IssueUpdate
	if err := decodeJSON(w, r, &update, true); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := h.service.UpdateIssue(r.Context(), r.PathValue("id"), index, update)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, view)
}

// DiscardSession handles DELETE /api/noncompliance/sessions/{id}
func (h *AssessmentHandler) DiscardSession(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DiscardSession(r.Context(), r.PathValue("id")); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Submit handles POST /api/noncompliance/sessions/{id}/submit
func (h *AssessmentHandler) Submit(w http.ResponseWriter, r *http.Request) {
	record, err := h.service.Submit(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, record)
}

// ExportSession handles POST /api/noncompliance/sessions/{id}/export
func (h *AssessmentHandler) ExportSession(w http.ResponseWriter, r *http.Request) {
	doc, err := h.service.ExportSession(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	writeDocument(w, doc)
}

// ExportAssessment handles POST /api/noncompliance/assessments/{id}/export
func (h *AssessmentHandler) ExportAssessment(w http.ResponseWriter, r *http.Request) {
	doc, err := h.service.ExportAssessment(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	writeDocument(w, doc)
}

// GetAssessment handles GET /api/noncompliance/assessments/{id}
func (h *AssessmentHandler) GetAssessment(w http.ResponseWriter, r *http.Request) {
	record, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, record)
}

// ListJobAssessments handles GET /api/jobs/{jobId}/noncompliance
func (h *AssessmentHandler) ListJobAssessments(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.ListByJob(r.Context(), r.PathValue("jobId"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if records == nil {
		records = []*entities.AssessmentRecord{}
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"assessments": records,
		"count":       len(records),
	})
}

// SearchAssessments handles GET /api/noncompliance/assessments/search
func (h *AssessmentHandler) SearchAssessments(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	query := r.URL.Query()
	result, err := h.service.Search(r.Context(), repositories.AssessmentSearchQuery{
		Text:              query.Get("q"),
		JobID:             query.Get("jobId"),
		RiskLevel:         entities.RiskLevel(query.Get("riskLevel")),
		OverallCompliance: entities.ComplianceStatus(query.Get("overallCompliance")),
		Limit:             limit,
		Offset:            offset,
	})
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// writeDocument sends the rendered document as a download
func writeDocument(w http.ResponseWriter, doc *entities.ExportedDocument) {
	contentType := doc.ContentType
	if contentType == "" {
		contentType = "application/pdf"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Data)
}
