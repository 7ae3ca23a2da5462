package routes_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/geyser-noncompliance/internal/adapters/cache"
	"github.com/zatekoja/geyser-noncompliance/internal/adapters/events"
	"github.com/zatekoja/geyser-noncompliance/internal/api/handlers"
	"github.com/zatekoja/geyser-noncompliance/internal/api/routes"
	"github.com/zatekoja/geyser-noncompliance/internal/application/services"
	"github.com/zatekoja/geyser-noncompliance/internal/domain/entities"
	"github.com/zatekoja/geyser-noncompliance/internal/infrastructure/clients/pdfservice"
	"github.com/zatekoja/geyser-noncompliance/pkg/config"
	apperrors "github.com/zatekoja/geyser-noncompliance/pkg/errors"
)

// memoryRepo is an in-memory AssessmentRepository
type memoryRepo struct {
	mu      sync.Mutex
	records map[string]*entities.AssessmentRecord
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{records: make(map[string]*entities.AssessmentRecord)}
}

func (r *memoryRepo) Upsert(ctx context.Context, record *entities.AssessmentRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.ID] = record.Clone()
	return nil
}

func (r *memoryRepo) GetByID(ctx context.Context, id string) (*entities.AssessmentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("assessment " + id + " not found")
	}
	return record.Clone(), nil
}

func (r *memoryRepo) ListByJob(ctx context.Context, jobID string) ([]*entities.AssessmentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.AssessmentRecord
	for _, record := range r.records {
		if record.JobID == jobID {
			out = append(out, record.Clone())
		}
	}
	return out, nil
}

func (r *memoryRepo) ListIDs(ctx context.Context, limit, offset int) ([]string, error) {
	return nil, nil
}

func (r *memoryRepo) UpdateClassification(ctx context.Context, record *entities.AssessmentRecord) error {
	return r.Upsert(ctx, record)
}

type testServer struct {
	handler  http.Handler
	repo     *memoryRepo
	renderer *httptest.Server
}

func newTestServer(t *testing.T, renderStatus int) *testServer {
	t.Helper()
	renderer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if renderStatus != http.StatusOK {
			http.Error(w, "template crashed", renderStatus)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.7 test"))
	}))
	t.Cleanup(renderer.Close)

	bus := events.NewLocalEventBus()
	t.Cleanup(func() { _ = bus.Close() })

	repo := newMemoryRepo()
	svc := services.NewAssessmentService(
		repo,
		nil,
		bus,
		cache.NewDraftStore(cache.NewMemoryAdapter(), 3600),
		pdfservice.NewClient(&config.PDFServiceConfig{BaseURL: renderer.URL}),
		nil,
	)
	router := routes.NewRouter(
		handlers.NewAssessmentHandler(svc),
		handlers.NewCatalogHandler(),
		handlers.NewSSEHandler(bus),
		[]string{"*"},
		nil,
	)
	return &testServer{handler: router.SetupRoutes(), repo: repo, renderer: renderer}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func (s *testServer) openSession(t *testing.T, insurer string) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/noncompliance/sessions",
		`{"job":{"id":"job-1","underwriter":"`+insurer+`","claimNo":"CLM-1","insuredName":"Thandi"},"assignedStaff":{"name":"Sipho"}}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var view services.SessionView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	return view.Assessment.ID
}

func TestRouter_Health(t *testing.T) {
	s := newTestServer(t, http.StatusOK)
	w := s.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestRouter_SessionLifecycle(t *testing.T) {
	s := newTestServer(t, http.StatusOK)
	id := s.openSession(t, "Outsurance")

	w := s.do(t, http.MethodPost, "/api/noncompliance/sessions/"+id+"/submit", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = s.do(t, http.MethodPost, "/api/noncompliance/sessions/"+id+"/issues/15/toggle", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPatch, "/api/noncompliance/sessions/"+id+"/issues/15", `{"severity":"critical","notes":"no isolator"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var view services.SessionView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, entities.RiskHigh, view.Assessment.RiskLevel)
	assert.Equal(t, entities.ComplianceNonCompliant, view.Assessment.OverallCompliance)
	assert.Equal(t, 97, view.Summary.ComplianceRatePercent)

	w = s.do(t, http.MethodPatch, "/api/noncompliance/sessions/"+id, `{"estimatedCost":"1 500","geyserMake":"Kwikot"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, 0.0, view.Assessment.EstimatedCost)

	w = s.do(t, http.MethodPost, "/api/noncompliance/sessions/"+id+"/submit", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/noncompliance/sessions/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/api/noncompliance/assessments/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	var stored entities.AssessmentRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stored))
	assert.NotNil(t, stored.SubmittedAt)
	assert.Equal(t, "Kwikot", stored.GeyserMake)
	assert.Equal(t, "no isolator", stored.ComplianceIssues[15].Notes)

	w = s.do(t, http.MethodGet, "/api/jobs/job-1/noncompliance", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)
}

func TestRouter_ExportDownloadsDocument(t *testing.T) {
	s := newTestServer(t, http.StatusOK)
	id := s.openSession(t, "Discovery Insure Ltd")

	w := s.do(t, http.MethodPost, "/api/noncompliance/sessions/"+id+"/export", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="desco.pdf"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.7 test", w.Body.String())
}

func TestRouter_ExportRendererFailure(t *testing.T) {
	s := newTestServer(t, http.StatusInternalServerError)
	id := s.openSession(t, "Outsurance")

	w := s.do(t, http.MethodPost, "/api/noncompliance/sessions/"+id+"/export", "")

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Empty(t, w.Header().Get("Content-Disposition"))
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")

	w = s.do(t, http.MethodGet, "/api/noncompliance/sessions/"+id, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_CatalogIsCacheable(t *testing.T) {
	s := newTestServer(t, http.StatusOK)

	w := s.do(t, http.MethodGet, "/api/noncompliance/catalog", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("ETag"))
	assert.Contains(t, w.Header().Get("Cache-Control"), "public")

	var catalog handlers.CatalogResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &catalog))
	assert.Len(t, catalog.Issues, entities.IssueCount)
}

func TestRouter_SearchUnavailableWithoutIndex(t *testing.T) {
	s := newTestServer(t, http.StatusOK)
	w := s.do(t, http.MethodGet, "/api/noncompliance/assessments/search?q=CLM", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestRouter_EventStreamWithGzipClient(t *testing.T) {
	s := newTestServer(t, http.StatusOK)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/noncompliance/events", nil).WithContext(ctx)
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Contains(t, w.Body.String(), "event: connected")
}

type failingDependency struct{}

func (failingDependency) Health(ctx context.Context) error {
	return errors.New("redis cache unreachable")
}

func TestRouter_ReadinessReportsDependencies(t *testing.T) {
	s := newTestServer(t, http.StatusOK)
	router := routes.NewRouter(
		handlers.NewAssessmentHandler(nil),
		handlers.NewCatalogHandler(),
		nil,
		[]string{"*"},
		nil,
	).WithReadiness(handlers.NewReadinessHandler(map[string]handlers.HealthChecker{"redis": failingDependency{}}))
	s.handler = router.SetupRoutes()

	w := s.do(t, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "redis cache unreachable")
}
