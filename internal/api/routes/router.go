package routes

import (
	"net/http"

	"github.com/zatekoja/geyser-noncompliance/internal/api/handlers"
	"github.com/zatekoja/geyser-noncompliance/internal/api/middleware"
	"github.com/zatekoja/geyser-noncompliance/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	assessmentHandler *handlers.AssessmentHandler
	catalogHandler    *handlers.CatalogHandler
	sseHandler        *handlers.SSEHandler
	readinessHandler  *handlers.ReadinessHandler

	allowedOrigins []string
	metrics        *observability.Metrics
}

// NewRouter creates a new router. sseHandler may be nil when no event bus is configured.
func NewRouter(
	assessmentHandler *handlers.AssessmentHandler,
	catalogHandler *handlers.CatalogHandler,
	sseHandler *handlers.SSEHandler,
	allowedOrigins []string,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:               http.NewServeMux(),
		assessmentHandler: assessmentHandler,
		catalogHandler:    catalogHandler,
		sseHandler:        sseHandler,
		allowedOrigins:    allowedOrigins,
		metrics:           metrics,
	}
}

// WithReadiness exposes GET /ready backed by h
func (r *Router) WithReadiness(h *handlers.ReadinessHandler) *Router {
	r.readinessHandler = h
	return r
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	if r.readinessHandler != nil {
		r.mux.HandleFunc("GET /ready", r.readinessHandler.GetReadiness)
	}

	// Catalog
	r.mux.Handle("GET /api/noncompliance/catalog", middleware.ETag(http.HandlerFunc(r.catalogHandler.GetCatalog)))

	// Sessions
	r.mux.HandleFunc("POST /api/noncompliance/sessions", r.assessmentHandler.StartSession)
	r.mux.HandleFunc("GET /api/noncompliance/sessions/{id}", r.assessmentHandler.GetSession)
	r.mux.HandleFunc("PATCH /api/noncompliance/sessions/{id}", r.assessmentHandler.UpdateFields)
	r.mux.HandleFunc("DELETE /api/noncompliance/sessions/{id}", r.assessmentHandler.DiscardSession)
	r.mux.HandleFunc("POST /api/noncompliance/sessions/{id}/issues/{index}/toggle", r.assessmentHandler.ToggleIssue)
	r.mux.HandleFunc("PATCH /api/noncompliance/sessions/{id}/issues/{index}", r.assessmentHandler.UpdateIssue)
	r.mux.HandleFunc("POST /api/noncompliance/sessions/{id}/submit", r.assessmentHandler.Submit)
	r.mux.HandleFunc("POST /api/noncompliance/sessions/{id}/export", r.assessmentHandler.ExportSession)

	// Stored assessments
	r.mux.HandleFunc("GET /api/noncompliance/assessments/search", r.assessmentHandler.SearchAssessments)
	r.mux.HandleFunc("GET /api/noncompliance/assessments/{id}", r.assessmentHandler.GetAssessment)
	r.mux.HandleFunc("POST /api/noncompliance/assessments/{id}/export", r.assessmentHandler.ExportAssessment)
	r.mux.HandleFunc("GET /api/jobs/{jobId}/noncompliance", r.assessmentHandler.ListJobAssessments)

	if r.sseHandler != nil {
		r.mux.HandleFunc("GET /api/noncompliance/events", r.sseHandler.StreamAssessmentEvents)
	}

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.ResponseOptimization(handler)
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}
