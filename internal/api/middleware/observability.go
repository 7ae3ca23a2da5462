package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/zatekoja/geyser-noncompliance/internal/infrastructure/observability"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// unmatchedRoute labels requests the mux could not route, keeping metric cardinality bounded
const unmatchedRoute = "unmatched"

// ObservabilityMiddleware traces and meters each request under its mux pattern.
// The span is renamed once routing has happened, and carries the assessment,
// job and issue identifiers taken from the path.
func ObservabilityMiddleware(metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := observability.StartSpan(r.Context(), "HTTP "+r.Method)
			defer span.End()

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			req := r.WithContext(ctx)

			start := time.Now()
			next.ServeHTTP(rw, req)
			duration := time.Since(start)

			// the mux records the matched pattern on req
			route := RouteOf(req)
			span.SetName(route)

			attrs := []attribute.KeyValue{
				attribute.String("http.method", r.Method),
				attribute.String("http.route", route),
				attribute.String("http.user_agent", r.UserAgent()),
				attribute.Int("http.status_code", rw.statusCode),
			}
			attrs = append(attrs, assessmentAttributes(req)...)
			observability.SetSpanAttributes(span, attrs...)

			if rw.statusCode >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(rw.statusCode))
			}

			observability.RecordRequestMetric(ctx, metrics, r.Method, route, rw.statusCode, duration)
		})
	}
}

// RouteOf returns the mux pattern that served r without its method prefix
func RouteOf(r *http.Request) string {
	if r.Pattern == "" {
		return unmatchedRoute
	}
	if _, path, ok := strings.Cut(r.Pattern, " "); ok {
		return path
	}
	return r.Pattern
}

// assessmentAttributes lifts the identifiers a request targets into span attributes
func assessmentAttributes(r *http.Request) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	if id := r.PathValue("id"); id != "" {
		attrs = append(attrs, attribute.String("assessment.id", id))
	}
	if index := r.PathValue("index"); index != "" {
		attrs = append(attrs, attribute.String("assessment.issue_index", index))
	}

	jobID := r.PathValue("jobId")
	if jobID == "" {
		jobID = r.URL.Query().Get("jobId")
	}
	if jobID != "" {
		attrs = append(attrs, attribute.String("job.id", jobID))
	}

	switch {
	case strings.Contains(r.Pattern, "/sessions"):
		attrs = append(attrs, attribute.String("assessment.surface", "session"))
	case strings.Contains(r.Pattern, "/assessments"), strings.Contains(r.Pattern, "/jobs/"):
		attrs = append(attrs, attribute.String("assessment.surface", "stored"))
	}
	return attrs
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *responseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
