package pdfservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/zatekoja/geyser-noncompliance/internal/domain/entities"
	"github.com/zatekoja/geyser-noncompliance/internal/domain/providers"
	"github.com/zatekoja/geyser-noncompliance/pkg/config"
)

const (
	generatePath       = "/api/generate-noncompliance-pdf/"
	defaultContentType = "application/pdf"
	maxDocumentBytes   = 32 << 20
	maxErrorBodyBytes  = 512
)

// HTTPClient renders assessment documents through the external PDF service
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

var _ providers.DocumentRenderer = (*HTTPClient)(nil)

// NewClient builds a renderer client. A zero timeout leaves the request bounded
// only by its context.
func NewClient(cfg *config.PDFServiceConfig) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Render posts the full record and returns the document bytes.
// Transport failures and non-2xx statuses are both errors; there is no retry.
func (c *HTTPClient) Render(ctx context.Context, record *entities.AssessmentRecord) (*providers.RenderedDocument, error) {
	if record == nil || record.ID == "" {
		return nil, fmt.Errorf("pdf service: record id is required")
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("pdf service: encode record: %w", err)
	}

	endpoint := c.baseURL + generatePath + url.PathEscape(record.ID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("pdf service: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", defaultContentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pdf service: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes+1))
	if err != nil {
		return nil, fmt.Errorf("pdf service: read document: %w", err)
	}
	if len(data) > maxDocumentBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrDocumentTooLarge, maxDocumentBytes)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = defaultContentType
	}

	return &providers.RenderedDocument{Data: data, ContentType: contentType}, nil
}

// ErrDocumentTooLarge is returned instead of a truncated document
var ErrDocumentTooLarge = errors.New("pdf service: document too large")

// StatusError is returned when the renderer answers with a non-2xx status
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("pdf service returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("pdf service returned status %d: %s", e.StatusCode, e.Body)
}
