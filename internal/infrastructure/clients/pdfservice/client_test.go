package pdfservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/geyser-noncompliance/internal/domain/entities"
	"github.com/zatekoja/geyser-noncompliance/pkg/config"
)

func testRecord() *entities.AssessmentRecord {
	r := entities.NewAssessmentRecord(entities.JobContext{ID: "job-9", Underwriter: "Discovery Insure"}, nil, nil, time.Now())
	r.ID = "noncompliance-abc"
	return r
}

func TestRender_Success(t *testing.T) {
	var gotPath, gotContentType string
	var gotBody map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.7 test"))
	}))
	defer server.Close()

	client := NewClient(&config.PDFServiceConfig{BaseURL: server.URL + "/"})
	doc, err := client.Render(context.Background(), testRecord())
	require.NoError(t, err)

	assert.Equal(t, "/api/generate-noncompliance-pdf/noncompliance-abc", gotPath)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "job-9", gotBody["jobId"])
	assert.Equal(t, "Discovery Insure", gotBody["insuranceName"])
	assert.Equal(t, []byte("%PDF-1.7 test"), doc.Data)
	assert.Equal(t, "application/pdf", doc.ContentType)
}

func TestRender_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "renderer crashed", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(&config.PDFServiceConfig{BaseURL: server.URL})
	doc, err := client.Render(context.Background(), testRecord())

	require.Error(t, err)
	assert.Nil(t, doc)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	assert.Contains(t, err.Error(), "renderer crashed")
}

func TestRender_OversizedDocumentIsRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write(bytes.Repeat([]byte{'x'}, maxDocumentBytes+1024))
	}))
	defer server.Close()

	client := NewClient(&config.PDFServiceConfig{BaseURL: server.URL})
	doc, err := client.Render(context.Background(), testRecord())

	require.Error(t, err)
	assert.Nil(t, doc)
	assert.True(t, errors.Is(err, ErrDocumentTooLarge))
}

func TestRender_DocumentAtLimitIsAccepted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(bytes.Repeat([]byte{'x'}, maxDocumentBytes))
	}))
	defer server.Close()

	client := NewClient(&config.PDFServiceConfig{BaseURL: server.URL})
	doc, err := client.Render(context.Background(), testRecord())

	require.NoError(t, err)
	assert.Len(t, doc.Data, maxDocumentBytes)
}

func TestRender_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(&config.PDFServiceConfig{BaseURL: url})
	_, err := client.Render(context.Background(), testRecord())
	assert.Error(t, err)
}

func TestRender_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := NewClient(&config.PDFServiceConfig{BaseURL: server.URL, Timeout: 20 * time.Millisecond})
	_, err := client.Render(context.Background(), testRecord())
	assert.Error(t, err)
}

func TestRender_DefaultsContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header()["Content-Type"] = nil
		_, _ = w.Write([]byte{0x25, 0x50})
	}))
	defer server.Close()

	client := NewClient(&config.PDFServiceConfig{BaseURL: server.URL})
	doc, err := client.Render(context.Background(), testRecord())
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", doc.ContentType)
}

func TestRender_RequiresID(t *testing.T) {
	client := NewClient(&config.PDFServiceConfig{BaseURL: "http://unused"})
	_, err := client.Render(context.Background(), &entities.AssessmentRecord{})
	assert.Error(t, err)
}
