package providers

import (
	"context"

	"github.com/zatekoja/geyser-noncompliance/internal/domain/entities"
)

// RenderedDocument is the renderer's output before a filename is chosen
type RenderedDocument struct {
	Data        []byte
	ContentType string
}

// DocumentRenderer turns an assessment record into a printable document
type DocumentRenderer interface {
	Render(ctx context.Context, record *entities.AssessmentRecord) (*RenderedDocument, error)
}
