package providers

import (
	"context"

	"github.com/zatekoja/geyser-noncompliance/internal/domain/entities"
)

// DraftStore holds open assessment sessions between requests.
// Load returns a NOT_FOUND AppError for unknown or expired drafts.
type DraftStore interface {
	Save(ctx context.Context, record *entities.AssessmentRecord) error
	Load(ctx context.Context, id string) (*entities.AssessmentRecord, error)
	Delete(ctx context.Context, id string) error
}
