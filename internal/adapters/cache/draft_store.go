package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zatekoja/geyser-noncompliance/internal/domain/entities"
	"github.com/zatekoja/geyser-noncompliance/internal/domain/providers"
	apperrors "github.com/zatekoja/geyser-noncompliance/pkg/errors"
)

const draftKeyPrefix = "draft:"

// DraftStore keeps open assessment sessions in a CacheProvider.
// Every save refreshes the TTL, so a draft expires after TTL seconds without edits.
type DraftStore struct {
	cache      providers.CacheProvider
	ttlSeconds int
}

var _ providers.DraftStore = (*DraftStore)(nil)

// NewDraftStore creates a draft store on top of cache
func NewDraftStore(cache providers.CacheProvider, ttlSeconds int) *DraftStore {
	return &DraftStore{cache: cache, ttlSeconds: ttlSeconds}
}

func draftKey(id string) string {
	return draftKeyPrefix + id
}

// Save writes the draft and refreshes its expiry
func (s *DraftStore) Save(ctx context.Context, record *entities.AssessmentRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return apperrors.NewInternalError("failed to encode draft", err)
	}
	if err := s.cache.Set(ctx, draftKey(record.ID), data, s.ttlSeconds); err != nil {
		return apperrors.NewInternalError("failed to save draft", err)
	}
	return nil
}

// Load returns the draft or a NOT_FOUND error when it is unknown or expired
func (s *DraftStore) Load(ctx context.Context, id string) (*entities.AssessmentRecord, error) {
	data, err := s.cache.Get(ctx, draftKey(id))
	if errors.Is(err, providers.ErrCacheMiss) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("assessment session %s not found or expired", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load draft", err)
	}

	var record entities.AssessmentRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, apperrors.NewInternalError("failed to decode draft", err)
	}
	if record.ComplianceIssues == nil {
		record.ComplianceIssues = make(entities.IssueMap)
	}
	return &record, nil
}

// Delete discards the draft; deleting an unknown draft is not an error
func (s *DraftStore) Delete(ctx context.Context, id string) error {
	if err := s.cache.Delete(ctx, draftKey(id)); err != nil {
		return apperrors.NewInternalError("failed to delete draft", err)
	}
	return nil
}
