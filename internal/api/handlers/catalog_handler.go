package handlers

import (
	"net/http"

	"github.com/zatekoja/geyser-noncompliance/internal/domain/entities"
)

// CatalogResponse is the fixed issue checklist and its display grouping
type CatalogResponse struct {
	IssueCount int                        `json:"issueCount"`
	Issues     []entities.IssueDefinition `json:"issues"`
	Categories []entities.IssueCategory   `json:"categories"`
}

// CatalogHandler serves the issue catalog
type CatalogHandler struct{}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler() *CatalogHandler {
	return &CatalogHandler{}
}

// GetCatalog handles GET /api/noncompliance/catalog
func (h *CatalogHandler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, CatalogResponse{
		IssueCount: entities.IssueCount,
		Issues:     entities.Issues(),
		Categories: entities.IssueCategories(),
	})
}
