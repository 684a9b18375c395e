package http

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/catalog/internal/service"
	apperrors "github.com/utafrali/catalog/pkg/errors"
	"github.com/utafrali/catalog/pkg/httputil"
)

// AdminHandler serves maintenance endpoints.
type AdminHandler struct {
	indexer *service.IndexSynchronizer
	logger  *slog.Logger
}

// NewAdminHandler creates a new admin HTTP handler.
func NewAdminHandler(indexer *service.IndexSynchronizer, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{indexer: indexer, logger: logger}
}

// Reindex handles POST /api/v1/admin/reindex
// @Summary Rebuild the search index
// @Description Reloads every product into the search index and prunes
// @Description documents of deleted products.
// @Tags admin
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /api/v1/admin/reindex [post]
func (h *AdminHandler) Reindex(w http.ResponseWriter, r *http.Request) {
	indexed, err := h.indexer.BulkRebuild(r.Context())
	if err != nil {
		httputil.WriteError(w, r, apperrors.Unavailable("search index", err), h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]int{"indexed": indexed}})
}
