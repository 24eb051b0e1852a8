package handlers

import (
	"context"

	"github.com/maruel/mdcms/internal/server/dto"
	"github.com/maruel/mdcms/internal/storage"
)

// Search finds text and markdown documents containing a query.
func (h *DocumentHandler) Search(ctx context.Context, req *dto.SearchRequest) (*dto.SearchResponse, error) {
	results, err := h.store.Search(ctx, storage.SearchOptions{Query: req.Query, Limit: req.Limit})
	if err != nil {
		return nil, storageError(err)
	}
	return &dto.SearchResponse{Query: req.Query, Results: results}, nil
}
