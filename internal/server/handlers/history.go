package handlers

import (
	"context"
	"errors"
	"log/slog"
	"path"

	"github.com/maruel/mdcms/internal/naming"
	"github.com/maruel/mdcms/internal/server/dto"
	"github.com/maruel/mdcms/internal/storage"
)

// History lists the snapshots of a document. Images have none.
func (h *DocumentHandler) History(ctx context.Context, req *dto.DocumentRequest) (*dto.HistoryResponse, error) {
	hist := h.store.History()
	entries, err := hist.List(ctx, req.Name)
	if err != nil {
		return nil, storageError(err)
	}
	resp := &dto.HistoryResponse{Document: req.Name, Entries: entries}
	if naming.KindOf(req.Name).Versionable() {
		next, err := hist.NextVersionPath(ctx, req.Name)
		switch {
		case err == nil:
			resp.Next = path.Base(next)
		case !errors.Is(err, storage.ErrVersionOverflow):
			return nil, storageError(err)
		}
	}
	return resp, nil
}

// HistoryEntry returns the content of one snapshot.
func (h *DocumentHandler) HistoryEntry(ctx context.Context, req *dto.HistoryEntryRequest) (*dto.HistoryEntryResponse, error) {
	data, err := h.store.History().Read(ctx, req.Name, req.Entry)
	if err != nil {
		return nil, storageError(err)
	}
	return &dto.HistoryEntryResponse{Document: req.Name, Entry: req.Entry, Content: string(data)}, nil
}

// Restore makes a snapshot the live content. The content it replaces becomes
// a new snapshot.
func (h *DocumentHandler) Restore(ctx context.Context, user string, req *dto.HistoryEntryRequest) (*dto.RestoreResponse, error) {
	res, err := h.store.Restore(ctx, req.Name, req.Entry)
	if err != nil {
		return nil, storageError(err)
	}
	slog.InfoContext(ctx, "Document restored", "user", user, "name", req.Name, "entry", req.Entry)
	return &dto.RestoreResponse{Document: req.Name, Restored: res.Restored, Snapshot: res.Snapshot}, nil
}
