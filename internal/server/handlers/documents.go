package handlers

import (
	"context"
	"log/slog"
	"slices"

	apierrors "github.com/maruel/mdcms/internal/errors"
	"github.com/maruel/mdcms/internal/naming"
	"github.com/maruel/mdcms/internal/server/dto"
	"github.com/maruel/mdcms/internal/storage"
)

// DocumentHandler exposes the document store and its history.
type DocumentHandler struct {
	store *storage.Store
}

// NewDocumentHandler creates a handler over store.
func NewDocumentHandler(store *storage.Store) *DocumentHandler {
	return &DocumentHandler{store: store}
}

// List returns the documents sorted by name.
func (h *DocumentHandler) List(ctx context.Context, _ *dto.EmptyRequest) (*dto.ListDocumentsResponse, error) {
	names, err := h.store.List(ctx)
	if err != nil {
		return nil, storageError(err)
	}
	slices.Sort(names)
	docs := make([]dto.DocumentSummary, 0, len(names))
	for _, n := range names {
		docs = append(docs, dto.DocumentSummary{Name: n, Kind: naming.KindOf(n).String()})
	}
	return &dto.ListDocumentsResponse{Documents: docs}, nil
}

// Get returns the content of a text document, or the URL of an image.
func (h *DocumentHandler) Get(ctx context.Context, req *dto.DocumentRequest) (*dto.DocumentResponse, error) {
	data, err := h.store.Read(ctx, req.Name)
	if err != nil {
		return nil, storageError(err)
	}
	kind := naming.KindOf(req.Name)
	resp := &dto.DocumentResponse{Name: req.Name, Kind: kind.String()}
	if kind == naming.KindImage {
		resp.URL = rawURL(req.Name)
	} else {
		resp.Content = string(data)
	}
	return resp, nil
}

// Create adds a text or markdown document. Images go through the upload
// endpoint.
func (h *DocumentHandler) Create(ctx context.Context, user string, req *dto.CreateDocumentRequest) (*dto.NameResponse, error) {
	if err := naming.Validate(req.Name); err != nil {
		return nil, storageError(err)
	}
	if naming.KindOf(req.Name) == naming.KindImage {
		return nil, apierrors.Unsupported("images must be uploaded")
	}
	if err := h.store.Create(ctx, req.Name, []byte(req.Content)); err != nil {
		return nil, storageError(err)
	}
	slog.InfoContext(ctx, "Document created", "user", user, "name", req.Name)
	return &dto.NameResponse{Name: req.Name, URL: rawURL(req.Name)}, nil
}

// Update replaces a document's content. Identical content is reported as
// unchanged and leaves the history untouched.
func (h *DocumentHandler) Update(ctx context.Context, user string, req *dto.UpdateDocumentRequest) (*dto.UpdateDocumentResponse, error) {
	res, err := h.store.Update(ctx, req.Name, []byte(*req.Content))
	if err != nil {
		return nil, storageError(err)
	}
	if res.Outcome == storage.Updated {
		slog.InfoContext(ctx, "Document updated", "user", user, "name", req.Name, "snapshot", res.Snapshot.Name)
	}
	return &dto.UpdateDocumentResponse{
		Name:     req.Name,
		Outcome:  res.Outcome.String(),
		Changed:  res.Outcome == storage.Updated,
		Snapshot: res.Snapshot,
	}, nil
}

// Delete removes a document. Its history is kept.
func (h *DocumentHandler) Delete(ctx context.Context, user string, req *dto.DocumentRequest) (*dto.OKResponse, error) {
	if err := h.store.Delete(ctx, req.Name); err != nil {
		return nil, storageError(err)
	}
	slog.InfoContext(ctx, "Document deleted", "user", user, "name", req.Name)
	return &dto.OKResponse{OK: true}, nil
}

// Duplicate copies a document to its _copy name.
func (h *DocumentHandler) Duplicate(ctx context.Context, user string, req *dto.DocumentRequest) (*dto.NameResponse, error) {
	name, err := h.store.Duplicate(ctx, req.Name)
	if err != nil {
		return nil, storageError(err)
	}
	slog.InfoContext(ctx, "Document duplicated", "user", user, "name", req.Name, "copy", name)
	return &dto.NameResponse{Name: name, URL: rawURL(name)}, nil
}

func rawURL(name string) string {
	return "/raw/" + name
}
