package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	apierrors "github.com/maruel/mdcms/internal/errors"
	"github.com/maruel/mdcms/internal/render"
	"github.com/maruel/mdcms/internal/storage"
	"github.com/maruel/mdcms/internal/utils"
)

// RawHandler serves documents for display: text as is, markdown rendered to
// HTML and images as their bytes.
type RawHandler struct {
	store *storage.Store
	md    *render.Markdown
}

// NewRawHandler creates a RawHandler.
func NewRawHandler(store *storage.Store, md *render.Markdown) *RawHandler {
	return &RawHandler{store: store, md: md}
}

// ServeHTTP handles GET /raw/{name}.
func (h *RawHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := r.PathValue("name")
	data, err := h.store.Read(ctx, name)
	if err != nil {
		utils.RespondError(ctx, w, storageError(err))
		return
	}
	out, err := h.md.Document(name, data)
	if err != nil {
		utils.RespondError(ctx, w, apierrors.InternalWithError("Failed to render document", err))
		return
	}
	w.Header().Set("Content-Type", out.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(out.Body)))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "no-cache")
	if _, err := w.Write(out.Body); err != nil {
		slog.DebugContext(ctx, "Failed to write document", "name", name, "err", err)
	}
}
