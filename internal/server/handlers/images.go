package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	apierrors "github.com/maruel/mdcms/internal/errors"
	"github.com/maruel/mdcms/internal/naming"
	"github.com/maruel/mdcms/internal/server/dto"
	"github.com/maruel/mdcms/internal/server/reqctx"
	"github.com/maruel/mdcms/internal/storage"
	"github.com/maruel/mdcms/internal/utils"
)

// ImageHandler accepts image uploads. Images are stored as documents that are
// never versioned.
type ImageHandler struct {
	store *storage.Store
	cfg   *Config
}

// NewImageHandler creates an ImageHandler.
func NewImageHandler(store *storage.Store, cfg *Config) *ImageHandler {
	return &ImageHandler{store: store, cfg: cfg}
}

// Upload handles a multipart POST with the image in the "file" field. The
// caller must be authenticated.
func (h *ImageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.cfg.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes)
	}
	file, hdr, err := r.FormFile("file")
	if err != nil {
		var mbe *http.MaxBytesError
		switch {
		case errors.As(err, &mbe):
			utils.RespondError(ctx, w, apierrors.PayloadTooLarge(mbe.Limit))
		case errors.Is(err, http.ErrMissingFile):
			utils.RespondError(ctx, w, apierrors.MissingField("file"))
		default:
			utils.RespondError(ctx, w, apierrors.BadRequest("Invalid multipart form"))
		}
		return
	}
	defer func() { _ = file.Close() }()

	name := hdr.Filename
	if err := naming.Validate(name); err != nil {
		utils.RespondError(ctx, w, storageError(err))
		return
	}
	if naming.KindOf(name) != naming.KindImage {
		utils.RespondError(ctx, w, apierrors.Unsupported("only jpg and gif images can be uploaded"))
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		utils.RespondError(ctx, w, apierrors.BadRequest("Failed to read upload"))
		return
	}
	if err := h.store.Create(ctx, name, data); err != nil {
		utils.RespondError(ctx, w, storageError(err))
		return
	}
	slog.InfoContext(ctx, "Image uploaded", "user", reqctx.User(ctx), "name", name, "size", len(data))
	utils.RespondJSON(ctx, w, http.StatusOK, &dto.NameResponse{Name: name, URL: rawURL(name)})
}
