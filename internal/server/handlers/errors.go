package handlers

import (
	"context"
	"errors"

	apierrors "github.com/maruel/mdcms/internal/errors"
	"github.com/maruel/mdcms/internal/naming"
	"github.com/maruel/mdcms/internal/storage"
)

// storageError maps an error from the document store to an API error.
func storageError(err error) error {
	name := ""
	var se *storage.Error
	if errors.As(err, &se) {
		name = se.Name
	}
	var ine *naming.InvalidNameError
	switch {
	case errors.As(err, &ine):
		return apierrors.InvalidName(ine.Name, string(ine.Reason)).Wrap(err)
	case errors.Is(err, storage.ErrNotFound):
		return apierrors.NotFound(name).Wrap(err)
	case errors.Is(err, storage.ErrAlreadyExists):
		return apierrors.AlreadyExists(name).Wrap(err)
	case errors.Is(err, storage.ErrUnsupported):
		return apierrors.Unsupported(name + ": not supported for images").Wrap(err)
	case errors.Is(err, storage.ErrVersionOverflow):
		return apierrors.VersionOverflow(name).Wrap(err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apierrors.InternalWithError("request aborted", err)
	default:
		return apierrors.Storage(err)
	}
}
