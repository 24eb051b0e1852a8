package handlers

import (
	"context"

	apierrors "github.com/maruel/mdcms/internal/errors"
	"github.com/maruel/mdcms/internal/server/dto"
	"github.com/maruel/mdcms/internal/storage/git"
)

// AuditLog is the read side of the git mirror.
type AuditLog interface {
	Log(ctx context.Context, n int) ([]git.Commit, error)
}

// AuditHandler serves the audit trail. A nil log means the mirror is off.
type AuditHandler struct {
	log AuditLog
}

// NewAuditHandler creates an audit handler.
func NewAuditHandler(log AuditLog) *AuditHandler {
	return &AuditHandler{log: log}
}

// List returns the most recent commits.
func (h *AuditHandler) List(ctx context.Context, req *dto.AuditRequest) (*dto.AuditResponse, error) {
	if h.log == nil {
		return nil, apierrors.NotFound("audit log")
	}
	commits, err := h.log.Log(ctx, req.Limit)
	if err != nil {
		return nil, apierrors.InternalWithError("Failed to read audit log", err)
	}
	return &dto.AuditResponse{Commits: commits}, nil
}
