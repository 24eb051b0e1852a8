// Package utils holds HTTP response helpers shared by the server and handlers.
package utils

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apierrors "github.com/maruel/mdcms/internal/errors"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   ErrorDetail    `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorDetail carries the code and message of an error response.
type ErrorDetail struct {
	Code    apierrors.ErrorCode `json:"code"`
	Message string              `json:"message"`
}

// RespondJSON sends a JSON response with the given status code.
func RespondJSON(ctx context.Context, w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.ErrorContext(ctx, "Failed to encode response", "err", err)
	}
}

// RespondError sends err as a JSON error response. Errors implementing
// apierrors.ErrorWithStatus choose the status and code; anything else is a
// 500 whose message is not disclosed.
func RespondError(ctx context.Context, w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := ErrorBody{Error: ErrorDetail{Code: apierrors.ErrInternal, Message: "Internal server error"}}
	var ews apierrors.ErrorWithStatus
	if errors.As(err, &ews) {
		status = ews.StatusCode()
		body.Error.Code = ews.Code()
		body.Error.Message = ews.Error()
		if status >= 500 {
			// Do not leak filesystem details.
			body.Error.Message = http.StatusText(status)
		}
		body.Details = ews.Details()
	}
	if status >= 500 {
		slog.ErrorContext(ctx, "Handler error", "err", err, "statusCode", status, "code", body.Error.Code)
	} else {
		slog.InfoContext(ctx, "Request rejected", "err", err, "statusCode", status, "code", body.Error.Code)
	}
	RespondJSON(ctx, w, status, body)
}
