package errors

import (
	"errors"
	"io"
	"net/http"
	"testing"
)

func TestAPIError(t *testing.T) {
	tests := []struct {
		name   string
		err    *APIError
		status int
		code   ErrorCode
	}{
		{"NotFound", NotFound("document"), http.StatusNotFound, ErrNotFound},
		{"InvalidName", InvalidName("a/b", "reserved-character"), http.StatusUnprocessableEntity, ErrInvalidName},
		{"AlreadyExists", AlreadyExists("a.md"), http.StatusConflict, ErrAlreadyExists},
		{"Unsupported", Unsupported("images are not versioned"), http.StatusUnsupportedMediaType, ErrUnsupported},
		{"VersionOverflow", VersionOverflow("a.md"), http.StatusInsufficientStorage, ErrVersionOverflow},
		{"Storage", Storage(io.ErrUnexpectedEOF), http.StatusInternalServerError, ErrStorageError},
		{"RateLimited", RateLimited(), http.StatusTooManyRequests, ErrRateLimited},
		{"Unauthorized", Unauthorized(), http.StatusUnauthorized, ErrUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.StatusCode() != tt.status {
				t.Errorf("StatusCode = %d, want %d", tt.err.StatusCode(), tt.status)
			}
			if tt.err.Code() != tt.code {
				t.Errorf("Code = %s, want %s", tt.err.Code(), tt.code)
			}
			var ews ErrorWithStatus
			if !errors.As(error(tt.err), &ews) {
				t.Error("does not implement ErrorWithStatus")
			}
		})
	}

	err := Storage(io.ErrUnexpectedEOF)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("Storage does not wrap its cause")
	}
	if err.Error() != "storage failure: unexpected EOF" {
		t.Errorf("Error() = %q", err.Error())
	}
	if d := InvalidName("x", "empty").Details(); d["reason"] != "empty" {
		t.Errorf("Details = %v", d)
	}
}
