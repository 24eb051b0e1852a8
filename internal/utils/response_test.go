package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apierrors "github.com/maruel/mdcms/internal/errors"
)

func TestRespondError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    apierrors.ErrorCode
		message string
	}{
		{"api error", apierrors.NotFound("a.md"), http.StatusNotFound, apierrors.ErrNotFound, "a.md not found"},
		{"hidden cause", apierrors.Storage(errors.New("/srv/data: disk full")), http.StatusInternalServerError, apierrors.ErrStorageError, "Internal Server Error"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, apierrors.ErrInternal, "Internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			RespondError(t.Context(), w, tt.err)
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			var body ErrorBody
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if body.Error.Code != tt.code || body.Error.Message != tt.message {
				t.Errorf("body = %+v", body)
			}
		})
	}
}
