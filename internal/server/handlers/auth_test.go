package handlers

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	apierrors "github.com/maruel/mdcms/internal/errors"
	"github.com/maruel/mdcms/internal/identity"
	"github.com/maruel/mdcms/internal/server/dto"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func newAuthHandler(t *testing.T, signup bool) (*AuthHandler, *identity.FileStore) {
	t.Helper()
	users, err := identity.OpenFileStore(filepath.Join(t.TempDir(), "users.yml"))
	if err != nil {
		t.Fatal(err)
	}
	if err := users.Add("joe", "hunter22"); err != nil {
		t.Fatal(err)
	}
	var reg Registrar
	if signup {
		reg = users
	}
	return NewAuthHandler(users, reg, &Config{JWTKey: testKey, TokenTTL: time.Hour}), users
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var ae *apierrors.APIError
	if !errors.As(err, &ae) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	return ae.StatusCode()
}

func TestToken(t *testing.T) {
	now := time.Now()
	tok, exp, err := IssueToken(testKey, "joe", time.Hour, now)
	if err != nil {
		t.Fatal(err)
	}
	if !exp.Equal(now.Add(time.Hour)) {
		t.Errorf("expires at %v, want %v", exp, now.Add(time.Hour))
	}
	user, err := ParseToken(testKey, tok)
	if err != nil {
		t.Fatal(err)
	}
	if user != "joe" {
		t.Errorf("subject = %q, want joe", user)
	}

	t.Run("WrongKey", func(t *testing.T) {
		if _, err := ParseToken([]byte("another key of at least 32 bytes"), tok); err == nil {
			t.Error("expected error")
		}
	})
	t.Run("Expired", func(t *testing.T) {
		old, _, err := IssueToken(testKey, "joe", time.Minute, now.Add(-time.Hour))
		if err != nil {
			t.Fatal(err)
		}
		if _, err := ParseToken(testKey, old); !errors.Is(err, jwt.ErrTokenExpired) {
			t.Errorf("got %v, want ErrTokenExpired", err)
		}
	})
	t.Run("NoneAlgorithm", func(t *testing.T) {
		claims := jwt.RegisteredClaims{Subject: "joe", ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))}
		s, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := ParseToken(testKey, s); err == nil {
			t.Error("unsigned token accepted")
		}
	})
	t.Run("NoExpiry", func(t *testing.T) {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "joe"}).SignedString(testKey)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := ParseToken(testKey, s); err == nil {
			t.Error("token without expiry accepted")
		}
	})
}

func TestSignIn(t *testing.T) {
	h, _ := newAuthHandler(t, false)
	ctx := context.Background()
	resp, err := h.SignIn(ctx, &dto.SignInRequest{Username: "joe", Password: "hunter22"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Username != "joe" || resp.Token == "" {
		t.Errorf("unexpected response %+v", resp)
	}
	if u, err := ParseToken(testKey, resp.Token); err != nil || u != "joe" {
		t.Errorf("ParseToken = %q, %v", u, err)
	}

	for _, req := range []dto.SignInRequest{
		{Username: "joe", Password: "wrong"},
		{Username: "alice", Password: "hunter22"},
	} {
		_, err := h.SignIn(ctx, &req)
		if got := statusOf(t, err); got != http.StatusUnauthorized {
			t.Errorf("%s: status %d, want 401", req.Username, got)
		}
	}
}

func TestSignUp(t *testing.T) {
	ctx := context.Background()
	t.Run("Disabled", func(t *testing.T) {
		h, _ := newAuthHandler(t, false)
		_, err := h.SignUp(ctx, &dto.SignUpRequest{Username: "alice", Password: "secret"})
		if got := statusOf(t, err); got != http.StatusForbidden {
			t.Errorf("status %d, want 403", got)
		}
	})
	t.Run("Enabled", func(t *testing.T) {
		h, users := newAuthHandler(t, true)
		resp, err := h.SignUp(ctx, &dto.SignUpRequest{Username: "alice", Password: "secret"})
		if err != nil {
			t.Fatal(err)
		}
		if resp.Username != "alice" {
			t.Errorf("username = %q", resp.Username)
		}
		if !users.Verify("alice", "secret") {
			t.Error("alice cannot sign in")
		}
		_, err = h.SignUp(ctx, &dto.SignUpRequest{Username: "alice", Password: "other"})
		if got := statusOf(t, err); got != http.StatusConflict {
			t.Errorf("duplicate: status %d, want 409", got)
		}
		_, err = h.SignUp(ctx, &dto.SignUpRequest{Username: "bad:name", Password: "x"})
		if got := statusOf(t, err); got != http.StatusBadRequest {
			t.Errorf("bad name: status %d, want 400", got)
		}
	})
}

func TestStorageError(t *testing.T) {
	// Errors that are not from the store are reported as storage failures.
	if got := statusOf(t, storageError(errors.New("boom"))); got != http.StatusInternalServerError {
		t.Errorf("status %d, want 500", got)
	}
	if got := statusOf(t, storageError(context.Canceled)); got != http.StatusInternalServerError {
		t.Errorf("status %d, want 500", got)
	}
}
