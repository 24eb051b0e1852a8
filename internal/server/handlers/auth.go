package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	apierrors "github.com/maruel/mdcms/internal/errors"
	"github.com/maruel/mdcms/internal/identity"
	"github.com/maruel/mdcms/internal/server/dto"
)

// Registrar adds users. A nil Registrar disables sign-up.
type Registrar interface {
	Add(username, password string) error
}

// AuthHandler handles authentication requests.
type AuthHandler struct {
	creds identity.CredentialStore
	reg   Registrar
	cfg   *Config
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(creds identity.CredentialStore, reg Registrar, cfg *Config) *AuthHandler {
	return &AuthHandler{creds: creds, reg: reg, cfg: cfg}
}

// SignIn verifies the credentials and returns a bearer token.
func (h *AuthHandler) SignIn(ctx context.Context, req *dto.SignInRequest) (*dto.AuthResponse, error) {
	if !h.creds.Verify(req.Username, req.Password) {
		slog.InfoContext(ctx, "Sign-in failed", "user", req.Username)
		return nil, apierrors.NewAPIError(http.StatusUnauthorized, apierrors.ErrUnauthorized, "Invalid credentials")
	}
	return h.issue(req.Username)
}

// SignUp registers a new user and signs them in.
func (h *AuthHandler) SignUp(ctx context.Context, req *dto.SignUpRequest) (*dto.AuthResponse, error) {
	if h.reg == nil {
		return nil, apierrors.Forbidden("Sign-up is disabled")
	}
	if err := h.reg.Add(req.Username, req.Password); err != nil {
		switch {
		case errors.Is(err, identity.ErrUserExists):
			return nil, apierrors.Conflict("User already exists")
		case errors.Is(err, identity.ErrInvalidCredentials):
			return nil, apierrors.BadRequest(err.Error())
		default:
			return nil, apierrors.InternalWithError("Failed to create user", err)
		}
	}
	slog.InfoContext(ctx, "User registered", "user", req.Username)
	return h.issue(req.Username)
}

// Me returns the authenticated username.
func (h *AuthHandler) Me(_ context.Context, user string, _ *dto.EmptyRequest) (*dto.MeResponse, error) {
	return &dto.MeResponse{Username: user}, nil
}

func (h *AuthHandler) issue(username string) (*dto.AuthResponse, error) {
	token, exp, err := IssueToken(h.cfg.JWTKey, username, h.cfg.TokenTTL, time.Now())
	if err != nil {
		return nil, apierrors.InternalWithError("Failed to generate token", err)
	}
	return &dto.AuthResponse{Token: token, Username: username, ExpiresAt: exp}, nil
}

// IssueToken signs an HS256 token whose subject is username.
func IssueToken(key []byte, username string, ttl time.Duration, now time.Time) (string, time.Time, error) {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	exp := now.Add(ttl)
	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", time.Time{}, err
	}
	return s, exp, nil
}

// ParseToken validates a token and returns its subject.
func ParseToken(key []byte, token string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}
