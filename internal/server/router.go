// Package server implements the HTTP server and routing logic.
package server

import (
	"net/http"

	"github.com/maruel/mdcms/internal/identity"
	"github.com/maruel/mdcms/internal/render"
	"github.com/maruel/mdcms/internal/server/handlers"
	"github.com/maruel/mdcms/internal/server/ratelimit"
	"github.com/maruel/mdcms/internal/storage"
)

// Services are the collaborators the router exposes over HTTP.
type Services struct {
	Store    *storage.Store
	Creds    identity.CredentialStore
	Users    handlers.Registrar // nil disables sign-up
	Markdown *render.Markdown
	Audit    handlers.AuditLog // nil when the git mirror is disabled
	Version  string
}

// NewRouter creates and configures the HTTP router.
// Reads are public; mutations require a bearer token.
func NewRouter(svc *Services, cfg *handlers.Config, limits *ratelimit.Config) http.Handler {
	mux := &http.ServeMux{}
	hh := handlers.NewHealthHandler(svc.Version)
	authh := handlers.NewAuthHandler(svc.Creds, svc.Users, cfg)
	dh := handlers.NewDocumentHandler(svc.Store)
	rh := handlers.NewRawHandler(svc.Store, svc.Markdown)
	ih := handlers.NewImageHandler(svc.Store, cfg)
	auh := handlers.NewAuditHandler(svc.Audit)

	mux.Handle("GET /api/health", Wrap(hh.Health, cfg, limits))

	// Auth
	mux.Handle("POST /api/auth/signin", Wrap(authh.SignIn, cfg, limits))
	mux.Handle("POST /api/auth/signup", Wrap(authh.SignUp, cfg, limits))
	mux.Handle("GET /api/auth/me", WrapAuth(authh.Me, cfg, limits))

	// Documents
	mux.Handle("GET /api/documents", Wrap(dh.List, cfg, limits))
	mux.Handle("POST /api/documents", WrapAuth(dh.Create, cfg, limits))
	mux.Handle("GET /api/documents/{name}", Wrap(dh.Get, cfg, limits))
	mux.Handle("GET /api/search", Wrap(dh.Search, cfg, limits))
	mux.Handle("PUT /api/documents/{name}", WrapAuth(dh.Update, cfg, limits))
	mux.Handle("DELETE /api/documents/{name}", WrapAuth(dh.Delete, cfg, limits))
	mux.Handle("POST /api/documents/{name}/duplicate", WrapAuth(dh.Duplicate, cfg, limits))

	// History
	mux.Handle("GET /api/documents/{name}/history", Wrap(dh.History, cfg, limits))
	mux.Handle("GET /api/documents/{name}/history/{entry}", Wrap(dh.HistoryEntry, cfg, limits))
	mux.Handle("POST /api/documents/{name}/history/{entry}/restore", WrapAuth(dh.Restore, cfg, limits))

	// Images and rendered views
	mux.Handle("POST /api/images", RequireAuth(http.HandlerFunc(ih.Upload), cfg, limits))
	mux.Handle("GET /raw/{name}", rh)

	// Audit
	mux.Handle("GET /api/audit", Wrap(auh.List, cfg, limits))

	return LoggingMiddleware(mux)
}
