package dto

import (
	"time"

	"github.com/maruel/mdcms/internal/storage"
	"github.com/maruel/mdcms/internal/storage/git"
)

// HealthResponse reports server liveness.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// AuthResponse carries a bearer token.
type AuthResponse struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

// MeResponse identifies the caller.
type MeResponse struct {
	Username string `json:"username"`
}

// DocumentSummary is one row of the document listing.
type DocumentSummary struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// ListDocumentsResponse lists the live documents sorted by name.
type ListDocumentsResponse struct {
	Documents []DocumentSummary `json:"documents"`
}

// DocumentResponse is the content of one document. Images carry a URL
// instead of content.
type DocumentResponse struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Content string `json:"content"`
	URL     string `json:"url,omitempty"`
}

// UpdateDocumentResponse reports the outcome of an update.
type UpdateDocumentResponse struct {
	Name     string                `json:"name"`
	Outcome  string                `json:"outcome"`
	Changed  bool                  `json:"changed"`
	Snapshot *storage.HistoryEntry `json:"snapshot,omitempty"`
}

// NameResponse returns the name of a created or copied document.
type NameResponse struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// OKResponse acknowledges a request without other output.
type OKResponse struct {
	OK bool `json:"ok"`
}

// HistoryResponse lists the history of a document in ascending version order.
type HistoryResponse struct {
	Document string                 `json:"document"`
	Entries  []storage.HistoryEntry `json:"entries"`
	// Next is the entry name the next snapshot will take; empty when the
	// document has no version numbers left.
	Next string `json:"next,omitempty"`
}

// HistoryEntryResponse is the content of one history entry.
type HistoryEntryResponse struct {
	Document string `json:"document"`
	Entry    string `json:"entry"`
	Content  string `json:"content"`
}

// RestoreResponse reports what a restore consumed and preserved.
type RestoreResponse struct {
	Document string               `json:"document"`
	Restored storage.HistoryEntry `json:"restored"`
	Snapshot storage.HistoryEntry `json:"snapshot"`
}

// AuditResponse lists recent commits of the audit mirror, newest first.
type AuditResponse struct {
	Commits []git.Commit `json:"commits"`
}

// SearchResponse lists matching documents by decreasing relevance.
type SearchResponse struct {
	Query   string                 `json:"query"`
	Results []storage.SearchResult `json:"results"`
}
