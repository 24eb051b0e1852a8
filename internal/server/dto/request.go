package dto

// --- Auth ---

// SignInRequest is a request to sign in.
type SignInRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate validates the sign-in request fields.
func (r *SignInRequest) Validate() error {
	if r.Username == "" {
		return MissingField("username")
	}
	if r.Password == "" {
		return MissingField("password")
	}
	return nil
}

// SignUpRequest is a request to register a new user.
type SignUpRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate validates the sign-up request fields.
func (r *SignUpRequest) Validate() error {
	if r.Username == "" {
		return MissingField("username")
	}
	if r.Password == "" {
		return MissingField("password")
	}
	return nil
}

// EmptyRequest is used by endpoints that take no input.
type EmptyRequest struct{}

// Validate always succeeds.
func (r *EmptyRequest) Validate() error {
	return nil
}

// --- Documents ---

// CreateDocumentRequest creates a text or markdown document.
type CreateDocumentRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Validate validates the create request fields.
func (r *CreateDocumentRequest) Validate() error {
	if r.Name == "" {
		return MissingField("name")
	}
	return nil
}

// DocumentRequest addresses one document by name.
type DocumentRequest struct {
	Name string `path:"name" json:"-"`
}

// Validate validates the document name is present.
func (r *DocumentRequest) Validate() error {
	if r.Name == "" {
		return MissingField("name")
	}
	return nil
}

// UpdateDocumentRequest replaces the content of a document.
type UpdateDocumentRequest struct {
	Name    string  `path:"name" json:"-"`
	Content *string `json:"content"`
}

// Validate validates the update request fields. Empty content is allowed.
func (r *UpdateDocumentRequest) Validate() error {
	if r.Name == "" {
		return MissingField("name")
	}
	if r.Content == nil {
		return MissingField("content")
	}
	return nil
}

// HistoryEntryRequest addresses one history entry of a document.
type HistoryEntryRequest struct {
	Name  string `path:"name" json:"-"`
	Entry string `path:"entry" json:"-"`
}

// Validate validates both names are present.
func (r *HistoryEntryRequest) Validate() error {
	if r.Name == "" {
		return MissingField("name")
	}
	if r.Entry == "" {
		return MissingField("entry")
	}
	return nil
}

// --- Audit ---

// AuditRequest lists recent audit commits.
type AuditRequest struct {
	Limit int `query:"limit"` // 1-1000, default 100.
}

// Validate clamps the limit.
func (r *AuditRequest) Validate() error {
	if r.Limit <= 0 {
		r.Limit = 100
	}
	r.Limit = min(r.Limit, 1000)
	return nil
}

// --- Search ---

// SearchRequest is a full-text query over the live documents.
type SearchRequest struct {
	Query string `query:"q"`
	Limit int    `query:"limit"` // 0 means 50, capped at 1000.
}

// Validate requires a query and clamps the limit.
func (r *SearchRequest) Validate() error {
	if r.Query == "" {
		return MissingField("q")
	}
	if r.Limit <= 0 {
		r.Limit = 50
	}
	r.Limit = min(r.Limit, 1000)
	return nil
}
