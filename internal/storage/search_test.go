package storage

import (
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
)

func TestSearch(t *testing.T) {
	s := newTestStore(t, memfs.New())
	ctx := t.Context()
	mustCreate(t, s, "getting-started.md", "This is a guide to get started with the project")
	mustCreate(t, s, "advanced.md", "Learn about advanced configuration and optimization of the project")
	mustCreate(t, s, "api.txt", "Complete API documentation for developers")
	mustCreate(t, s, "project.gif", "GIF89a project")
	mustUpdate(t, s, "api.txt", "Complete API reference for developers")

	tests := []struct {
		name  string
		query string
		limit int
		want  []string
	}{
		{"Body", "guide", 0, []string{"getting-started.md"}},
		{"NameFirst", "advanced", 0, []string{"advanced.md"}},
		{"CaseInsensitive", "api", 0, []string{"api.txt"}},
		{"Many", "project", 0, []string{"advanced.md", "getting-started.md"}},
		{"Limit", "project", 1, []string{"advanced.md"}},
		// History entries are not searched.
		{"History", "documentation", 0, nil},
		{"None", "nonexistent", 0, nil},
		{"Empty", "", 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := s.Search(ctx, SearchOptions{Query: tt.query, Limit: tt.limit})
			if err != nil {
				t.Fatal(err)
			}
			if len(results) != len(tt.want) {
				t.Fatalf("got %d results %+v, want %v", len(results), results, tt.want)
			}
			for i, r := range results {
				if r.Name != tt.want[i] {
					t.Errorf("result %d = %q, want %q", i, r.Name, tt.want[i])
				}
				if r.Score <= 0 || r.Score > 1 {
					t.Errorf("score %v out of range", r.Score)
				}
			}
		})
	}

	t.Run("Snippet", func(t *testing.T) {
		results, err := s.Search(ctx, SearchOptions{Query: "API"})
		if err != nil {
			t.Fatal(err)
		}
		if len(results) != 1 {
			t.Fatalf("results = %+v", results)
		}
		if got, want := results[0].Snippet, "Complete API reference for developers"; got != want {
			t.Errorf("snippet = %q, want %q", got, want)
		}
	})
}

func TestSnippet(t *testing.T) {
	text := "0123456789 0123456789 needle 0123456789 0123456789"
	if got, want := snippet(text, "needle", 5, 5), "...6789 needle 0123..."; got != want {
		t.Errorf("snippet = %q, want %q", got, want)
	}
	// The context is widened to a rune boundary.
	if got := snippet("héllo wörld", "llo", 1, 0); got != "...éllo..." {
		t.Errorf("snippet = %q", got)
	}
}

func TestSearchCaseMapping(t *testing.T) {
	s := newTestStore(t, memfs.New())
	ctx := t.Context()
	// U+023A lowercases to a 3 byte rune; U+212A (Kelvin) to a 1 byte rune.
	wide := strings.Repeat("Ⱥ", 100) + " needle"
	kelvin := strings.Repeat("K", 100) + " needle"
	mustCreate(t, s, "wide.md", wide)
	mustCreate(t, s, "kelvin.txt", kelvin)

	results, err := s.Search(ctx, SearchOptions{Query: "needle"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %+v", results)
	}
	for _, r := range results {
		if !strings.HasSuffix(r.Snippet, " needle") || !strings.HasPrefix(r.Snippet, "...") {
			t.Errorf("%s: snippet = %q", r.Name, r.Snippet)
		}
	}

	tests := []struct {
		query   string
		name    string
		matches int
		prefix  string
	}{
		{"ⱥ", "wide.md", 100, "Ⱥ"},
		{"k", "kelvin.txt", 101, "K"},
	}
	for _, tt := range tests {
		results, err := s.Search(ctx, SearchOptions{Query: tt.query})
		if err != nil {
			t.Fatal(err)
		}
		if len(results) != 1 || results[0].Name != tt.name {
			t.Fatalf("Search(%q) = %+v", tt.query, results)
		}
		if results[0].Matches != tt.matches {
			t.Errorf("Search(%q) matches = %d, want %d", tt.query, results[0].Matches, tt.matches)
		}
		if !strings.HasPrefix(results[0].Snippet, tt.prefix) {
			t.Errorf("Search(%q) snippet = %q", tt.query, results[0].Snippet)
		}
	}
}

func TestSnippetOffsets(t *testing.T) {
	tests := []struct {
		text, query string
		want        string
	}{
		{strings.Repeat("Ⱥ", 10) + "x", "X", "...Ⱥx"},
		{"KK needle", "NEEDLE", "...needle"},
		{"abc", "abcd", ""},
		{"", "a", ""},
	}
	for _, tt := range tests {
		if got := snippet(tt.text, tt.query, 1, 1); got != tt.want {
			t.Errorf("snippet(%q, %q) = %q, want %q", tt.text, tt.query, got, tt.want)
		}
	}
	if got := countMatches("AaÀà", "a"); got != 2 {
		t.Errorf("countMatches = %d, want 2", got)
	}
}
