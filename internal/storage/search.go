package storage

import (
	"cmp"
	"context"
	"errors"
	"io/fs"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/maruel/mdcms/internal/naming"
)

// SearchResult is one document matching a query.
type SearchResult struct {
	Name    string  `json:"name"`
	Kind    string  `json:"kind"`
	Snippet string  `json:"snippet"` // Context around the first body match.
	Matches int     `json:"matches"`
	Score   float64 `json:"score"` // Relevance, 0-1.
}

// SearchOptions controls search behavior.
type SearchOptions struct {
	Query string // Case-insensitive substring.
	Limit int    // Max results; 0 means no limit.
}

// Search scans the live text and markdown documents for opts.Query and
// returns them by decreasing score. Name matches weigh more than body
// matches. History entries and images are not searched.
func (s *Store) Search(ctx context.Context, opts SearchOptions) ([]SearchResult, error) {
	results := []SearchResult{}
	query := opts.Query
	if query == "" {
		return results, nil
	}
	names, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		kind := naming.KindOf(name)
		if !kind.Versionable() {
			continue
		}
		content, err := readFile(ctx, s.fs, name)
		if err != nil {
			// Deleted since the listing.
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fault("search", name, err)
		}
		nameMatches := countMatches(name, query)
		body := string(content)
		bodyMatches := countMatches(body, query)
		if nameMatches+bodyMatches == 0 {
			continue
		}
		results = append(results, SearchResult{
			Name:    name,
			Kind:    kind.String(),
			Snippet: snippet(body, query, 20, 30),
			Matches: nameMatches + bodyMatches,
			Score:   min(0.5*float64(nameMatches)+0.1*float64(bodyMatches), 1),
		})
	}
	slices.SortStableFunc(results, func(a, b SearchResult) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results, nil
}

// countMatches counts the non-overlapping case-insensitive occurrences of
// query in text.
func countMatches(text, query string) int {
	n := 0
	for {
		_, j := indexFold(text, query)
		if j < 0 {
			return n
		}
		n++
		text = text[j:]
	}
}

// snippet returns text around the first case-insensitive match of query,
// with before and after bytes of context. The original case is kept.
func snippet(text, query string, before, after int) string {
	i, j := indexFold(text, query)
	if i < 0 {
		return ""
	}
	start := max(i-before, 0)
	end := min(j+after, len(text))
	// Do not split a UTF-8 sequence.
	for start > 0 && !utf8.RuneStart(text[start]) {
		start--
	}
	for end < len(text) && !utf8.RuneStart(text[end]) {
		end++
	}
	out := strings.Join(strings.Fields(text[start:end]), " ")
	if start > 0 {
		out = "..." + out
	}
	if end < len(text) {
		out += "..."
	}
	return out
}

// indexFold returns the byte range in text of the first match of query under
// Unicode case folding, or -1, -1. Offsets are into text itself: case mapping
// can change the byte length of a rune, so they cannot come from a lowered
// copy.
func indexFold(text, query string) (int, int) {
	if query == "" {
		return -1, -1
	}
	for i := 0; i < len(text); {
		if j, ok := matchFoldAt(text, i, query); ok {
			return i, j
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		i += size
	}
	return -1, -1
}

// matchFoldAt reports whether query matches text starting at byte i, rune by
// rune, and returns the end offset of the match.
func matchFoldAt(text string, i int, query string) (int, bool) {
	for _, q := range query {
		if i >= len(text) {
			return 0, false
		}
		r, size := utf8.DecodeRuneInString(text[i:])
		if r != q && !equalFoldRune(r, q) {
			return 0, false
		}
		i += size
	}
	return i, true
}

func equalFoldRune(a, b rune) bool {
	for f := unicode.SimpleFold(a); f != a; f = unicode.SimpleFold(f) {
		if f == b {
			return true
		}
	}
	return false
}
