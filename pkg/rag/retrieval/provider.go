package retrieval

import (
	"context"
	"errors"
	"unicode/utf8"
)

// ErrRetrievalUnavailable is returned only when both search providers are
// unreachable after a single backed-off retry.
var ErrRetrievalUnavailable = errors.New("retrieval unavailable: all search providers unreachable")

// Scope restricts a provider search to one collection and, optionally, to an
// allow-list of source files inside it. Providers MUST honor both; the
// retriever re-checks defensively.
type Scope struct {
	Collection    string
	SelectedFiles []string
}

// Hit is a single raw provider result. Score scale is provider-specific.
type Hit struct {
	ChunkID    string
	Text       string
	Source     string
	Page       int
	Collection string
	Score      float64
}

// SearchProvider is the contract both retrieval modalities implement:
// a semantic/vector similarity search and a keyword/term-statistic search.
type SearchProvider interface {
	Search(ctx context.Context, query string, scope Scope, k int) ([]Hit, error)
}

// Query is one scoped retrieval request.
type Query struct {
	Text          string
	Collection    string
	SelectedFiles []string
	K             int
}

// ScoredChunk is a fused, deduplicated retrieval result entry.
type ScoredChunk struct {
	ChunkID      string
	Text         string
	Source       string
	Page         int
	FusedScore   float64
	VectorScore  float64 // normalized component
	KeywordScore float64 // normalized component
}

// Result is an ordered retrieval outcome; fused scores are non-increasing.
type Result struct {
	Chunks []ScoredChunk
}

// Citation is a retrieved source chunk attached to a generated answer.
type Citation struct {
	Source         string
	Page           int
	Preview        string
	RelevanceScore float64
}

// Citations maps every retained chunk to a Citation, preserving order.
func (r *Result) Citations(previewLen int) []Citation {
	if len(r.Chunks) == 0 {
		return nil
	}
	citations := make([]Citation, len(r.Chunks))
	for i, c := range r.Chunks {
		citations[i] = Citation{
			Source:         c.Source,
			Page:           c.Page,
			Preview:        truncate(c.Text, previewLen),
			RelevanceScore: c.FusedScore,
		}
	}
	return citations
}

func truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	// Never split a multibyte rune
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
