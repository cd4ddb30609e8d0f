package retrieval

import (
	"context"
	"log"
	"sort"
	"strings"
	"time"
)

// Config encapsulates fusion parameters. Weights are tuning knobs, not
// correctness knobs: defaults favor semantic recall while keeping exact-term
// matches from being fully discounted.
type Config struct {
	VectorWeight    float64
	KeywordWeight   float64
	ProviderTimeout time.Duration
	RetryBackoff    time.Duration
	PreviewLength   int
	DefaultK        int
}

// DefaultConfig returns default fusion configuration
func DefaultConfig() Config {
	return Config{
		VectorWeight:    0.7,
		KeywordWeight:   0.3,
		ProviderTimeout: 5 * time.Second,
		RetryBackoff:    500 * time.Millisecond,
		PreviewLength:   200,
		DefaultK:        10,
	}
}

// HybridRetriever fans a query out to a vector provider and a keyword
// provider concurrently, normalizes each modality's scores independently,
// and fuses them into a single deterministic ranking.
type HybridRetriever struct {
	vector  SearchProvider
	keyword SearchProvider
	config  Config
	logger  *log.Logger
}

// NewHybridRetriever creates a new hybrid retriever
func NewHybridRetriever(vector, keyword SearchProvider, config Config, logger *log.Logger) *HybridRetriever {
	if config.VectorWeight <= 0 && config.KeywordWeight <= 0 {
		config = DefaultConfig()
	}
	if config.ProviderTimeout <= 0 {
		config.ProviderTimeout = DefaultConfig().ProviderTimeout
	}
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = DefaultConfig().RetryBackoff
	}
	return &HybridRetriever{
		vector:  vector,
		keyword: keyword,
		config:  config,
		logger:  logger,
	}
}

type providerOutcome struct {
	hits []Hit
	err  error
}

// Retrieve executes the scoped hybrid search for q.
//
// Both providers run concurrently. A provider that errors or times out is
// treated as returning an empty set (degraded); if both fail, the pair is
// retried once after a backoff before ErrRetrievalUnavailable surfaces.
func (h *HybridRetriever) Retrieve(ctx context.Context, q Query) (*Result, error) {
	if strings.TrimSpace(q.Text) == "" || q.K <= 0 {
		// Nothing to search for: no provider calls are made
		return &Result{}, nil
	}

	scope := Scope{Collection: q.Collection, SelectedFiles: q.SelectedFiles}

	vectorHits, keywordHits, err := h.fanOut(ctx, q.Text, scope, q.K)
	if err != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(h.config.RetryBackoff):
		}
		h.logger.Printf("[RETRIEVAL] Both providers failed, retrying once")
		vectorHits, keywordHits, err = h.fanOut(ctx, q.Text, scope, q.K)
		if err != nil {
			return nil, err
		}
	}

	vectorHits = h.enforceScope(vectorHits, scope, "vector")
	keywordHits = h.enforceScope(keywordHits, scope, "keyword")

	chunks := h.fuse(vectorHits, keywordHits)
	if len(chunks) > q.K {
		chunks = chunks[:q.K]
	}

	return &Result{Chunks: chunks}, nil
}

// fanOut issues the two provider searches concurrently, each bounded by the
// provider timeout. It fails only when both providers failed.
func (h *HybridRetriever) fanOut(ctx context.Context, query string, scope Scope, k int) ([]Hit, []Hit, error) {
	vectorCh := make(chan providerOutcome, 1)
	keywordCh := make(chan providerOutcome, 1)

	go h.search(ctx, h.vector, query, scope, k, vectorCh)
	go h.search(ctx, h.keyword, query, scope, k, keywordCh)

	vector := <-vectorCh
	keyword := <-keywordCh

	if vector.err != nil && keyword.err != nil {
		h.logger.Printf("[RETRIEVAL] vector: %v; keyword: %v", vector.err, keyword.err)
		return nil, nil, ErrRetrievalUnavailable
	}
	if vector.err != nil {
		h.logger.Printf("[RETRIEVAL] Degraded: vector provider failed: %v", vector.err)
		vector.hits = nil
	}
	if keyword.err != nil {
		h.logger.Printf("[RETRIEVAL] Degraded: keyword provider failed: %v", keyword.err)
		keyword.hits = nil
	}

	return vector.hits, keyword.hits, nil
}

func (h *HybridRetriever) search(ctx context.Context, provider SearchProvider, query string, scope Scope, k int, out chan<- providerOutcome) {
	callCtx, cancel := context.WithTimeout(ctx, h.config.ProviderTimeout)
	defer cancel()

	hits, err := provider.Search(callCtx, query, scope, k)
	out <- providerOutcome{hits: hits, err: err}
}

// enforceScope drops hits outside the requested collection or allow-list.
// A provider returning such a hit is a contract violation; the correction is
// silent toward the caller but logged.
func (h *HybridRetriever) enforceScope(hits []Hit, scope Scope, modality string) []Hit {
	allowed := make(map[string]bool, len(scope.SelectedFiles))
	for _, f := range scope.SelectedFiles {
		allowed[f] = true
	}

	kept := hits[:0]
	for _, hit := range hits {
		if hit.Collection != scope.Collection {
			h.logger.Printf("[SCOPE-VIOLATION] %s provider returned chunk %s from collection %q, wanted %q - dropped",
				modality, hit.ChunkID, hit.Collection, scope.Collection)
			continue
		}
		if len(allowed) > 0 && !allowed[hit.Source] {
			h.logger.Printf("[SCOPE-VIOLATION] %s provider returned chunk %s from source %q outside allow-list - dropped",
				modality, hit.ChunkID, hit.Source)
			continue
		}
		kept = append(kept, hit)
	}
	return kept
}

// fuse normalizes each modality independently, combines per-chunk scores by
// identity, deduplicates, and sorts deterministically.
//
// Vector similarities have known [0,1] bounds and are kept (clamped) as-is;
// keyword relevance statistics are unbounded and min-max scaled per result
// set, a degenerate (constant) set normalizing to 1.0.
func (h *HybridRetriever) fuse(vectorHits, keywordHits []Hit) []ScoredChunk {
	vectorNorm := normalizeKnownBound(vectorHits)
	keywordNorm := normalizeMinMax(keywordHits)

	byID := make(map[string]*ScoredChunk)

	for i, hit := range vectorHits {
		byID[hit.ChunkID] = &ScoredChunk{
			ChunkID:     hit.ChunkID,
			Text:        hit.Text,
			Source:      hit.Source,
			Page:        hit.Page,
			VectorScore: vectorNorm[i],
		}
	}
	for i, hit := range keywordHits {
		if existing, ok := byID[hit.ChunkID]; ok {
			existing.KeywordScore = keywordNorm[i]
			continue
		}
		byID[hit.ChunkID] = &ScoredChunk{
			ChunkID:      hit.ChunkID,
			Text:         hit.Text,
			Source:       hit.Source,
			Page:         hit.Page,
			KeywordScore: keywordNorm[i],
		}
	}

	chunks := make([]ScoredChunk, 0, len(byID))
	for _, c := range byID {
		c.FusedScore = h.config.VectorWeight*c.VectorScore + h.config.KeywordWeight*c.KeywordScore
		chunks = append(chunks, *c)
	}

	sort.Slice(chunks, func(i, j int) bool {
		a, b := chunks[i], chunks[j]
		if a.FusedScore != b.FusedScore {
			return a.FusedScore > b.FusedScore
		}
		// Tie-break: stronger individual component, then source, then chunk id
		if maxComponent(a) != maxComponent(b) {
			return maxComponent(a) > maxComponent(b)
		}
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		return a.ChunkID < b.ChunkID
	})

	return chunks
}

func maxComponent(c ScoredChunk) float64 {
	if c.VectorScore > c.KeywordScore {
		return c.VectorScore
	}
	return c.KeywordScore
}

// normalizeKnownBound keeps scores with known [0,1] bounds (cosine
// similarity), clamping strays so a misbehaving provider cannot dominate.
func normalizeKnownBound(hits []Hit) []float64 {
	if len(hits) == 0 {
		return nil
	}
	norm := make([]float64, len(hits))
	for i, h := range hits {
		s := h.Score
		if s < 0 {
			s = 0
		}
		if s > 1 {
			s = 1
		}
		norm[i] = s
	}
	return norm
}

// normalizeMinMax scales an unbounded score set (BM25-style term statistics)
// to [0,1]. A degenerate set where all scores are equal normalizes to 1.0.
func normalizeMinMax(hits []Hit) []float64 {
	if len(hits) == 0 {
		return nil
	}

	min, max := hits[0].Score, hits[0].Score
	for _, h := range hits {
		if h.Score < min {
			min = h.Score
		}
		if h.Score > max {
			max = h.Score
		}
	}

	norm := make([]float64, len(hits))
	if max == min {
		for i := range norm {
			norm[i] = 1.0
		}
		return norm
	}

	for i, h := range hits {
		norm[i] = (h.Score - min) / (max - min)
	}
	return norm
}
