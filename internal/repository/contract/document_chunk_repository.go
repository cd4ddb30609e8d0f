package contract

import (
	"context"

	"ai-studymate-be/internal/entity"
)

// ScoredDocumentChunk pairs a chunk with a provider-specific relevance score.
type ScoredDocumentChunk struct {
	Chunk *entity.DocumentChunk
	Score float64
}

// DocumentChunkRepository exposes the two search modalities over the indexed
// chunk store. Both MUST scope by collection and honor the optional source
// allow-list; this is the multi-tenancy boundary.
type DocumentChunkRepository interface {
	// SearchSimilar runs pgvector cosine similarity, scores in [0,1] descending.
	SearchSimilar(ctx context.Context, embedding []float32, limit int, collection string, sources []string) ([]*ScoredDocumentChunk, error)

	// SearchKeyword runs Postgres full-text ranking, raw ts_rank scores descending.
	SearchKeyword(ctx context.Context, query string, limit int, collection string, sources []string) ([]*ScoredDocumentChunk, error)

	CountByCollection(ctx context.Context, collection string) (int64, error)
}
