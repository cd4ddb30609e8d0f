package search

import (
	"context"
	"fmt"

	"ai-studymate-be/internal/repository/contract"
	"ai-studymate-be/pkg/embedding"
	"ai-studymate-be/pkg/rag/retrieval"
)

// VectorProvider is the semantic retrieval modality: it embeds the query and
// runs a cosine similarity search against the chunk store. Scores are cosine
// similarity in [0,1].
type VectorProvider struct {
	embedder embedding.EmbeddingProvider
	chunks   contract.DocumentChunkRepository
}

func NewVectorProvider(embedder embedding.EmbeddingProvider, chunks contract.DocumentChunkRepository) *VectorProvider {
	return &VectorProvider{
		embedder: embedder,
		chunks:   chunks,
	}
}

func (p *VectorProvider) Search(ctx context.Context, query string, scope retrieval.Scope, k int) ([]retrieval.Hit, error) {
	resp, err := p.embedder.Generate(query, embedding.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	scored, err := p.chunks.SearchSimilar(ctx, resp.Embedding.Values, k, scope.Collection, scope.SelectedFiles)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	return toHits(scored), nil
}

func toHits(scored []*contract.ScoredDocumentChunk) []retrieval.Hit {
	hits := make([]retrieval.Hit, 0, len(scored))
	for _, s := range scored {
		if s.Chunk == nil {
			continue
		}
		hits = append(hits, retrieval.Hit{
			ChunkID:    s.Chunk.Id.String(),
			Text:       s.Chunk.Content,
			Source:     s.Chunk.Source,
			Page:       s.Chunk.Page,
			Collection: s.Chunk.Collection,
			Score:      s.Score,
		})
	}
	return hits
}
