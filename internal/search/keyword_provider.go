package search

import (
	"context"
	"fmt"

	"ai-studymate-be/internal/repository/contract"
	"ai-studymate-be/pkg/rag/retrieval"
)

// KeywordProvider is the lexical retrieval modality backed by Postgres
// full-text ranking. Scores are raw ts_rank values on an unbounded scale;
// the retriever normalizes them per result set.
type KeywordProvider struct {
	chunks contract.DocumentChunkRepository
}

func NewKeywordProvider(chunks contract.DocumentChunkRepository) *KeywordProvider {
	return &KeywordProvider{
		chunks: chunks,
	}
}

func (p *KeywordProvider) Search(ctx context.Context, query string, scope retrieval.Scope, k int) ([]retrieval.Hit, error) {
	scored, err := p.chunks.SearchKeyword(ctx, query, k, scope.Collection, scope.SelectedFiles)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	return toHits(scored), nil
}
