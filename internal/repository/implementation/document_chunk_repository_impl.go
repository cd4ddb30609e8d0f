package implementation

import (
	"context"

	"ai-studymate-be/internal/mapper"
	"ai-studymate-be/internal/model"
	"ai-studymate-be/internal/repository/contract"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type DocumentChunkRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.DocumentChunkMapper
}

func NewDocumentChunkRepository(db *gorm.DB) contract.DocumentChunkRepository {
	return &DocumentChunkRepositoryImpl{
		db:     db,
		mapper: mapper.NewDocumentChunkMapper(),
	}
}

// SearchSimilar ranks chunks by pgvector cosine similarity. The cosine
// distance operator <=> returns 1 - cosine_similarity, so the score is
// inverted back before returning. Collection scoping is mandatory.
func (r *DocumentChunkRepositoryImpl) SearchSimilar(ctx context.Context, embedding []float32, limit int, collection string, sources []string) ([]*contract.ScoredDocumentChunk, error) {
	if limit <= 0 {
		limit = 5
	}

	type result struct {
		model.DocumentChunk
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)

	query := r.db.WithContext(ctx).
		Table("document_chunks").
		Select("document_chunks.*, 1 - (embedding <=> ?) as similarity", queryVector).
		Where("collection = ?", collection)
	if len(sources) > 0 {
		query = query.Where("source IN ?", sources)
	}

	err := query.
		Order("similarity DESC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredDocumentChunk, len(results))
	for i, res := range results {
		scored[i] = &contract.ScoredDocumentChunk{
			Chunk: r.mapper.ToEntity(&res.DocumentChunk),
			Score: res.Similarity,
		}
	}
	return scored, nil
}

// SearchKeyword ranks chunks with Postgres full-text search. Scores are raw
// ts_rank values; callers are expected to normalize across the result set.
func (r *DocumentChunkRepositoryImpl) SearchKeyword(ctx context.Context, queryText string, limit int, collection string, sources []string) ([]*contract.ScoredDocumentChunk, error) {
	if limit <= 0 {
		limit = 5
	}

	type result struct {
		model.DocumentChunk
		Rank float64
	}
	var results []result

	query := r.db.WithContext(ctx).
		Table("document_chunks").
		Select("document_chunks.*, ts_rank(to_tsvector('english', content), plainto_tsquery('english', ?)) as rank", queryText).
		Where("collection = ?", collection).
		Where("to_tsvector('english', content) @@ plainto_tsquery('english', ?)", queryText)
	if len(sources) > 0 {
		query = query.Where("source IN ?", sources)
	}

	err := query.
		Order("rank DESC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredDocumentChunk, len(results))
	for i, res := range results {
		scored[i] = &contract.ScoredDocumentChunk{
			Chunk: r.mapper.ToEntity(&res.DocumentChunk),
			Score: res.Rank,
		}
	}
	return scored, nil
}

func (r *DocumentChunkRepositoryImpl) CountByCollection(ctx context.Context, collection string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.DocumentChunk{}).
		Where("collection = ?", collection).
		Count(&count).Error
	return count, err
}
