package contract

import (
	"context"

	"ai-studymate-be/internal/entity"
	"ai-studymate-be/internal/repository/specification"
)

type MemoryFactRepository interface {
	Create(ctx context.Context, fact *entity.MemoryFact) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.MemoryFact, error)
}
