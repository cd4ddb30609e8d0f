package implementation

import (
	"context"

	"ai-studymate-be/internal/entity"
	"ai-studymate-be/internal/mapper"
	"ai-studymate-be/internal/model"
	"ai-studymate-be/internal/repository/contract"
	"ai-studymate-be/internal/repository/specification"

	"gorm.io/gorm"
)

type MemoryFactRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.MemoryFactMapper
}

func NewMemoryFactRepository(db *gorm.DB) contract.MemoryFactRepository {
	return &MemoryFactRepositoryImpl{
		db:     db,
		mapper: mapper.NewMemoryFactMapper(),
	}
}

func (r *MemoryFactRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *MemoryFactRepositoryImpl) Create(ctx context.Context, fact *entity.MemoryFact) error {
	m := r.mapper.ToModel(fact)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*fact = *r.mapper.ToEntity(m)
	return nil
}

func (r *MemoryFactRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.MemoryFact, error) {
	var models []*model.MemoryFact
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.MemoryFact, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}
