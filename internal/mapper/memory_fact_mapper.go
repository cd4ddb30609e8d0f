package mapper

import (
	"ai-studymate-be/internal/entity"
	"ai-studymate-be/internal/model"
)

type MemoryFactMapper struct{}

func NewMemoryFactMapper() *MemoryFactMapper {
	return &MemoryFactMapper{}
}

func (m *MemoryFactMapper) ToEntity(f *model.MemoryFact) *entity.MemoryFact {
	if f == nil {
		return nil
	}
	return &entity.MemoryFact{
		Id:        f.Id,
		UserId:    f.UserId,
		SessionId: f.SessionId,
		Scope:     f.Scope,
		Text:      f.Text,
		CreatedAt: f.CreatedAt,
	}
}

func (m *MemoryFactMapper) ToModel(f *entity.MemoryFact) *model.MemoryFact {
	if f == nil {
		return nil
	}
	return &model.MemoryFact{
		Id:        f.Id,
		UserId:    f.UserId,
		SessionId: f.SessionId,
		Scope:     f.Scope,
		Text:      f.Text,
		CreatedAt: f.CreatedAt,
	}
}
