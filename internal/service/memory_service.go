package service

import (
	"context"
	"time"

	"ai-studymate-be/internal/constant"
	"ai-studymate-be/internal/dto"
	"ai-studymate-be/internal/entity"
	"ai-studymate-be/internal/repository/specification"
	"ai-studymate-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

// IMemoryService stores and recalls user memory facts. Permanent facts are
// visible in every session; session facts only in the one they were set in.
type IMemoryService interface {
	AddFact(ctx context.Context, userId uuid.UUID, sessionId *uuid.UUID, scope string, text string) (*dto.AddMemoryFactResponse, error)
	VisibleFacts(ctx context.Context, userId uuid.UUID, sessionId *uuid.UUID) ([]string, error)
}

type memoryService struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewMemoryService(uowFactory unitofwork.RepositoryFactory) IMemoryService {
	return &memoryService{
		uowFactory: uowFactory,
	}
}

func (m *memoryService) AddFact(ctx context.Context, userId uuid.UUID, sessionId *uuid.UUID, scope string, text string) (*dto.AddMemoryFactResponse, error) {
	fact := &entity.MemoryFact{
		Id:        uuid.New(),
		UserId:    userId,
		Scope:     scope,
		Text:      text,
		CreatedAt: time.Now(),
	}
	if scope == constant.MemoryScopeSession {
		fact.SessionId = sessionId
	}

	uow := m.uowFactory.NewUnitOfWork(ctx)
	if err := uow.MemoryFactRepository().Create(ctx, fact); err != nil {
		return nil, err
	}

	return &dto.AddMemoryFactResponse{
		Id:    fact.Id,
		Scope: fact.Scope,
		Text:  fact.Text,
	}, nil
}

func (m *memoryService) VisibleFacts(ctx context.Context, userId uuid.UUID, sessionId *uuid.UUID) ([]string, error) {
	uow := m.uowFactory.NewUnitOfWork(ctx)

	facts, err := uow.MemoryFactRepository().FindAll(ctx,
		specification.VisibleFacts{UserID: userId, SessionID: sessionId},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	texts := make([]string, 0, len(facts))
	for _, f := range facts {
		texts = append(texts, f.Text)
	}
	return texts, nil
}
