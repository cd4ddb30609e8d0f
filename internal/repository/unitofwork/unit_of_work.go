package unitofwork

import (
	"context"

	"ai-studymate-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	ChatSessionRepository() contract.ChatSessionRepository
	ChatMessageRepository() contract.ChatMessageRepository
	ChatCitationRepository() contract.ChatCitationRepository
	MemoryFactRepository() contract.MemoryFactRepository
	DocumentChunkRepository() contract.DocumentChunkRepository
}
