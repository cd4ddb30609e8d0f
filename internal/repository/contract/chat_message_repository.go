package contract

import (
	"context"

	"ai-studymate-be/internal/entity"
	"ai-studymate-be/internal/repository/specification"

	"github.com/google/uuid"
)

type ChatMessageRepository interface {
	Create(ctx context.Context, message *entity.ChatMessage) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)

	// NextSeq returns the next append-only log position for a session. Must be
	// called inside the same transaction as the subsequent Create so the
	// unique (session, seq) index turns lost-update races into conflicts.
	NextSeq(ctx context.Context, sessionId uuid.UUID) (int64, error)
}
