package entity

import (
	"time"

	"github.com/google/uuid"
)

type ChatMessage struct {
	Id            uuid.UUID
	ChatSessionId uuid.UUID
	Role          string
	Content       string
	Seq           int64 // monotonic per session; append-only log position
	CreatedAt     time.Time
}
