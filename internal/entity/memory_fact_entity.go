package entity

import (
	"time"

	"github.com/google/uuid"
)

type MemoryFact struct {
	Id        uuid.UUID
	UserId    uuid.UUID
	SessionId *uuid.UUID // nil for permanent facts
	Scope     string
	Text      string
	CreatedAt time.Time
}
