package entity

import (
	"time"

	"github.com/google/uuid"
)

type ChatCitation struct {
	Id             uuid.UUID
	ChatMessageId  uuid.UUID
	Source         string
	Page           *int
	Preview        string
	RelevanceScore float64
	Position       int // 0-based order within the message
	CreatedAt      time.Time
}
