package model

import (
	"time"

	"github.com/google/uuid"
)

type ChatCitation struct {
	Id             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ChatMessageId  uuid.UUID `gorm:"type:uuid;not null;index"`
	Source         string    `gorm:"type:text;not null"`
	Page           *int
	Preview        string  `gorm:"type:text"`
	RelevanceScore float64 `gorm:"not null"`
	Position       int     `gorm:"not null;default:0"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
}

func (ChatCitation) TableName() string {
	return "chat_citations"
}
