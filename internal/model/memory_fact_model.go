package model

import (
	"time"

	"github.com/google/uuid"
)

type MemoryFact struct {
	Id        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId    uuid.UUID  `gorm:"type:uuid;not null;index"`
	SessionId *uuid.UUID `gorm:"type:uuid;index"` // NULL for permanent facts
	Scope     string     `gorm:"type:varchar(16);not null"`
	Text      string     `gorm:"type:text;not null"`
	CreatedAt time.Time  `gorm:"autoCreateTime"`
}

func (MemoryFact) TableName() string {
	return "memory_facts"
}
