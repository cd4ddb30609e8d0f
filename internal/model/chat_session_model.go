package model

import (
	"time"

	"github.com/google/uuid"
)

type ChatSession struct {
	Id         uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId     uuid.UUID  `gorm:"type:uuid;not null;index"` // User ownership for data isolation
	Name       string     `gorm:"type:text;not null"`
	ClassId    *uuid.UUID `gorm:"type:uuid;index"`
	ClassName  string     `gorm:"type:text"`
	DomainType string     `gorm:"type:varchar(32);not null"`
	Persona    string     `gorm:"type:text"`
	CreatedAt  time.Time  `gorm:"autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime"`
}

func (ChatSession) TableName() string {
	return "chat_sessions"
}
