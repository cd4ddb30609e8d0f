package entity

import (
	"time"

	"github.com/google/uuid"
)

type ChatSession struct {
	Id         uuid.UUID
	UserId     uuid.UUID
	Name       string
	ClassId    *uuid.UUID // scoping key; nil when the session runs on domain fallback
	ClassName  string
	DomainType string
	Persona    string // role: override, empty until set
	CreatedAt  time.Time
	UpdatedAt  *time.Time
}

// Collection returns the retrieval scoping key: the class always wins, the
// domain type is a fallback only when no class is attached.
func (s *ChatSession) Collection() string {
	if s.ClassId != nil {
		return s.ClassId.String()
	}
	return s.DomainType
}
