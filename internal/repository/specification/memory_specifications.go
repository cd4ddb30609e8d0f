package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VisibleFacts selects all permanent facts for a user plus session-scoped
// facts belonging to the given session only.
type VisibleFacts struct {
	UserID    uuid.UUID
	SessionID *uuid.UUID
}

func (s VisibleFacts) Apply(db *gorm.DB) *gorm.DB {
	db = db.Where("user_id = ?", s.UserID)
	if s.SessionID == nil {
		return db.Where("session_id IS NULL")
	}
	return db.Where("session_id IS NULL OR session_id = ?", *s.SessionID)
}
