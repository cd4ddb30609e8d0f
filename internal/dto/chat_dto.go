package dto

import (
	"time"

	"github.com/google/uuid"
)

// UserContextDTO carries the optional caller profile injected into prompts.
type UserContextDTO struct {
	Name              string `json:"name,omitempty"`
	Bio               string `json:"bio,omitempty"`
	ResearchInterests string `json:"research_interests,omitempty"`
	Timezone          string `json:"timezone,omitempty"`
	Degree            string `json:"degree,omitempty"`
	Institution       string `json:"institution,omitempty"`
}

type ProcessTurnRequest struct {
	Query         string          `json:"query" validate:"required"`
	ChatSessionId *uuid.UUID      `json:"chat_session_id,omitempty"`
	DomainType    string          `json:"domain_type,omitempty"`
	ActiveClassId *uuid.UUID      `json:"active_class_id,omitempty"`
	ClassName     string          `json:"class_name,omitempty"`
	SelectedFiles []string        `json:"selected_files,omitempty"`
	TopK          int             `json:"top_k,omitempty" validate:"omitempty,min=1,max=50"`
	UserContext   *UserContextDTO `json:"user_context,omitempty"`
}

type CitationDTO struct {
	Source         string  `json:"source"`
	Page           *int    `json:"page,omitempty"`
	Preview        string  `json:"preview"`
	RelevanceScore float64 `json:"relevance_score"`
}

type ProcessTurnResponse struct {
	ChatSessionId uuid.UUID     `json:"chat_session_id"`
	ChatName      string        `json:"chat_name"`
	Response      string        `json:"response"`
	Mode          string        `json:"mode"`
	Citations     []CitationDTO `json:"citations,omitempty"`
}

type GetAllSessionsResponse struct {
	Id         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	ClassId    *uuid.UUID `json:"class_id,omitempty"`
	ClassName  string     `json:"class_name,omitempty"`
	DomainType string     `json:"domain_type"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at"`
}

type GetChatHistoryResponse struct {
	Id        uuid.UUID     `json:"id"`
	Role      string        `json:"role"`
	Content   string        `json:"content"`
	CreatedAt time.Time     `json:"created_at"`
	Citations []CitationDTO `json:"citations,omitempty"`
}

type AddMemoryFactResponse struct {
	Id    uuid.UUID `json:"id"`
	Scope string    `json:"scope"`
	Text  string    `json:"text"`
}
