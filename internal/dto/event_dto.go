package dto

import "github.com/google/uuid"

// PublishTurnPersistedMessage is the internal bus payload emitted after a
// turn commits, consumed by the event bridge.
type PublishTurnPersistedMessage struct {
	ChatSessionId      uuid.UUID `json:"chat_session_id"`
	UserId             uuid.UUID `json:"user_id"`
	UserMessageId      uuid.UUID `json:"user_message_id"`
	AssistantMessageId uuid.UUID `json:"assistant_message_id"`
	Mode               string    `json:"mode"`
	CitationCount      int       `json:"citation_count"`
}
