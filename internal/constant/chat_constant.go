package constant

const (
	ChatMessageRoleUser      = "user"
	ChatMessageRoleAssistant = "assistant"

	MemoryScopePermanent = "permanent"
	MemoryScopeSession   = "session"

	// Turn modes reported to the caller
	TurnModeRAG          = "RAG"
	TurnModeBackground   = "BACKGROUND"
	TurnModeShortCircuit = "COMMAND"
)
