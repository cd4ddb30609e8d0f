package factory

import (
	"fmt"

	"ai-studymate-be/pkg/llm"
	"ai-studymate-be/pkg/llm/ollama"
)

// NewLLMProvider instantiates the configured LLM backend.
func NewLLMProvider(providerName, model, ollamaBaseURL string) (llm.LLMProvider, error) {
	switch providerName {
	case "ollama", "":
		return ollama.NewOllamaProvider(ollamaBaseURL, model), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", providerName)
	}
}
