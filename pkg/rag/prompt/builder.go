package prompt

import (
	"fmt"
	"strings"

	"ai-studymate-be/pkg/llm"
	"ai-studymate-be/pkg/rag/domain"
	"ai-studymate-be/pkg/rag/retrieval"
)

// UserContext carries the optional per-user profile fields surfaced to the
// model. Every field is individually optional and omitted when blank.
type UserContext struct {
	Name              string
	Bio               string
	ResearchInterests string
	Timezone          string
	Degree            string
	Institution       string
}

// Input is everything one turn's prompt is assembled from.
type Input struct {
	Profile     domain.Profile
	UserContext *UserContext
	Persona     string // role: override, empty if never set
	Facts       []string
	History     []llm.Message
	Chunks      []retrieval.ScoredChunk
	Query       string
}

// Builder assembles the completion payload. The section order is a contract:
// domain enhancement, user context, persona, memory facts, history, retrieved
// chunks with citation markers, then the current query. Citation marker [n]
// always refers to chunk n in retrieval order.
type Builder struct {
	input Input
}

// NewBuilder creates a new prompt builder
func NewBuilder(input Input) *Builder {
	return &Builder{input: input}
}

// Messages produces the ordered message list for the LLM provider.
func (b *Builder) Messages() []llm.Message {
	messages := make([]llm.Message, 0, len(b.input.History)+2)
	messages = append(messages, llm.Message{Role: "system", Content: b.SystemPrompt()})
	messages = append(messages, b.input.History...)
	messages = append(messages, llm.Message{Role: "user", Content: b.UserTurn()})
	return messages
}

// SystemPrompt concatenates the stable, per-session sections.
func (b *Builder) SystemPrompt() string {
	var prompt strings.Builder

	b.writeEnhancement(&prompt)
	b.writeUserContext(&prompt)
	b.writePersona(&prompt)
	b.writeFacts(&prompt)

	return strings.TrimRight(prompt.String(), "\n")
}

// UserTurn concatenates the per-turn sections: grounded material then query.
func (b *Builder) UserTurn() string {
	var prompt strings.Builder

	b.writeChunks(&prompt)
	b.writeQuery(&prompt)

	return strings.TrimRight(prompt.String(), "\n")
}

func (b *Builder) writeEnhancement(prompt *strings.Builder) {
	prompt.WriteString(b.input.Profile.PromptEnhancement)
	prompt.WriteString("\n")
	fmt.Fprintf(prompt, "When citing sources, use %s style markers that match the numbered reference material.\n\n", b.input.Profile.CitationStyle)
}

func (b *Builder) writeUserContext(prompt *strings.Builder) {
	uc := b.input.UserContext
	if uc == nil {
		return
	}

	fields := []struct {
		label string
		value string
	}{
		{"Name", uc.Name},
		{"Bio", uc.Bio},
		{"Research interests", uc.ResearchInterests},
		{"Timezone", uc.Timezone},
		{"Degree", uc.Degree},
		{"Institution", uc.Institution},
	}

	var present []string
	for _, f := range fields {
		if strings.TrimSpace(f.value) != "" {
			present = append(present, fmt.Sprintf("- %s: %s", f.label, f.value))
		}
	}
	if len(present) == 0 {
		return
	}

	prompt.WriteString("<user_context>\n")
	prompt.WriteString(strings.Join(present, "\n"))
	prompt.WriteString("\n</user_context>\n\n")
}

func (b *Builder) writePersona(prompt *strings.Builder) {
	if strings.TrimSpace(b.input.Persona) == "" {
		return
	}
	prompt.WriteString("<persona>\n")
	prompt.WriteString(b.input.Persona)
	prompt.WriteString("\n</persona>\n\n")
}

func (b *Builder) writeFacts(prompt *strings.Builder) {
	if len(b.input.Facts) == 0 {
		return
	}
	prompt.WriteString("<memory>\n")
	for _, fact := range b.input.Facts {
		prompt.WriteString("- ")
		prompt.WriteString(fact)
		prompt.WriteString("\n")
	}
	prompt.WriteString("</memory>\n\n")
}

func (b *Builder) writeChunks(prompt *strings.Builder) {
	if len(b.input.Chunks) == 0 {
		return
	}
	prompt.WriteString("<reference_material>\n")
	for i, chunk := range b.input.Chunks {
		fmt.Fprintf(prompt, "[%d] (%s", i+1, chunk.Source)
		if chunk.Page > 0 {
			fmt.Fprintf(prompt, ", p.%d", chunk.Page)
		}
		prompt.WriteString(")\n")
		prompt.WriteString(chunk.Text)
		prompt.WriteString("\n\n")
	}
	prompt.WriteString("</reference_material>\n\n")
}

func (b *Builder) writeQuery(prompt *strings.Builder) {
	prompt.WriteString("<user_question>\n")
	prompt.WriteString(b.input.Query)
	prompt.WriteString("\n</user_question>\n\n")
	if len(b.input.Chunks) > 0 {
		prompt.WriteString("Answer based on the reference material above, citing the markers you used:")
	} else {
		prompt.WriteString("Answer the question:")
	}
}
