package command

import (
	"strings"
)

// Prefix constants - matched case-insensitively at the start of a turn
const (
	PrefixRemember   = "remember:"
	PrefixMemo       = "memo:"
	PrefixRole       = "role:"
	PrefixBackground = "background:"
)

// Kind classifies a chat turn
type Kind string

const (
	KindPlainQuery Kind = "PLAIN_QUERY" // Default: run the full retrieval flow
	KindRemember   Kind = "REMEMBER"    // Store a permanent memory fact
	KindMemo       Kind = "MEMO"        // Store a session-scoped memory fact
	KindRole       Kind = "ROLE"        // Set a persona override for the session
	KindBackground Kind = "BACKGROUND"  // Answer without retrieval or citations
)

// Command is the classified form of a raw user turn
type Command struct {
	Kind Kind
	Text string // Remainder after the prefix (trimmed); full input for PLAIN_QUERY
	Raw  string // Original input, untouched
}

// Classify maps raw user input to a Command. It is pure and total: no input
// is an error, unrecognized prefixes fall through to PLAIN_QUERY.
func Classify(raw string) Command {
	trimmed := strings.TrimSpace(raw)
	lower := strings.ToLower(trimmed)

	for prefix, kind := range map[string]Kind{
		PrefixRemember:   KindRemember,
		PrefixMemo:       KindMemo,
		PrefixRole:       KindRole,
		PrefixBackground: KindBackground,
	} {
		if strings.HasPrefix(lower, prefix) {
			return Command{
				Kind: kind,
				Text: strings.TrimSpace(trimmed[len(prefix):]),
				Raw:  raw,
			}
		}
	}

	return Command{
		Kind: KindPlainQuery,
		Text: trimmed,
		Raw:  raw,
	}
}

// IsEmpty returns true if the command carries no usable text
func (c Command) IsEmpty() bool {
	return strings.TrimSpace(c.Text) == ""
}
