package service

import "errors"

var (
	// ErrSessionNotFound covers both a missing session and one owned by
	// another user; callers cannot tell the two apart.
	ErrSessionNotFound = errors.New("session not found or access denied")

	// ErrCompletionFailed is returned when the model did not produce an
	// answer after the retry budget. Nothing is persisted for the turn.
	ErrCompletionFailed = errors.New("completion failed")

	ErrEmptyQuery = errors.New("query must not be empty")
)
