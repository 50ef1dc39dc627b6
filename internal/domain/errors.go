package domain

import "errors"

var (
	// ErrEmptyQuestion is returned when a question is blank.
	ErrEmptyQuestion = errors.New("question is required")
	// ErrInvalidRating is returned for malformed rating events.
	ErrInvalidRating = errors.New("invalid rating")
	// ErrInvalidChunk is returned when a chunk to index has no text.
	ErrInvalidChunk = errors.New("invalid chunk")
)
