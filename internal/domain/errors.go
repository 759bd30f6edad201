package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a session id is unknown or the
	// session has already ended.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrInvalidIndex is returned when a question or answer index does not
	// address the session's current question or an existing option.
	ErrInvalidIndex = errors.New("question index out of range")
	// ErrValidation is returned when caller input is missing or malformed.
	ErrValidation = errors.New("invalid request")
	// ErrGeneration is returned when the upstream generator produced an
	// empty, malformed or non-conforming result.
	ErrGeneration = errors.New("question generation failed")
)
