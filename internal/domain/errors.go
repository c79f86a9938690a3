package domain

import "errors"

var (
	// ErrNotFound reports that no record exists for the given token.
	ErrNotFound = errors.New("bot not found")

	// ErrDuplicateToken reports a registration attempt with a token that is
	// already taken. The existing record is never merged or overwritten.
	ErrDuplicateToken = errors.New("bot already registered")
)
