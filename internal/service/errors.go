package service

import "errors"

var (
	// ErrSessionNotFound means the session id has no persisted record.
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidSecretKey means the key does not belong to the session's roster.
	ErrInvalidSecretKey = errors.New("invalid secret key")

	// ErrEmptyRoster means a session was requested without participants.
	ErrEmptyRoster = errors.New("participant roster must not be empty")
)
