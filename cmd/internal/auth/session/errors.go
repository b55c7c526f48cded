package session

import "errors"

var (
	// ErrInvalidToken is returned when a session token fails decryption or validation.
	ErrInvalidToken = errors.New("invalid session token")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid session config")
)
