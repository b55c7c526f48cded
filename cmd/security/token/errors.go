package token

import "errors"

var (
	ErrSecretMissing  = errors.New("secret key missing")
	ErrSecretTooShort = errors.New("secret key too short")
)
