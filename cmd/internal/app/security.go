package app

import (
	"errors"
	"fmt"
	"strings"

	"microblog/cmd/security/token"
)

// minSecretBytes is the shortest SECRET_KEY accepted when a real key is required.
const minSecretBytes = 32

// ValidateSecurityConfig enforces the SECRET_KEY policy at startup.
//
// The development default "dev" keeps working so a fresh checkout runs, but
// it is logged as a warning. MICROBLOG_REQUIRE_SECRET_KEY=true turns the
// default or a short key into a startup error.
func ValidateSecurityConfig(cfg Config, log Logger) error {
	secret := strings.TrimSpace(cfg.SecretKey)
	isDev := secret == "" || secret == DevSecretKey

	if !cfg.RequireSecretKey {
		if isDev {
			log.Warn("security.secret_key.insecure_default",
				"hint", "set SECRET_KEY to a long random value before deploying")
		}
		if secret == "" {
			return errors.New("security policy: SECRET_KEY is empty")
		}
		return nil
	}

	if isDev {
		return errors.New("security policy: MICROBLOG_REQUIRE_SECRET_KEY=true but SECRET_KEY is the development default")
	}
	if err := token.CheckSecret(secret, minSecretBytes); err != nil {
		switch {
		case errors.Is(err, token.ErrSecretTooShort):
			return fmt.Errorf("security policy: SECRET_KEY is too short (min %d bytes)", minSecretBytes)
		default:
			return fmt.Errorf("security policy: %w", err)
		}
	}
	return nil
}
