package session

import (
	"net/http"
	"strings"
	"time"
)

// Config controls the session cookie.
type Config struct {
	// CookieName is the name of the session cookie.
	CookieName string

	// Issuer is written to and required in the token "iss" claim.
	Issuer string

	// TTL bounds an ordinary session; the cookie itself expires with the browser.
	TTL time.Duration

	// RememberTTL is the lifetime of a remember-me session and its persistent cookie.
	RememberTTL time.Duration

	// ClockSkew is tolerated when checking token times.
	ClockSkew time.Duration

	Secure   bool
	SameSite http.SameSite
	Path     string
	Domain   string
}

// DefaultConfig returns development defaults.
func DefaultConfig() Config {
	return Config{
		CookieName:  "session",
		Issuer:      "microblog",
		TTL:         24 * time.Hour,
		RememberTTL: 30 * 24 * time.Hour,
		ClockSkew:   30 * time.Second,
		SameSite:    http.SameSiteLaxMode,
		Path:        "/",
	}
}

func (c Config) validate() error {
	switch {
	case strings.TrimSpace(c.CookieName) == "":
		return ErrConfig
	case strings.TrimSpace(c.Issuer) == "":
		return ErrConfig
	case c.TTL <= 0 || c.RememberTTL <= 0:
		return ErrConfig
	case c.RememberTTL < c.TTL:
		return ErrConfig
	case c.ClockSkew < 0:
		return ErrConfig
	}
	return nil
}
