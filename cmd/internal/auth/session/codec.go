package session

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	paseto "aidanwoods.dev/go-paseto"

	"microblog/cmd/security/token"
)

const keyPurpose = "microblog/session/v4.local"

// Codec encrypts sessions into cookies and back.
type Codec struct {
	cfg Config
	key paseto.V4SymmetricKey
}

// NewCodec derives the cookie key from secret.
func NewCodec(secret string, cfg Config) (*Codec, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	raw, err := token.DeriveKey(secret, keyPurpose)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	key, err := paseto.V4SymmetricKeyFromBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	return &Codec{cfg: cfg, key: key}, nil
}

// Config returns the codec configuration.
func (c *Codec) Config() Config { return c.cfg }

// Encode seals s into a token valid from now; it also returns the token expiry.
func (c *Codec) Encode(s Session, now time.Time) (string, time.Time, error) {
	ttl := c.cfg.TTL
	if s.Remember {
		ttl = c.cfg.RememberTTL
	}
	exp := now.Add(ttl)

	tok := paseto.NewToken()
	tok.SetIssuer(c.cfg.Issuer)
	tok.SetIssuedAt(now)
	tok.SetNotBefore(now)
	tok.SetExpiration(exp)

	if s.UserID != "" {
		if err := tok.Set("uid", s.UserID); err != nil {
			return "", time.Time{}, err
		}
	}
	if err := tok.Set("rem", s.Remember); err != nil {
		return "", time.Time{}, err
	}
	if s.CSRF != "" {
		if err := tok.Set("csrf", s.CSRF); err != nil {
			return "", time.Time{}, err
		}
	}
	if len(s.Flashes) > 0 {
		if err := tok.Set("fl", s.Flashes); err != nil {
			return "", time.Time{}, err
		}
	}

	return tok.V4Encrypt(c.key, nil), exp, nil
}

// Decode opens a token produced by Encode.
func (c *Codec) Decode(raw string, now time.Time) (Session, error) {
	// Token times are checked against the caller's clock.
	p := paseto.NewParserWithoutExpiryCheck()
	p.AddRule(paseto.IssuedBy(c.cfg.Issuer))
	p.AddRule(validWithSkew(now, c.cfg.ClockSkew))

	parsed, err := p.ParseV4Local(c.key, raw, nil)
	if err != nil {
		return Session{}, ErrInvalidToken
	}

	var s Session
	if uid, err := parsed.GetString("uid"); err == nil {
		s.UserID = uid
	}
	if err := parsed.Get("rem", &s.Remember); err != nil {
		return Session{}, ErrInvalidToken
	}
	if csrf, err := parsed.GetString("csrf"); err == nil {
		s.CSRF = csrf
	}
	var flashes []string
	if err := parsed.Get("fl", &flashes); err == nil {
		s.Flashes = flashes
	}
	return s, nil
}

// Load reads the session cookie from r. Missing or invalid cookies give an empty session.
func (c *Codec) Load(r *http.Request, now time.Time) Session {
	ck, err := r.Cookie(c.cfg.CookieName)
	if err != nil {
		return Session{}
	}
	v := strings.TrimSpace(ck.Value)
	if v == "" {
		return Session{}
	}
	s, err := c.Decode(v, now)
	if err != nil {
		// Drop the stale cookie on the next Save.
		return Session{dirty: true}
	}
	return s
}

// Save writes s as the session cookie. Remember-me sessions get a persistent cookie.
func (c *Codec) Save(w http.ResponseWriter, s *Session, now time.Time) error {
	if s.UserID == "" && s.CSRF == "" && len(s.Flashes) == 0 {
		c.Clear(w)
		s.dirty = false
		return nil
	}

	v, exp, err := c.Encode(*s, now)
	if err != nil {
		return err
	}
	ck := &http.Cookie{
		Name:     c.cfg.CookieName,
		Value:    v,
		Path:     c.cfg.Path,
		Domain:   c.cfg.Domain,
		HttpOnly: true,
		Secure:   c.cfg.Secure,
		SameSite: c.cfg.SameSite,
	}
	if s.Remember {
		ck.Expires = exp
		ck.MaxAge = int(exp.Sub(now).Seconds())
	}
	http.SetCookie(w, ck)
	s.dirty = false
	return nil
}

// Clear expires the session cookie.
func (c *Codec) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.cfg.CookieName,
		Value:    "",
		Path:     c.cfg.Path,
		Domain:   c.cfg.Domain,
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.cfg.Secure,
		SameSite: c.cfg.SameSite,
	})
}

// validWithSkew accepts tokens issued up to skew in the future and expired
// up to skew in the past.
func validWithSkew(now time.Time, skew time.Duration) paseto.Rule {
	return func(tok paseto.Token) error {
		iat, err := tok.GetIssuedAt()
		if err != nil {
			return err
		}
		nbf, err := tok.GetNotBefore()
		if err != nil {
			return err
		}
		exp, err := tok.GetExpiration()
		if err != nil {
			return err
		}
		late := now.Add(skew)
		switch {
		case late.Before(iat):
			return errors.New("token issued in the future")
		case late.Before(nbf):
			return errors.New("token not yet valid")
		case now.Add(-skew).After(exp):
			return errors.New("token expired")
		}
		return nil
	}
}
