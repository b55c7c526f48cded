package blog

import (
	"crypto/md5" // #nosec G501 -- Gravatar addresses are MD5 digests, not a security boundary.
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"microblog/cmd/security/password"
)

// Column limits, counted in runes.
const (
	MaxUsernameLen     = 64
	MaxEmailLen        = 120
	MaxPasswordHashLen = 256
	MaxAboutMeLen      = 140
	MaxPostBodyLen     = 140
)

// User is a registered author.
// PasswordHash is nil until SetPassword is called; the plaintext is never kept.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash *string
	AboutMe      *string
	LastSeen     time.Time
}

// SetPassword replaces the stored hash with a fresh salted Argon2id hash of plain.
func (u *User) SetPassword(plain string) error {
	h, err := password.Hash(plain)
	if err != nil {
		return fmt.Errorf("blog.User.SetPassword: %w", err)
	}
	u.PasswordHash = &h
	return nil
}

// CheckPassword reports whether plain matches the stored hash.
// A user without a hash, or with a malformed one, matches nothing.
func (u *User) CheckPassword(plain string) bool {
	if u == nil || u.PasswordHash == nil || *u.PasswordHash == "" {
		return false
	}
	ok, err := password.Verify(*u.PasswordHash, plain)
	return err == nil && ok
}

// Avatar returns the Gravatar identicon URL for the user's email at size pixels.
func (u *User) Avatar(size int) string {
	sum := md5.Sum([]byte(strings.ToLower(u.Email))) // #nosec G401
	return fmt.Sprintf("https://www.gravatar.com/avatar/%s?d=identicon&s=%d", hex.EncodeToString(sum[:]), size)
}

// About returns the bio or "".
func (u *User) About() string {
	if u == nil || u.AboutMe == nil {
		return ""
	}
	return *u.AboutMe
}

func (u User) String() string { return fmt.Sprintf("<User %s>", u.Username) }
