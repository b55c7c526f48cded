// Package token holds the small keyed-hash and random-token primitives
// shared by the session codec and the CSRF guard.
//
// SECRET_KEY is never used as key material directly. Each consumer derives
// its own 32-byte subkey with DeriveKey and a purpose label, so rotating the
// secret invalidates cookies and CSRF tokens together.
package token
