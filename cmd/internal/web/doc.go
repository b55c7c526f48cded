// Package web serves the server-rendered pages: home, login, registration,
// profiles and post submission. Session state travels in an encrypted
// cookie; forms are protected by a per-session CSRF token.
package web
