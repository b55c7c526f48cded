// Package session keeps the browser session in a single cookie.
//
// The cookie value is a PASETO v4.local token (encrypted and authenticated)
// whose key is derived from SECRET_KEY. It carries the logged-in user id,
// the remember-me flag, the CSRF token and any pending flash messages.
// Nothing is stored server-side; rotating SECRET_KEY logs everyone out.
//
// A cookie that fails to decrypt, has expired or was issued by another
// deployment decodes as an empty session rather than an error.
package session
