package session

import "slices"

// Session is the decoded cookie state for one browser.
type Session struct {
	// UserID is the decimal id of the logged-in user, or "" when anonymous.
	UserID   string
	Remember bool
	CSRF     string
	Flashes  []string

	dirty bool
}

// LoggedIn reports whether a user id is present.
func (s *Session) LoggedIn() bool { return s.UserID != "" }

// LogIn records userID and the remember-me choice.
func (s *Session) LogIn(userID string, remember bool) {
	s.UserID = userID
	s.Remember = remember
	s.dirty = true
}

// LogOut drops the user but keeps pending flashes.
func (s *Session) LogOut() {
	s.UserID = ""
	s.Remember = false
	s.CSRF = ""
	s.dirty = true
}

// Flash queues a one-time message for the next rendered page.
func (s *Session) Flash(msg string) {
	s.Flashes = append(s.Flashes, msg)
	s.dirty = true
}

// PopFlashes returns and clears the pending messages.
func (s *Session) PopFlashes() []string {
	if len(s.Flashes) == 0 {
		return nil
	}
	out := slices.Clone(s.Flashes)
	s.Flashes = nil
	s.dirty = true
	return out
}

// SetCSRF replaces the CSRF token.
func (s *Session) SetCSRF(tok string) {
	s.CSRF = tok
	s.dirty = true
}

// Dirty reports whether the session changed since it was loaded.
func (s *Session) Dirty() bool { return s.dirty }
