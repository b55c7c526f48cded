package web

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"microblog/cmd/blog"
	"microblog/cmd/internal/auth/session"
	"microblog/cmd/security/token"
)

type ctxKey struct{}

// requestState is the per-request session and the user behind it.
type requestState struct {
	sess session.Session
	user *blog.User
}

func withState(ctx context.Context, st *requestState) context.Context {
	return context.WithValue(ctx, ctxKey{}, st)
}

func stateFrom(ctx context.Context) *requestState {
	st, _ := ctx.Value(ctxKey{}).(*requestState)
	return st
}

// CurrentUser returns the logged-in user for the request, or nil.
func CurrentUser(ctx context.Context) *blog.User {
	if st := stateFrom(ctx); st != nil {
		return st.user
	}
	return nil
}

// WithCurrentUser loads the session cookie, resolves the user behind it and
// records their activity. A changed session is written back before the
// response headers go out.
func (h *Handler) WithCurrentUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		st := &requestState{sess: h.sessions.Load(r, h.now())}

		sw := &sessionWriter{ResponseWriter: w}
		sw.save = func() {
			if !st.sess.Dirty() {
				return
			}
			if err := h.sessions.Save(w, &st.sess, h.now()); err != nil {
				h.log.Error("web.session.save.fail", slog.Any("err", err))
			}
		}
		r = r.WithContext(withState(ctx, st))

		if st.sess.LoggedIn() {
			u, err := h.auth.LoadUser(ctx, st.sess.UserID)
			if err != nil {
				h.internalError(sw, r, "web.session.load_user.fail", err)
				return
			}
			if u == nil {
				// The account is gone; forget it.
				st.sess.LogOut()
			} else {
				st.user = u
				if err := h.auth.Touch(ctx, u); err != nil {
					h.log.Warn("web.last_seen.fail", slog.Int64("user_id", u.ID), slog.Any("err", err))
				}
			}
		}

		next.ServeHTTP(sw, r)
		sw.commit()
	})
}

// csrfToken returns the form token for the session, minting the session
// secret on first use. The form carries an HMAC of the secret, never the secret.
func (h *Handler) csrfToken(st *requestState) string {
	if st.sess.CSRF == "" {
		raw, err := token.NewOpaque(32)
		if err != nil {
			h.log.Error("web.csrf.mint.fail", slog.Any("err", err))
			return ""
		}
		st.sess.SetCSRF(raw)
	}
	return token.HashHMACSHA256Hex(st.sess.CSRF, h.csrfKey)
}

func (h *Handler) csrfValid(st *requestState, submitted string) bool {
	if st == nil || st.sess.CSRF == "" {
		return false
	}
	return token.Equal(submitted, token.HashHMACSHA256Hex(st.sess.CSRF, h.csrfKey))
}

// sessionWriter saves the session right before the first header write.
type sessionWriter struct {
	http.ResponseWriter
	once sync.Once
	save func()
}

func (w *sessionWriter) commit() { w.once.Do(w.save) }

func (w *sessionWriter) WriteHeader(status int) {
	w.commit()
	w.ResponseWriter.WriteHeader(status)
}

func (w *sessionWriter) Write(b []byte) (int, error) {
	w.commit()
	return w.ResponseWriter.Write(b)
}

func (w *sessionWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
