package web

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"microblog/cmd/internal/auth"
)

type loginPage struct {
	Form   LoginForm
	Errors fieldErrors
}

func (h *Handler) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "login", "Sign In", loginPage{})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	st := stateFrom(ctx)

	ip := clientIP(r, h.cfg.TrustProxy)
	if !h.limiter.Allow(ip, h.now()) {
		h.metrics.LoginAttempt("throttled")
		h.log.Warn("web.login.throttled", slog.String("ip", ip))
		if d := h.limiter.RetryAfter(); d > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(d.Seconds())))
		}
		h.renderError(w, r, http.StatusTooManyRequests, "Too many login attempts. Try again later.")
		return
	}

	var form LoginForm
	errs, err := h.forms.decode(w, r, &form)
	if err != nil {
		h.badForm(w, r, err)
		return
	}
	form.normalize()
	errs = h.forms.check(&form, errs)
	if !h.csrfValid(st, form.CSRF) {
		errs["csrf_token"] = "The CSRF token is missing or invalid."
	}
	if len(errs) > 0 {
		h.metrics.LoginAttempt("invalid")
		form.Password = ""
		h.render(w, r, http.StatusOK, "login", "Sign In", loginPage{Form: form, Errors: errs})
		return
	}

	u, err := h.auth.Authenticate(ctx, form.Username, form.Password)
	switch {
	case err == nil:
		st.sess.LogIn(strconv.FormatInt(u.ID, 10), form.RememberMe)
		// Fresh CSRF secret per login.
		st.sess.SetCSRF("")
		st.user = u
		h.metrics.LoginAttempt("success")
		h.log.Info("web.login.ok", slog.Int64("user_id", u.ID), slog.String("ip", ip))
	case errors.Is(err, auth.ErrInvalidCredentials):
		h.metrics.LoginAttempt("fail")
		h.log.Info("web.login.fail", slog.String("username", form.Username), slog.String("ip", ip))
	default:
		h.internalError(w, r, "web.login.error", err)
		return
	}

	st.sess.Flash(fmt.Sprintf("Login requested for user %s, remember me = %s", form.Username, pyBool(form.RememberMe)))
	h.redirect(w, r, "/index")
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	st := stateFrom(r.Context())
	var form csrfForm
	if _, err := h.forms.decode(w, r, &form); err != nil {
		h.badForm(w, r, err)
		return
	}
	if !h.csrfValid(st, form.CSRF) {
		h.renderError(w, r, http.StatusBadRequest, "The CSRF token is missing or invalid.")
		return
	}
	if st.user != nil {
		h.log.Info("web.logout", slog.Int64("user_id", st.user.ID))
	}
	st.sess.LogOut()
	st.user = nil
	h.redirect(w, r, "/index")
}

func (h *Handler) badForm(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, errFormTooLarge) {
		h.renderError(w, r, http.StatusRequestEntityTooLarge, "The submitted form is too large.")
		return
	}
	h.log.Warn("web.form.decode.fail", slog.Any("err", err), slog.String("path", r.URL.Path))
	h.renderError(w, r, http.StatusBadRequest, "The submitted form could not be read.")
}

// pyBool renders a bool the way the flash message has always shown it.
func pyBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
