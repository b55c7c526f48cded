package web

import (
	"errors"
	"log/slog"
	"net/http"

	"microblog/cmd/blog"
	"microblog/cmd/internal/auth"
	"microblog/cmd/security/password"
)

type registerPage struct {
	Form   RegisterForm
	Errors fieldErrors
}

func (h *Handler) handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	if CurrentUser(r.Context()) != nil {
		h.redirect(w, r, "/index")
		return
	}
	h.render(w, r, http.StatusOK, "register", "Register", registerPage{})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	st := stateFrom(ctx)
	if st.user != nil {
		h.redirect(w, r, "/index")
		return
	}

	var form RegisterForm
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

	if len(errs) == 0 {
		_, err = h.auth.Register(ctx, auth.RegisterInput{
			Username: form.Username,
			Email:    form.Email,
			Password: form.Password,
		})
		switch {
		case err == nil:
			h.metrics.UserRegistered()
			st.sess.Flash("Congratulations, you are now a registered user!")
			h.redirect(w, r, "/login")
			return
		case blog.IsConflict(err):
			field := blog.ConflictField(err)
			msg := conflictMessage(field)
			if field != "username" && field != "email" {
				field = "form"
			}
			errs[field] = msg
		case blog.IsInvalidInput(err):
			field, msg := invalidInputMessage(err)
			errs[field] = msg
		default:
			h.internalError(w, r, "web.register.error", err)
			return
		}
		h.log.Info("web.register.rejected", slog.String("username", form.Username), slog.Any("err", err))
	}

	form.Password, form.Password2 = "", ""
	h.render(w, r, http.StatusOK, "register", "Register", registerPage{Form: form, Errors: errs})
}

func conflictMessage(field string) string {
	switch field {
	case "username":
		return "Please use a different username."
	case "email":
		return "Please use a different email address."
	default:
		return "This account already exists."
	}
}

func invalidInputMessage(err error) (field, msg string) {
	switch {
	case errors.Is(err, password.ErrPasswordTooShort):
		return "password", "Password is too short."
	case errors.Is(err, password.ErrPasswordTooLong):
		return "password", "Password is too long."
	case errors.Is(err, password.ErrWeakPassword):
		return "password", "Password is too easy to guess."
	default:
		return "form", "Please check the values you entered."
	}
}
