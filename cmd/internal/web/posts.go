package web

import (
	"log/slog"
	"net/http"
	"net/url"

	"microblog/cmd/blog"
)

func (h *Handler) handlePost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	st := stateFrom(ctx)
	if st.user == nil {
		st.sess.Flash("Please log in to access this page.")
		h.redirect(w, r, "/login")
		return
	}
	profile := "/user/" + url.PathEscape(st.user.Username)

	var form PostForm
	errs, err := h.forms.decode(w, r, &form)
	if err != nil {
		h.badForm(w, r, err)
		return
	}
	if !h.csrfValid(st, form.CSRF) {
		h.renderError(w, r, http.StatusBadRequest, "The CSRF token is missing or invalid.")
		return
	}
	form.normalize()
	if errs = h.forms.check(&form, errs); len(errs) > 0 {
		st.sess.Flash("Your post could not be saved: " + errs["body"])
		h.redirect(w, r, profile)
		return
	}

	p, err := h.store.CreatePost(ctx, blog.CreatePostInput{
		UserID: st.user.ID,
		Body:   form.Body,
		Now:    h.now(),
	})
	if err != nil {
		if blog.IsInvalidInput(err) {
			st.sess.Flash("Your post could not be saved.")
			h.redirect(w, r, profile)
			return
		}
		h.internalError(w, r, "web.post.create.fail", err)
		return
	}

	h.metrics.PostCreated()
	h.feed.PublishPost(ctx, p, *st.user)
	h.log.Info("web.post.created", slog.Int64("post_id", p.ID), slog.Int64("user_id", p.UserID))

	st.sess.Flash("Your post is now live!")
	h.redirect(w, r, profile)
}
