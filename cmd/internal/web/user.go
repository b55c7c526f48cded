package web

import (
	"net/http"
	"strconv"

	"microblog/cmd/blog"
)

type userPage struct {
	User  *blog.User
	Posts blog.PostPage
	Own   bool
}

func (h *Handler) handleUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	u, err := h.store.GetUserByUsername(ctx, r.PathValue("username"))
	if err != nil {
		if blog.IsNotFound(err) {
			h.renderError(w, r, http.StatusNotFound, "File Not Found")
			return
		}
		h.internalError(w, r, "web.user.load.fail", err)
		return
	}

	n, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pp, err := h.store.PostsByUser(ctx, u.ID, blog.Page{Number: n, Size: h.cfg.PostsPerPage})
	if err != nil {
		h.internalError(w, r, "web.user.posts.fail", err)
		return
	}

	me := CurrentUser(ctx)
	h.render(w, r, http.StatusOK, "user", u.Username, userPage{
		User:  &u,
		Posts: pp,
		Own:   me != nil && me.ID == u.ID,
	})
}
