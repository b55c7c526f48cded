package web

import "net/http"

type sampleUser struct {
	Username string
}

type samplePost struct {
	Author sampleUser
	Body   string
}

type indexPage struct {
	User  sampleUser
	Posts []samplePost
}

// The home page still shows placeholder content; it is not a feed.
var homeSample = indexPage{
	User: sampleUser{Username: "Miguel"},
	Posts: []samplePost{
		{Author: sampleUser{Username: "John"}, Body: "Beautiful day in Portland!"},
		{Author: sampleUser{Username: "Susan"}, Body: "The Avengers movie was so cool!"},
	},
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "index", "Home", homeSample)
}
