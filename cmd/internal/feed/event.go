package feed

import (
	"time"

	"microblog/cmd/blog"
)

// TypePostNew is the only event type the feed emits.
const TypePostNew = "post.new"

// Event is one frame on the wire.
type Event struct {
	Type string    `json:"type"`
	ID   string    `json:"id"`
	TS   time.Time `json:"ts"`
	Post PostView  `json:"post"`
}

// PostView is the public shape of a post in feed events.
type PostView struct {
	ID        int64      `json:"id"`
	Body      string     `json:"body"`
	Timestamp time.Time  `json:"timestamp"`
	Author    AuthorView `json:"author"`
}

// AuthorView carries only public author fields.
type AuthorView struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

const avatarSize = 36

func newPostView(p blog.Post, author blog.User) PostView {
	return PostView{
		ID:        p.ID,
		Body:      p.Body,
		Timestamp: p.Timestamp,
		Author: AuthorView{
			ID:       author.ID,
			Username: author.Username,
			Avatar:   author.Avatar(avatarSize),
		},
	}
}
