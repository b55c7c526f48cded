package blog

import (
	"context"
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

// CreateUserInput describes a new user. PasswordHash comes from User.SetPassword.
type CreateUserInput struct {
	Username     string
	Email        string
	PasswordHash *string
	AboutMe      *string
	Now          time.Time
}

// UpdateUserInput changes the mutable profile fields of an existing user.
// Nil fields are left untouched.
type UpdateUserInput struct {
	ID           int64
	Username     *string
	Email        *string
	PasswordHash *string
	AboutMe      *string
}

// CreatePostInput describes a new post.
type CreatePostInput struct {
	UserID int64
	Body   string
	Now    time.Time
}

// Page selects a window of a listing. Number is 1-based.
type Page struct {
	Number int
	Size   int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Normalize clamps p into a usable window.
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	// Keep (Number-1)*Size representable; such a page is empty anyway.
	if maxNum := math.MaxInt32 / p.Size; p.Number > maxNum {
		p.Number = maxNum
	}
	return p
}

func (p Page) offset() int { return (p.Number - 1) * p.Size }

// PostPage is one page of a user's posts, newest first.
type PostPage struct {
	Posts []Post
	Page  Page
	Total int
}

func (pp PostPage) HasNext() bool { return pp.Page.Number*pp.Page.Size < pp.Total }
func (pp PostPage) HasPrev() bool { return pp.Page.Number > 1 }
func (pp PostPage) NextNum() int  { return pp.Page.Number + 1 }
func (pp PostPage) PrevNum() int  { return pp.Page.Number - 1 }

// Store is the persistence boundary for users and posts.
// Implementations are safe for concurrent use.
type Store interface {
	CreateUser(ctx context.Context, in CreateUserInput) (User, error)
	GetUserByID(ctx context.Context, id int64) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	UpdateUser(ctx context.Context, in UpdateUserInput) (User, error)
	TouchLastSeen(ctx context.Context, id int64, at time.Time) error
	DeleteUser(ctx context.Context, id int64) error

	CreatePost(ctx context.Context, in CreatePostInput) (Post, error)
	PostsByUser(ctx context.Context, userID int64, page Page) (PostPage, error)
	DeletePost(ctx context.Context, id int64) error

	Ping(ctx context.Context) error
	Close() error
}

func nowUTC(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

func checkLen(op, field, v string, maxLen int) error {
	if utf8.RuneCountInString(v) > maxLen {
		return invalid(op, field+" too long")
	}
	return nil
}

// normalizeUser trims and validates the user columns shared by create and update.
func normalizeUser(op string, username, email *string, hash, about *string) error {
	if username != nil {
		*username = strings.TrimSpace(*username)
		if *username == "" {
			return invalid(op, "username is required")
		}
		if err := checkLen(op, "username", *username, MaxUsernameLen); err != nil {
			return err
		}
	}
	if email != nil {
		*email = strings.TrimSpace(*email)
		if *email == "" {
			return invalid(op, "email is required")
		}
		if err := checkLen(op, "email", *email, MaxEmailLen); err != nil {
			return err
		}
	}
	if hash != nil {
		if err := checkLen(op, "password_hash", *hash, MaxPasswordHashLen); err != nil {
			return err
		}
	}
	if about != nil {
		if err := checkLen(op, "about_me", *about, MaxAboutMeLen); err != nil {
			return err
		}
	}
	return nil
}

func normalizePost(op string, in *CreatePostInput) error {
	if in.UserID <= 0 {
		return invalid(op, "missing user_id")
	}
	in.Body = strings.TrimSpace(in.Body)
	if in.Body == "" {
		return invalid(op, "body is required")
	}
	if err := checkLen(op, "body", in.Body, MaxPostBodyLen); err != nil {
		return err
	}
	in.Now = nowUTC(in.Now)
	return nil
}

func normalizeCreateUser(op string, in *CreateUserInput) error {
	if err := normalizeUser(op, &in.Username, &in.Email, in.PasswordHash, in.AboutMe); err != nil {
		return err
	}
	in.Now = nowUTC(in.Now)
	return nil
}

func normalizeUpdateUser(op string, in *UpdateUserInput) error {
	if in.ID <= 0 {
		return invalid(op, "missing id")
	}
	in.Username = cloneStr(in.Username)
	in.Email = cloneStr(in.Email)
	return normalizeUser(op, in.Username, in.Email, in.PasswordHash, in.AboutMe)
}

func cloneStr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
