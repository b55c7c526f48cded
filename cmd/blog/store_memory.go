package blog

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore keeps users and posts in process memory.
type MemoryStore struct {
	mu sync.RWMutex

	nextUserID int64
	nextPostID int64

	users      map[int64]User
	byUsername map[string]int64
	byEmail    map[string]int64

	posts       map[int64]Post
	postsByUser map[int64]map[int64]struct{}
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:       make(map[int64]User),
		byUsername:  make(map[string]int64),
		byEmail:     make(map[string]int64),
		posts:       make(map[int64]Post),
		postsByUser: make(map[int64]map[int64]struct{}),
	}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "blog.CreateUser"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	if err := normalizeCreateUser(op, &in); err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byUsername[in.Username]; ok {
		return User{}, ConflictError{Op: op, Field: "username"}
	}
	if _, ok := s.byEmail[in.Email]; ok {
		return User{}, ConflictError{Op: op, Field: "email"}
	}

	s.nextUserID++
	u := User{
		ID:           s.nextUserID,
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: cloneStr(in.PasswordHash),
		AboutMe:      cloneStr(in.AboutMe),
		LastSeen:     in.Now,
	}
	s.users[u.ID] = u
	s.byUsername[u.Username] = u.ID
	s.byEmail[u.Email] = u.ID
	return copyUser(u), nil
}

func (s *MemoryStore) GetUserByID(ctx context.Context, id int64) (User, error) {
	const op = "blog.GetUserByID"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	return copyUser(u), nil
}

func (s *MemoryStore) GetUserByUsername(ctx context.Context, username string) (User, error) {
	const op = "blog.GetUserByUsername"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[strings.TrimSpace(username)]
	if !ok {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	return copyUser(s.users[id]), nil
}

func (s *MemoryStore) UpdateUser(ctx context.Context, in UpdateUserInput) (User, error) {
	const op = "blog.UpdateUser"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	if err := normalizeUpdateUser(op, &in); err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[in.ID]
	if !ok {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	if in.Username != nil && *in.Username != u.Username {
		if _, taken := s.byUsername[*in.Username]; taken {
			return User{}, ConflictError{Op: op, Field: "username"}
		}
	}
	if in.Email != nil && *in.Email != u.Email {
		if _, taken := s.byEmail[*in.Email]; taken {
			return User{}, ConflictError{Op: op, Field: "email"}
		}
	}

	if in.Username != nil {
		delete(s.byUsername, u.Username)
		u.Username = *in.Username
		s.byUsername[u.Username] = u.ID
	}
	if in.Email != nil {
		delete(s.byEmail, u.Email)
		u.Email = *in.Email
		s.byEmail[u.Email] = u.ID
	}
	if in.PasswordHash != nil {
		u.PasswordHash = cloneStr(in.PasswordHash)
	}
	if in.AboutMe != nil {
		u.AboutMe = cloneStr(in.AboutMe)
	}
	s.users[u.ID] = u
	return copyUser(u), nil
}

func (s *MemoryStore) TouchLastSeen(ctx context.Context, id int64, at time.Time) error {
	const op = "blog.TouchLastSeen"

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return NotFoundError{Op: op, Resource: "user"}
	}
	u.LastSeen = nowUTC(at)
	s.users[id] = u
	return nil
}

func (s *MemoryStore) DeleteUser(ctx context.Context, id int64) error {
	const op = "blog.DeleteUser"

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return NotFoundError{Op: op, Resource: "user"}
	}
	for pid := range s.postsByUser[id] {
		delete(s.posts, pid)
	}
	delete(s.postsByUser, id)
	delete(s.byUsername, u.Username)
	delete(s.byEmail, u.Email)
	delete(s.users, id)
	return nil
}

func (s *MemoryStore) CreatePost(ctx context.Context, in CreatePostInput) (Post, error) {
	const op = "blog.CreatePost"

	if err := ctx.Err(); err != nil {
		return Post{}, err
	}
	if err := normalizePost(op, &in); err != nil {
		return Post{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[in.UserID]; !ok {
		return Post{}, NotFoundError{Op: op, Resource: "user"}
	}

	s.nextPostID++
	p := Post{ID: s.nextPostID, Body: in.Body, Timestamp: in.Now, UserID: in.UserID}
	s.posts[p.ID] = p
	set := s.postsByUser[in.UserID]
	if set == nil {
		set = make(map[int64]struct{})
		s.postsByUser[in.UserID] = set
	}
	set[p.ID] = struct{}{}
	return p, nil
}

func (s *MemoryStore) PostsByUser(ctx context.Context, userID int64, page Page) (PostPage, error) {
	if err := ctx.Err(); err != nil {
		return PostPage{}, err
	}
	page = page.Normalize()

	s.mu.RLock()
	all := make([]Post, 0, len(s.postsByUser[userID]))
	for pid := range s.postsByUser[userID] {
		all = append(all, s.posts[pid])
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].Timestamp.Equal(all[j].Timestamp) {
			return all[i].Timestamp.After(all[j].Timestamp)
		}
		return all[i].ID > all[j].ID
	})

	out := PostPage{Page: page, Total: len(all), Posts: []Post{}}
	lo := page.offset()
	if lo >= len(all) {
		return out, nil
	}
	hi := min(lo+page.Size, len(all))
	out.Posts = append(out.Posts, all[lo:hi]...)
	return out, nil
}

func (s *MemoryStore) DeletePost(ctx context.Context, id int64) error {
	const op = "blog.DeletePost"

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[id]
	if !ok {
		return NotFoundError{Op: op, Resource: "post"}
	}
	delete(s.posts, id)
	delete(s.postsByUser[p.UserID], id)
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

func (s *MemoryStore) Close() error { return nil }

func copyUser(u User) User {
	u.PasswordHash = cloneStr(u.PasswordHash)
	u.AboutMe = cloneStr(u.AboutMe)
	return u
}
