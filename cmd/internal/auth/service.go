// Package auth turns the blog store into an authentication service:
// loading the user behind a session, checking credentials and registering
// new accounts.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"microblog/cmd/blog"
	"microblog/cmd/security/password"
)

var (
	// ErrInvalidCredentials covers both an unknown username and a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Service is safe for concurrent use.
type Service struct {
	store  blog.Store
	policy password.Config
	log    *slog.Logger

	dummyOnce sync.Once
	dummy     blog.User
}

// NewService wires a Service. policy is applied on registration only.
func NewService(store blog.Store, policy password.Config, log *slog.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("auth: nil store")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, policy: policy, log: log}, nil
}

// LoadUser resolves a session user id to a user.
// Empty or malformed ids and unknown users yield (nil, nil); only store failures are errors.
func (s *Service) LoadUser(ctx context.Context, id string) (*blog.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return nil, nil
	}

	u, err := s.store.GetUserByID(ctx, n)
	if err != nil {
		if blog.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// Authenticate checks username and password.
// Unknown users still pay for one hash verification so timing does not reveal them.
func (s *Service) Authenticate(ctx context.Context, username, plain string) (*blog.User, error) {
	u, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		if blog.IsNotFound(err) {
			s.dummyUser().CheckPassword(plain)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !u.CheckPassword(plain) {
		return nil, ErrInvalidCredentials
	}
	return &u, nil
}

func (s *Service) dummyUser() *blog.User {
	s.dummyOnce.Do(func() {
		if err := s.dummy.SetPassword("not-a-real-password"); err != nil {
			s.log.Warn("auth.dummy_hash.fail", slog.Any("err", err))
		}
	})
	return &s.dummy
}

// RegisterInput is a validated registration form.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// Register applies the password policy, hashes the password and creates the user.
// Policy failures wrap the password package errors; duplicates are blog.ConflictError.
func (s *Service) Register(ctx context.Context, in RegisterInput) (blog.User, error) {
	const op = "auth.Register"

	if err := s.policy.Validate(in.Password); err != nil {
		return blog.User{}, fmt.Errorf("%s: %w: %w", op, blog.ErrInvalidInput, err)
	}

	u := blog.User{Username: in.Username, Email: in.Email}
	if err := u.SetPassword(in.Password); err != nil {
		return blog.User{}, err
	}

	created, err := s.store.CreateUser(ctx, blog.CreateUserInput{
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
	})
	if err != nil {
		return blog.User{}, err
	}
	s.log.Info("auth.register", slog.Int64("user_id", created.ID), slog.String("username", created.Username))
	return created, nil
}

// Touch records activity for the user.
func (s *Service) Touch(ctx context.Context, u *blog.User) error {
	if u == nil {
		return nil
	}
	return s.store.TouchLastSeen(ctx, u.ID, time.Now().UTC())
}
