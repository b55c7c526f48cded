package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"microblog/cmd/blog"
	"microblog/cmd/security/password"
)

type failingStore struct {
	blog.Store
	err error
}

func (f failingStore) GetUserByID(context.Context, int64) (blog.User, error) { return blog.User{}, f.err }

func newTestService(t *testing.T) (*Service, *blog.MemoryStore) {
	t.Helper()

	st := blog.NewMemoryStore()
	svc, err := NewService(st, password.DefaultConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return svc, st
}

func TestLoadUser(t *testing.T) {
	t.Parallel()

	svc, st := newTestService(t)
	ctx := context.Background()

	u, err := st.CreateUser(ctx, blog.CreateUserInput{Username: "susan", Email: "susan@example.com"})
	require.NoError(t, err)

	got, err := svc.LoadUser(ctx, "1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, u.ID, got.ID)

	for _, id := range []string{"", "  ", "abc", "-1", "0", "999"} {
		got, err := svc.LoadUser(ctx, id)
		assert.NoError(t, err, "id %q", id)
		assert.Nil(t, got, "id %q", id)
	}
}

func TestLoadUser_StoreFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("db down")
	svc, err := NewService(failingStore{err: boom}, password.DefaultConfig(), nil)
	require.NoError(t, err)

	_, err = svc.LoadUser(context.Background(), "5")
	assert.ErrorIs(t, err, boom)
}

func TestRegisterAndAuthenticate(t *testing.T) {
	t.Parallel()

	svc, st := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterInput{Username: "john", Email: "john@example.com", Password: "correct horse"})
	require.NoError(t, err)
	require.NotNil(t, u.PasswordHash)
	assert.NotContains(t, *u.PasswordHash, "correct horse")

	stored, err := st.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, stored.CheckPassword("correct horse"))

	got, err := svc.Authenticate(ctx, "john", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = svc.Authenticate(ctx, "john", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "ghost", "correct horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegister_PolicyAndConflict(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Username: "a", Email: "a@example.com", Password: "short"})
	assert.True(t, blog.IsInvalidInput(err))
	assert.ErrorIs(t, err, password.ErrPasswordTooShort)

	_, err = svc.Register(ctx, RegisterInput{Username: "a", Email: "a@example.com", Password: "password"})
	assert.ErrorIs(t, err, password.ErrWeakPassword)

	_, err = svc.Register(ctx, RegisterInput{Username: "a", Email: "a@example.com", Password: "a fine passphrase"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{Username: "a", Email: "b@example.com", Password: "a fine passphrase"})
	assert.Equal(t, "username", blog.ConflictField(err))
}

func TestTouch(t *testing.T) {
	t.Parallel()

	svc, st := newTestService(t)
	ctx := context.Background()

	u, err := st.CreateUser(ctx, blog.CreateUserInput{Username: "x", Email: "x@example.com"})
	require.NoError(t, err)
	before := u.LastSeen

	require.NoError(t, svc.Touch(ctx, &u))
	require.NoError(t, svc.Touch(ctx, nil))

	after, err := st.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, after.LastSeen.Before(before))
}
