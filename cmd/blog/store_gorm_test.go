package blog

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var memDBSeq atomic.Int64

func newSQLiteMemoryStore(t *testing.T) *GormStore {
	t.Helper()

	dsn := SQLiteDSN(fmt.Sprintf("file:blog_test_%d?mode=memory&cache=shared", memDBSeq.Add(1)))
	s, err := OpenSQLite(context.Background(), dsn, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestGormStore_SQLite_Contract(t *testing.T) {
	t.Parallel()

	runStoreContract(t, func(t *testing.T) Store { return newSQLiteMemoryStore(t) })
}

func TestGormStore_SQLite_FileIsReopenable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "app.db")

	s1, err := OpenSQLite(ctx, SQLiteDSN(path), nil)
	require.NoError(t, err)
	u, err := s1.CreateUser(ctx, CreateUserInput{Username: "miguel", Email: "miguel@example.com"})
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := OpenSQLite(ctx, SQLiteDSN(path), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s2.Close() })

	got, err := s2.GetUserByUsername(ctx, "miguel")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.NoError(t, s2.Ping(ctx))
}

func TestSQLiteDSN(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/tmp/app.db?_foreign_keys=on&_busy_timeout=5000", SQLiteDSN("/tmp/app.db"))
	assert.Equal(t, "file:x?mode=memory&_foreign_keys=on&_busy_timeout=5000", SQLiteDSN("file:x?mode=memory"))
}

func TestNewGormStore_NilDB(t *testing.T) {
	t.Parallel()

	_, err := NewGormStore(nil)
	assert.Error(t, err)
}
