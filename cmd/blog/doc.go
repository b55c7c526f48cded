// Package blog is the microblog's persistence boundary: users, their
// credentials and their posts.
//
// Three Store backends share one contract:
//   - MemoryStore: in-process maps, used by tests and memory:// URLs.
//   - GormStore: GORM over SQLite (the default) or PostgreSQL.
//   - PostgresStore: raw SQL over a pgx pool.
//
// A user's posts are never loaded with the user. Callers page through them
// explicitly with Store.PostsByUser.
//
// All store errors carry a stable Op and one of the sentinel kinds
// (ErrInvalidInput, ErrNotFound, ErrConflict) so handlers can map them to
// responses with errors.Is / errors.As.
package blog
