package blog

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema_postgres.sql
var postgresSchemaSQL string

// PostgresStore implements Store over PostgreSQL with raw SQL.
//
// The pgx pool is owned by the caller; Close does not close it.
// Schema and table identifiers are quoted with pgx.Identifier.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

var _ Store = (*PostgresStore)(nil)

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the Postgres schema (default "public").
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return fmt.Errorf("blog: empty schema")
		}
		if !pgIdentRe.MatchString(schema) {
			return fmt.Errorf("blog: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{pool: pool, schema: "public"}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("blog: nil pool")
	}
	return st, nil
}

// EnsureSchema creates the schema, tables and indexes if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	sql := strings.NewReplacer(
		"{{schema}}", pgx.Identifier{s.schema}.Sanitize(),
		"{{users}}", s.users(),
		"{{posts}}", s.posts(),
	).Replace(postgresSchemaSQL)

	if _, err := s.pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("blog: ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) users() string { return pgIdent(s.schema, "users") }
func (s *PostgresStore) posts() string { return pgIdent(s.schema, "posts") }

const userColumns = `id, username, email, password_hash, about_me, last_seen`

func scanUser(row pgx.Row) (User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.AboutMe, &u.LastSeen); err != nil {
		return User{}, err
	}
	u.LastSeen = u.LastSeen.UTC()
	return u, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "blog.CreateUser"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	if err := normalizeCreateUser(op, &in); err != nil {
		return User{}, err
	}

	u, err := scanUser(s.pool.QueryRow(ctx,
		`INSERT INTO `+s.users()+` (username, email, password_hash, about_me, last_seen)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+userColumns,
		in.Username, in.Email, in.PasswordHash, in.AboutMe, in.Now,
	))
	if err != nil {
		if field, ok := classifyUniqueViolation(err); ok {
			return User{}, ConflictError{Op: op, Field: field}
		}
		return User{}, err
	}
	return u, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id int64) (User, error) {
	return s.oneUser(ctx, "blog.GetUserByID", `id = $1`, id)
}

func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (User, error) {
	return s.oneUser(ctx, "blog.GetUserByUsername", `username = $1`, strings.TrimSpace(username))
}

func (s *PostgresStore) oneUser(ctx context.Context, op, where string, arg any) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	u, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM `+s.users()+` WHERE `+where,
		arg,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, NotFoundError{Op: op, Resource: "user"}
		}
		return User{}, err
	}
	return u, nil
}

func (s *PostgresStore) UpdateUser(ctx context.Context, in UpdateUserInput) (User, error) {
	const op = "blog.UpdateUser"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	if err := normalizeUpdateUser(op, &in); err != nil {
		return User{}, err
	}

	// COALESCE keeps columns whose input is NULL.
	u, err := scanUser(s.pool.QueryRow(ctx,
		`UPDATE `+s.users()+`
		    SET username      = COALESCE($2, username),
		        email         = COALESCE($3, email),
		        password_hash = COALESCE($4, password_hash),
		        about_me      = COALESCE($5, about_me)
		  WHERE id = $1
		  RETURNING `+userColumns,
		in.ID, in.Username, in.Email, in.PasswordHash, in.AboutMe,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, NotFoundError{Op: op, Resource: "user"}
		}
		if field, ok := classifyUniqueViolation(err); ok {
			return User{}, ConflictError{Op: op, Field: field}
		}
		return User{}, err
	}
	return u, nil
}

func (s *PostgresStore) TouchLastSeen(ctx context.Context, id int64, at time.Time) error {
	const op = "blog.TouchLastSeen"

	if err := ctx.Err(); err != nil {
		return err
	}
	ct, err := s.pool.Exec(ctx,
		`UPDATE `+s.users()+` SET last_seen = $2 WHERE id = $1`,
		id, nowUTC(at),
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return NotFoundError{Op: op, Resource: "user"}
	}
	return nil
}

// DeleteUser removes the user; ON DELETE CASCADE removes their posts.
func (s *PostgresStore) DeleteUser(ctx context.Context, id int64) error {
	const op = "blog.DeleteUser"

	if err := ctx.Err(); err != nil {
		return err
	}
	ct, err := s.pool.Exec(ctx, `DELETE FROM `+s.users()+` WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return NotFoundError{Op: op, Resource: "user"}
	}
	return nil
}

func (s *PostgresStore) CreatePost(ctx context.Context, in CreatePostInput) (Post, error) {
	const op = "blog.CreatePost"

	if err := ctx.Err(); err != nil {
		return Post{}, err
	}
	if err := normalizePost(op, &in); err != nil {
		return Post{}, err
	}

	var p Post
	err := s.pool.QueryRow(ctx,
		`INSERT INTO `+s.posts()+` (body, "timestamp", user_id)
		 VALUES ($1, $2, $3)
		 RETURNING id, body, "timestamp", user_id`,
		in.Body, in.Now, in.UserID,
	).Scan(&p.ID, &p.Body, &p.Timestamp, &p.UserID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return Post{}, NotFoundError{Op: op, Resource: "user"}
		}
		return Post{}, err
	}
	p.Timestamp = p.Timestamp.UTC()
	return p, nil
}

func (s *PostgresStore) PostsByUser(ctx context.Context, userID int64, page Page) (PostPage, error) {
	if err := ctx.Err(); err != nil {
		return PostPage{}, err
	}
	page = page.Normalize()

	var total int
	if err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM `+s.posts()+` WHERE user_id = $1`,
		userID,
	).Scan(&total); err != nil {
		return PostPage{}, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, body, "timestamp", user_id
		   FROM `+s.posts()+`
		  WHERE user_id = $1
		  ORDER BY "timestamp" DESC, id DESC
		  LIMIT $2 OFFSET $3`,
		userID, page.Size, page.offset(),
	)
	if err != nil {
		return PostPage{}, err
	}
	posts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Post, error) {
		var p Post
		err := row.Scan(&p.ID, &p.Body, &p.Timestamp, &p.UserID)
		p.Timestamp = p.Timestamp.UTC()
		return p, err
	})
	if err != nil {
		return PostPage{}, err
	}
	if posts == nil {
		posts = []Post{}
	}
	return PostPage{Posts: posts, Page: page, Total: total}, nil
}

func (s *PostgresStore) DeletePost(ctx context.Context, id int64) error {
	const op = "blog.DeletePost"

	if err := ctx.Err(); err != nil {
		return err
	}
	ct, err := s.pool.Exec(ctx, `DELETE FROM `+s.posts()+` WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return NotFoundError{Op: op, Resource: "post"}
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// Close is a no-op; the pool belongs to the caller.
func (s *PostgresStore) Close() error { return nil }

// pgIdent safely quotes a schema-qualified identifier: "schema"."name".
func pgIdent(schema, name string) string {
	return pgx.Identifier{schema, name}.Sanitize()
}
