package blog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// userRow and postRow are the GORM models behind GormStore.
// Posts exists only so AutoMigrate emits the cascading foreign key; it is never preloaded.
type userRow struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"`
	Username     string    `gorm:"size:64;not null;uniqueIndex:uq_users_username"`
	Email        string    `gorm:"size:120;not null;uniqueIndex:uq_users_email"`
	PasswordHash *string   `gorm:"size:256"`
	AboutMe      *string   `gorm:"size:140"`
	LastSeen     time.Time `gorm:"not null"`
	Posts        []postRow `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (userRow) TableName() string { return "users" }

type postRow struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	Body      string    `gorm:"size:140;not null"`
	Timestamp time.Time `gorm:"not null;index:ix_posts_timestamp"`
	UserID    int64     `gorm:"not null;index:ix_posts_user_id"`
}

func (postRow) TableName() string { return "posts" }

func (r userRow) toUser() User {
	return User{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		AboutMe:      r.AboutMe,
		LastSeen:     r.LastSeen.UTC(),
	}
}

func (r postRow) toPost() Post {
	return Post{ID: r.ID, Body: r.Body, Timestamp: r.Timestamp.UTC(), UserID: r.UserID}
}

// GormStore implements Store through GORM.
// It owns the underlying *sql.DB and closes it on Close.
type GormStore struct {
	db *gorm.DB
}

var _ Store = (*GormStore)(nil)

// SQLiteDSN turns a file path into a go-sqlite3 DSN with foreign keys enforced.
func SQLiteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=on&_busy_timeout=5000"
}

// OpenSQLite opens (creating if needed) the SQLite database at dsn and migrates it.
func OpenSQLite(ctx context.Context, dsn string, log *slog.Logger) (*GormStore, error) {
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig(log))
	if err != nil {
		return nil, fmt.Errorf("blog: open sqlite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("blog: sqlite handle: %w", err)
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY under load.
	sqlDB.SetMaxOpenConns(1)

	return newMigratedGormStore(ctx, db)
}

// OpenGormPostgres opens a PostgreSQL database through GORM and migrates it.
func OpenGormPostgres(ctx context.Context, dsn string, log *slog.Logger) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), gormConfig(log))
	if err != nil {
		return nil, fmt.Errorf("blog: open postgres: %w", err)
	}
	return newMigratedGormStore(ctx, db)
}

// NewGormStore wraps an already-open *gorm.DB. It does not migrate.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if db == nil {
		return nil, fmt.Errorf("blog: nil gorm db")
	}
	return &GormStore{db: db}, nil
}

func newMigratedGormStore(ctx context.Context, db *gorm.DB) (*GormStore, error) {
	s := &GormStore{db: db}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the users and posts tables and their indexes if missing.
func (s *GormStore) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&userRow{}, &postRow{}); err != nil {
		return fmt.Errorf("blog: migrate: %w", err)
	}
	return nil
}

func (s *GormStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "blog.CreateUser"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	if err := normalizeCreateUser(op, &in); err != nil {
		return User{}, err
	}

	row := userRow{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		AboutMe:      in.AboutMe,
		LastSeen:     in.Now,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if field, ok := classifyUniqueViolation(err); ok {
			return User{}, ConflictError{Op: op, Field: field}
		}
		return User{}, err
	}
	return row.toUser(), nil
}

func (s *GormStore) GetUserByID(ctx context.Context, id int64) (User, error) {
	return s.firstUser(ctx, "blog.GetUserByID", "id = ?", id)
}

func (s *GormStore) GetUserByUsername(ctx context.Context, username string) (User, error) {
	return s.firstUser(ctx, "blog.GetUserByUsername", "username = ?", strings.TrimSpace(username))
}

func (s *GormStore) firstUser(ctx context.Context, op, where string, arg any) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	var row userRow
	err := s.db.WithContext(ctx).Where(where, arg).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return User{}, NotFoundError{Op: op, Resource: "user"}
		}
		return User{}, err
	}
	return row.toUser(), nil
}

func (s *GormStore) UpdateUser(ctx context.Context, in UpdateUserInput) (User, error) {
	const op = "blog.UpdateUser"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	if err := normalizeUpdateUser(op, &in); err != nil {
		return User{}, err
	}

	var out userRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&out, in.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFoundError{Op: op, Resource: "user"}
			}
			return err
		}

		changes := map[string]any{}
		if in.Username != nil {
			changes["username"] = *in.Username
		}
		if in.Email != nil {
			changes["email"] = *in.Email
		}
		if in.PasswordHash != nil {
			changes["password_hash"] = *in.PasswordHash
		}
		if in.AboutMe != nil {
			changes["about_me"] = *in.AboutMe
		}
		if len(changes) == 0 {
			return nil
		}

		if err := tx.Model(&out).Updates(changes).Error; err != nil {
			if field, ok := classifyUniqueViolation(err); ok {
				return ConflictError{Op: op, Field: field}
			}
			return err
		}
		return tx.First(&out, in.ID).Error
	})
	if err != nil {
		return User{}, err
	}
	return out.toUser(), nil
}

func (s *GormStore) TouchLastSeen(ctx context.Context, id int64, at time.Time) error {
	const op = "blog.TouchLastSeen"

	if err := ctx.Err(); err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Model(&userRow{}).Where("id = ?", id).Update("last_seen", nowUTC(at))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return NotFoundError{Op: op, Resource: "user"}
	}
	return nil
}

func (s *GormStore) DeleteUser(ctx context.Context, id int64) error {
	const op = "blog.DeleteUser"

	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&postRow{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&userRow{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return NotFoundError{Op: op, Resource: "user"}
		}
		return nil
	})
}

func (s *GormStore) CreatePost(ctx context.Context, in CreatePostInput) (Post, error) {
	const op = "blog.CreatePost"

	if err := ctx.Err(); err != nil {
		return Post{}, err
	}
	if err := normalizePost(op, &in); err != nil {
		return Post{}, err
	}

	row := postRow{Body: in.Body, Timestamp: in.Now, UserID: in.UserID}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&userRow{}).Where("id = ?", in.UserID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return NotFoundError{Op: op, Resource: "user"}
		}
		if err := tx.Create(&row).Error; err != nil {
			if isForeignKeyViolation(err) {
				return NotFoundError{Op: op, Resource: "user"}
			}
			return err
		}
		return nil
	})
	if err != nil {
		return Post{}, err
	}
	return row.toPost(), nil
}

func (s *GormStore) PostsByUser(ctx context.Context, userID int64, page Page) (PostPage, error) {
	if err := ctx.Err(); err != nil {
		return PostPage{}, err
	}
	page = page.Normalize()

	byUser := func() *gorm.DB {
		return s.db.WithContext(ctx).Model(&postRow{}).Where("user_id = ?", userID)
	}

	var total int64
	if err := byUser().Count(&total).Error; err != nil {
		return PostPage{}, err
	}

	var rows []postRow
	err := byUser().
		Order(clause.OrderByColumn{Column: clause.Column{Name: "timestamp"}, Desc: true}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: true}).
		Limit(page.Size).
		Offset(page.offset()).
		Find(&rows).Error
	if err != nil {
		return PostPage{}, err
	}

	out := PostPage{Page: page, Total: int(total), Posts: make([]Post, 0, len(rows))}
	for _, r := range rows {
		out.Posts = append(out.Posts, r.toPost())
	}
	return out, nil
}

func (s *GormStore) DeletePost(ctx context.Context, id int64) error {
	const op = "blog.DeletePost"

	if err := ctx.Err(); err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Delete(&postRow{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return NotFoundError{Op: op, Resource: "post"}
	}
	return nil
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func gormConfig(log *slog.Logger) *gorm.Config {
	cfg := &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
		Logger:  logger.Discard,
	}
	if log != nil {
		cfg.Logger = logger.New(slogPrintf{log: log}, logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		})
	}
	return cfg
}

// slogPrintf adapts slog to GORM's Printf-style logger writer.
type slogPrintf struct{ log *slog.Logger }

func (p slogPrintf) Printf(format string, args ...any) {
	p.log.Warn("db.gorm", slog.String("msg", strings.TrimSpace(fmt.Sprintf(format, args...))))
}
