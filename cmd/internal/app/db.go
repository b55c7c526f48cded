package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"microblog/cmd/blog"
)

// NewDBPool builds a pgxpool with sane defaults and validates connectivity.
// Note: it does NOT create tables; PostgresStore.EnsureSchema does.
func NewDBPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	if cfg.DBMaxConns > 0 {
		pcfg.MaxConns = cfg.DBMaxConns
	}
	if cfg.DBMinConns >= 0 {
		pcfg.MinConns = cfg.DBMinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}

	if err := PingDB(ctx, pool, 3*time.Second); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

// PingDB checks if we can acquire a connection within timeout.
func PingDB(parent context.Context, pool *pgxpool.Pool, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	conn.Release()
	return nil
}

// storeKind is the backend named by a DATABASE_URL.
type storeKind int

const (
	storeSQLite storeKind = iota + 1
	storePostgres
	storeMemory
)

func (k storeKind) String() string {
	switch k {
	case storeSQLite:
		return "sqlite"
	case storePostgres:
		return "postgres"
	case storeMemory:
		return "memory"
	default:
		return "unknown"
	}
}

// parseDatabaseURL classifies raw. For SQLite it returns the file path
// following the sqlite:/// prefix: "sqlite:///app.db" is relative,
// "sqlite:////var/lib/app.db" absolute and "sqlite://" in-memory.
func parseDatabaseURL(raw string) (storeKind, string, error) {
	raw = strings.TrimSpace(raw)
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return 0, "", fmt.Errorf("database url %q: missing scheme", raw)
	}
	switch strings.ToLower(scheme) {
	case "sqlite", "sqlite3":
		path := strings.TrimPrefix(rest, "/")
		if path == "" {
			path = ":memory:"
		}
		return storeSQLite, path, nil
	case "postgres", "postgresql":
		return storePostgres, raw, nil
	case "memory":
		return storeMemory, "", nil
	default:
		return 0, "", fmt.Errorf("database url: unsupported scheme %q", scheme)
	}
}

// openStore opens the store named by cfg.DatabaseURL. The returned pool is
// non-nil only for the pgx engine; the app owns it and closes it after the store.
func openStore(ctx context.Context, cfg Config, log Logger) (blog.Store, *pgxpool.Pool, error) {
	kind, target, err := parseDatabaseURL(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}

	switch kind {
	case storeMemory:
		log.Info("db.enabled.memory_store")
		return blog.NewMemoryStore(), nil, nil

	case storeSQLite:
		st, err := blog.OpenSQLite(ctx, blog.SQLiteDSN(target), log)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite %s: %w", target, err)
		}
		log.Info("db.enabled.sqlite_store", "path", target)
		return st, nil, nil

	case storePostgres:
		if cfg.DBEngine == "gorm" {
			st, err := blog.OpenGormPostgres(ctx, target, log)
			if err != nil {
				return nil, nil, fmt.Errorf("open postgres (gorm): %w", err)
			}
			log.Info("db.enabled.postgres_store", "engine", "gorm")
			return st, nil, nil
		}

		pool, err := NewDBPool(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		st, err := blog.NewPostgresStore(pool, blog.WithSchema(cfg.DBSchema))
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		if err := st.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ensure schema: %w", err)
		}
		log.Info("db.enabled.postgres_store", "engine", "pgx", "schema", cfg.DBSchema)
		return st, pool, nil
	}
	return nil, nil, fmt.Errorf("database url: unsupported store %s", kind)
}
