package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// DevSecretKey is the fallback SECRET_KEY. It is public; never deploy with it.
const DevSecretKey = "dev"

// Config contains all runtime configuration.
// Values come from the environment, optionally seeded from a .env file and
// a YAML file named by MICROBLOG_CONFIG; the environment always wins.
type Config struct {
	HTTPAddr  string `yaml:"http_addr" env:"MICROBLOG_HTTP_ADDR" env-default:"0.0.0.0:5000"`
	LogLevel  string `yaml:"log_level" env:"MICROBLOG_LOG_LEVEL" env-default:"info"`
	LogFormat string `yaml:"log_format" env:"MICROBLOG_LOG_FORMAT" env-default:"json"`

	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" env:"MICROBLOG_HTTP_READ_HEADER_TIMEOUT" env-default:"5s"`
	ReadTimeout       time.Duration `yaml:"read_timeout" env:"MICROBLOG_HTTP_READ_TIMEOUT" env-default:"15s"`
	WriteTimeout      time.Duration `yaml:"write_timeout" env:"MICROBLOG_HTTP_WRITE_TIMEOUT" env-default:"15s"`
	IdleTimeout       time.Duration `yaml:"idle_timeout" env:"MICROBLOG_HTTP_IDLE_TIMEOUT" env-default:"60s"`
	MaxHeaderBytes    int           `yaml:"max_header_bytes" env:"MICROBLOG_HTTP_MAX_HEADER_BYTES" env-default:"1048576"`

	SecretKey        string `yaml:"secret_key" env:"SECRET_KEY" env-default:"dev"`
	RequireSecretKey bool   `yaml:"require_secret_key" env:"MICROBLOG_REQUIRE_SECRET_KEY" env-default:"false"`

	// DatabaseURL selects the store: sqlite:///path, postgres://..., memory://.
	// Empty means sqlite:///<working dir>/app.db.
	DatabaseURL string `yaml:"database_url" env:"DATABASE_URL"`
	// DBEngine picks the PostgreSQL driver: "pgx" (raw SQL) or "gorm".
	DBEngine   string `yaml:"db_engine" env:"MICROBLOG_DB_ENGINE" env-default:"pgx"`
	DBSchema   string `yaml:"db_schema" env:"MICROBLOG_DB_SCHEMA" env-default:"public"`
	DBMaxConns int32  `yaml:"db_max_conns" env:"MICROBLOG_DB_MAX_CONNS" env-default:"10"`
	DBMinConns int32  `yaml:"db_min_conns" env:"MICROBLOG_DB_MIN_CONNS" env-default:"0"`

	PostsPerPage int `yaml:"posts_per_page" env:"POSTS_PER_PAGE" env-default:"20"`

	CookieSecure bool          `yaml:"cookie_secure" env:"MICROBLOG_COOKIE_SECURE" env-default:"false"`
	SessionTTL   time.Duration `yaml:"session_ttl" env:"MICROBLOG_SESSION_TTL" env-default:"24h"`
	RememberTTL  time.Duration `yaml:"remember_ttl" env:"MICROBLOG_REMEMBER_TTL" env-default:"720h"`

	TrustProxy      bool    `yaml:"trust_proxy" env:"MICROBLOG_TRUST_PROXY" env-default:"false"`
	LoginRatePerMin float64 `yaml:"login_rate_per_min" env:"LOGIN_RATE_PER_MIN" env-default:"10"`
	LoginRateBurst  int     `yaml:"login_rate_burst" env:"LOGIN_RATE_BURST" env-default:"5"`

	CORSAllowedOrigins   []string `yaml:"cors_allowed_origins" env:"MICROBLOG_CORS_ALLOWED_ORIGINS" env-separator:","`
	CORSAllowCredentials bool     `yaml:"cors_allow_credentials" env:"MICROBLOG_CORS_ALLOW_CREDENTIALS" env-default:"false"`
	CORSMaxAgeSeconds    int      `yaml:"cors_max_age_seconds" env:"MICROBLOG_CORS_MAX_AGE_SECONDS" env-default:"600"`

	FeedAllowedOrigins []string `yaml:"feed_allowed_origins" env:"MICROBLOG_FEED_ALLOWED_ORIGINS" env-separator:","`
	FeedOriginRequired bool     `yaml:"feed_origin_required" env:"MICROBLOG_FEED_ORIGIN_REQUIRED" env-default:"false"`
}

// LoadConfig reads .env (if present), the optional YAML file and the environment.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: .env: %w", err)
	}

	var cfg Config
	var err error
	if path := strings.TrimSpace(os.Getenv("MICROBLOG_CONFIG")); path != "" {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() error {
	// A blank SECRET_KEY means unset.
	if strings.TrimSpace(c.SecretKey) == "" {
		c.SecretKey = DevSecretKey
	}
	if strings.TrimSpace(c.DatabaseURL) == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("config: working dir: %w", err)
		}
		c.DatabaseURL = "sqlite:///" + filepath.Join(wd, "app.db")
	}
	c.DBEngine = strings.ToLower(strings.TrimSpace(c.DBEngine))
	switch c.DBEngine {
	case "", "pgx":
		c.DBEngine = "pgx"
	case "gorm":
	default:
		return fmt.Errorf("config: MICROBLOG_DB_ENGINE must be pgx or gorm, got %q", c.DBEngine)
	}
	if c.DBMinConns > c.DBMaxConns && c.DBMaxConns > 0 {
		return fmt.Errorf("config: db min conns (%d) > max conns (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.RememberTTL < c.SessionTTL {
		return fmt.Errorf("config: remember ttl (%s) shorter than session ttl (%s)", c.RememberTTL, c.SessionTTL)
	}
	c.CORSAllowedOrigins = compact(c.CORSAllowedOrigins)
	c.FeedAllowedOrigins = compact(c.FeedAllowedOrigins)
	return nil
}

func compact(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
