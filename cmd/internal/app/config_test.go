package app

import (
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"MICROBLOG_CONFIG", "MICROBLOG_HTTP_ADDR", "MICROBLOG_LOG_LEVEL", "MICROBLOG_LOG_FORMAT",
		"SECRET_KEY", "MICROBLOG_REQUIRE_SECRET_KEY", "DATABASE_URL", "MICROBLOG_DB_ENGINE",
		"MICROBLOG_DB_MAX_CONNS", "MICROBLOG_DB_MIN_CONNS", "POSTS_PER_PAGE",
		"MICROBLOG_SESSION_TTL", "MICROBLOG_REMEMBER_TTL", "MICROBLOG_CORS_ALLOWED_ORIGINS",
		"LOGIN_RATE_PER_MIN", "LOGIN_RATE_BURST", "MICROBLOG_FEED_ALLOWED_ORIGINS",
	} {
		t.Setenv(k, "")
		if err := os.Unsetenv(k); err != nil {
			t.Fatalf("unsetenv %s: %v", k, err)
		}
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if want := "sqlite:///" + filepath.Join(wd, "app.db"); cfg.DatabaseURL != want {
		t.Fatalf("DatabaseURL=%q want=%q", cfg.DatabaseURL, want)
	}
	if cfg.SecretKey != DevSecretKey {
		t.Fatalf("SecretKey=%q want dev default", cfg.SecretKey)
	}
	if cfg.HTTPAddr != "0.0.0.0:5000" || cfg.PostsPerPage != 20 || cfg.DBEngine != "pgx" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.ReadHeaderTimeout != 5*time.Second || cfg.RememberTTL != 720*time.Hour {
		t.Fatalf("unexpected duration defaults: %+v", cfg)
	}
	if cfg.CORSAllowedOrigins != nil {
		t.Fatalf("CORS must be off by default: %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadConfig_BlankSecretKeyFallsBackToDev(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("SECRET_KEY", "  ")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.SecretKey != DevSecretKey {
		t.Fatalf("SecretKey=%q want %q", cfg.SecretKey, DevSecretKey)
	}
	if err := ValidateSecurityConfig(cfg, newLogger(io.Discard, "error", "json")); err != nil {
		t.Fatalf("ValidateSecurityConfig: %v", err)
	}

	t.Setenv("SECRET_KEY", "")
	if cfg, err = LoadConfig(); err != nil || cfg.SecretKey != DevSecretKey {
		t.Fatalf("empty SECRET_KEY: cfg=%q err=%v", cfg.SecretKey, err)
	}
}

func TestLoadConfig_Env(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("SECRET_KEY", "s3cret")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/blog")
	t.Setenv("MICROBLOG_DB_ENGINE", "GORM")
	t.Setenv("POSTS_PER_PAGE", "3")
	t.Setenv("MICROBLOG_SESSION_TTL", "1h")
	t.Setenv("MICROBLOG_CORS_ALLOWED_ORIGINS", "https://a.example.com, ,https://b.example.com")
	t.Setenv("LOGIN_RATE_PER_MIN", "2.5")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.SecretKey != "s3cret" || cfg.DBEngine != "gorm" || cfg.PostsPerPage != 3 {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if cfg.SessionTTL != time.Hour || cfg.LoginRatePerMin != 2.5 {
		t.Fatalf("env not applied: %+v", cfg)
	}
	want := []string{"https://a.example.com", "https://b.example.com"}
	if !reflect.DeepEqual(cfg.CORSAllowedOrigins, want) {
		t.Fatalf("CORS origins=%v want=%v", cfg.CORSAllowedOrigins, want)
	}
}

func TestLoadConfig_YAMLFile(t *testing.T) {
	clearConfigEnv(t)
	path := filepath.Join(t.TempDir(), "microblog.yaml")
	yaml := "http_addr: 127.0.0.1:7000\nposts_per_page: 7\nsecret_key: from-file\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("MICROBLOG_CONFIG", path)
	t.Setenv("SECRET_KEY", "from-env")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.HTTPAddr != "127.0.0.1:7000" || cfg.PostsPerPage != 7 {
		t.Fatalf("file not applied: %+v", cfg)
	}
	if cfg.SecretKey != "from-env" {
		t.Fatalf("environment must override the file, got %q", cfg.SecretKey)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"engine":   {"MICROBLOG_DB_ENGINE": "mysql"},
		"conns":    {"MICROBLOG_DB_MIN_CONNS": "5", "MICROBLOG_DB_MAX_CONNS": "2"},
		"ttl":      {"MICROBLOG_SESSION_TTL": "48h", "MICROBLOG_REMEMBER_TTL": "1h"},
		"not int":  {"POSTS_PER_PAGE": "many"},
		"duration": {"MICROBLOG_SESSION_TTL": "soon"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			clearConfigEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := LoadConfig(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
