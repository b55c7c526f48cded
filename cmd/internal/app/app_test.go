package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRuntimeBaseURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "explicit localhost", in: "127.0.0.1:5000", want: "http://127.0.0.1:5000"},
		{name: "bind all v4", in: "0.0.0.0:5000", want: "http://127.0.0.1:5000"},
		{name: "bind all v6", in: "[::]:9090", want: "http://127.0.0.1:9090"},
		{name: "port only", in: ":8080", want: "http://127.0.0.1:8080"},
		{name: "ipv6 host", in: "[2001:db8::1]:9090", want: "http://[2001:db8::1]:9090"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := runtimeBaseURL(tc.in)
			if got != tc.want {
				t.Fatalf("runtimeBaseURL(%q)=%q want=%q", tc.in, got, tc.want)
			}
		})
	}
}

func TestWSBaseURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{in: "http://127.0.0.1:5000", want: "ws://127.0.0.1:5000"},
		{in: "https://blog.example.com", want: "wss://blog.example.com"},
		{in: "127.0.0.1:5000", want: "ws://127.0.0.1:5000"},
	}

	for _, tc := range cases {
		got := wsBaseURL(tc.in)
		if got != tc.want {
			t.Fatalf("wsBaseURL(%q)=%q want=%q", tc.in, got, tc.want)
		}
	}
}

func testConfig() Config {
	return Config{
		HTTPAddr:     "127.0.0.1:0",
		SecretKey:    "an-app-test-secret-that-is-long-enough",
		DatabaseURL:  "memory://",
		DBEngine:     "pgx",
		PostsPerPage: 20,
		SessionTTL:   0,
		RememberTTL:  0,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew_ServesRoutes(t *testing.T) {
	t.Parallel()

	a, err := New(context.Background(), testConfig(), discardLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.closeStore() })
	h := a.Handler()

	cases := []struct {
		path       string
		wantStatus int
		wantBody   string
	}{
		{path: "/healthz", wantStatus: http.StatusOK, wantBody: "ok\n"},
		{path: "/readyz", wantStatus: http.StatusOK, wantBody: "ready\n"},
		{path: "/index", wantStatus: http.StatusOK, wantBody: "Hi, Miguel!"},
		{path: "/login", wantStatus: http.StatusOK, wantBody: "Sign In"},
		{path: "/user/nobody", wantStatus: http.StatusNotFound, wantBody: "File Not Found"},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tc.path, nil))
		if rr.Code != tc.wantStatus {
			t.Fatalf("GET %s status=%d want=%d", tc.path, rr.Code, tc.wantStatus)
		}
		if !strings.Contains(rr.Body.String(), tc.wantBody) {
			t.Fatalf("GET %s body missing %q", tc.path, tc.wantBody)
		}
		if rr.Header().Get(requestIDHeader) == "" {
			t.Fatalf("GET %s: missing request id", tc.path)
		}
		if rr.Header().Get("X-Frame-Options") != "DENY" {
			t.Fatalf("GET %s: missing security headers", tc.path)
		}
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		`microblog_http_requests_total{code="200",method="GET",route="GET /healthz"} 1`,
		`microblog_http_requests_total{code="404",method="GET",route="GET /user/{username}"} 1`,
		"microblog_feed_subscribers 0",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q", want)
		}
	}
}

func TestNew_Failures(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "bad database url", mutate: func(c *Config) { c.DatabaseURL = "mysql://localhost/db" }},
		{name: "dev secret required", mutate: func(c *Config) { c.SecretKey = DevSecretKey; c.RequireSecretKey = true }},
		{name: "empty secret", mutate: func(c *Config) { c.SecretKey = "" }},
	}
	for _, tc := range cases {
		cfg := testConfig()
		tc.mutate(&cfg)
		if _, err := New(context.Background(), cfg, discardLogger()); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestNew_SQLiteInMemory(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.DatabaseURL = "sqlite://"
	a, err := New(context.Background(), cfg, discardLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.closeStore() })

	rr := httptest.NewRecorder()
	a.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("readyz status=%d", rr.Code)
	}
}
