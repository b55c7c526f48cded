package app

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"microblog/cmd/blog"
	"microblog/cmd/internal/feed"
	"microblog/cmd/internal/web"
)

const feedPath = "/ws/feed"

func registerHTTP(
	mux *http.ServeMux,
	log Logger,
	store blog.Store,
	metrics *Metrics,
	pages *web.Handler,
	gw *feed.Gateway,
) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			log.Info("readyz.db.not_ready", "err", err)
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready\n"))
	})

	if metrics != nil {
		mux.Handle("GET /metrics", metrics.Handler())
	}
	if gw != nil {
		mux.Handle("GET "+feedPath, gw)
	}
	if pages != nil {
		pages.Register(mux)
	}
}

// runtimeBaseURL turns a listen address into a URL a local client can dial.
// Wildcard hosts map to the IPv4 loopback.
func runtimeBaseURL(addr string) string {
	host, port, err := net.SplitHostPort(strings.TrimSpace(addr))
	if err != nil {
		return "http://" + strings.TrimSpace(addr)
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

// wsBaseURL swaps an http(s) base URL for its ws(s) twin.
func wsBaseURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	default:
		return "ws://" + base
	}
}
