// Package app wires the microblog runtime: config, logging, metrics, the
// store, the web pages and the live feed.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"microblog/cmd/blog"
	"microblog/cmd/internal/auth"
	"microblog/cmd/internal/auth/session"
	"microblog/cmd/internal/feed"
	"microblog/cmd/internal/web"
	"microblog/cmd/security/password"
)

// App is the microblog server runtime: it owns the store and the HTTP wiring.
type App struct {
	cfg Config
	log Logger

	store  blog.Store
	dbPool *pgxpool.Pool

	metrics *Metrics
	hub     *feed.Hub
	handler http.Handler
}

// New constructs a fully wired App instance from config and logger.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}
	if err := ValidateSecurityConfig(cfg, log); err != nil {
		return nil, err
	}

	pwCfg, err := password.FromEnv()
	if err != nil {
		return nil, err
	}

	store, pool, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	a := &App{cfg: cfg, log: log, store: store, dbPool: pool, metrics: NewMetrics()}

	handler, err := a.wire(pwCfg)
	if err != nil {
		_ = a.closeStore()
		return nil, err
	}
	a.handler = handler
	return a, nil
}

func (a *App) wire(pwCfg password.Config) (http.Handler, error) {
	cfg := a.cfg

	authSvc, err := auth.NewService(a.store, pwCfg, a.log)
	if err != nil {
		return nil, err
	}

	sessCfg := session.DefaultConfig()
	sessCfg.Secure = cfg.CookieSecure
	sessCfg.TTL = nonZeroDuration(cfg.SessionTTL, sessCfg.TTL)
	sessCfg.RememberTTL = nonZeroDuration(cfg.RememberTTL, sessCfg.RememberTTL)
	codec, err := session.NewCodec(cfg.SecretKey, sessCfg)
	if err != nil {
		return nil, err
	}

	a.hub = feed.NewHub(a.log, a.metrics)
	gw := feed.NewGateway(a.log, a.hub, feed.GatewayConfig{
		AllowedOrigins: cfg.FeedAllowedOrigins,
		OriginRequired: cfg.FeedOriginRequired,
	})

	pages, err := web.NewHandler(a.log, web.Deps{
		Auth:     authSvc,
		Store:    a.store,
		Sessions: codec,
		Feed:     a.hub,
		Metrics:  a.metrics,
	}, web.Config{
		Secret:          cfg.SecretKey,
		PostsPerPage:    cfg.PostsPerPage,
		TrustProxy:      cfg.TrustProxy,
		LoginRatePerMin: cfg.LoginRatePerMin,
		LoginBurst:      cfg.LoginRateBurst,
	})
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.store, a.metrics, pages, gw)

	var h http.Handler = mux
	h = WithCORS(h, cfg, a.log)
	h = WithSecurityHeaders(h)
	h = WithRequestLogging(h, a.log, a.metrics)
	return h, nil
}

// Handler returns the fully wrapped HTTP handler.
func (a *App) Handler() http.Handler { return a.handler }

// Run starts the HTTP server and blocks until context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	base := runtimeBaseURL(a.cfg.HTTPAddr)
	a.log.Info("server.start",
		"addr", a.cfg.HTTPAddr,
		"url", base,
		"feed_url", wsBaseURL(base)+feedPath,
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		_ = a.closeStore()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	if err := a.closeStore(); err != nil {
		a.log.Error("store.close.fail", "err", err)
	}

	a.log.Info("server.stopped")
	return nil
}

// closeStore closes the store, then the pool it borrowed.
func (a *App) closeStore() error {
	err := a.store.Close()
	if a.dbPool != nil {
		a.dbPool.Close()
	}
	return err
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
