package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"microblog/cmd/blog"
	"microblog/cmd/internal/auth"
	"microblog/cmd/internal/auth/session"
	"microblog/cmd/security/token"
)

const csrfKeyPurpose = "microblog/csrf"

// Publisher receives every post created through the web UI.
type Publisher interface {
	PublishPost(ctx context.Context, p blog.Post, author blog.User)
}

// Metrics counts user-facing outcomes.
type Metrics interface {
	LoginAttempt(result string)
	UserRegistered()
	PostCreated()
}

type nopMetrics struct{}

func (nopMetrics) LoginAttempt(string) {}
func (nopMetrics) UserRegistered()     {}
func (nopMetrics) PostCreated()        {}

type nopPublisher struct{}

func (nopPublisher) PublishPost(context.Context, blog.Post, blog.User) {}

// Config tunes the handlers.
type Config struct {
	// Secret keys the CSRF tokens. It is the same SECRET_KEY that keys the session cookie.
	Secret string

	PostsPerPage int

	// TrustProxy makes the login limiter key on X-Forwarded-For / X-Real-IP.
	TrustProxy bool

	// LoginRatePerMin <= 0 disables login throttling.
	LoginRatePerMin float64
	LoginBurst      int
	LoginTrackedIPs int

	MaxFormBytes int64
}

// Deps are the collaborators of a Handler. Feed and Metrics are optional.
type Deps struct {
	Auth     *auth.Service
	Store    blog.Store
	Sessions *session.Codec
	Feed     Publisher
	Metrics  Metrics
	Now      func() time.Time
}

// Handler serves the HTML pages.
type Handler struct {
	log *slog.Logger
	cfg Config

	auth     *auth.Service
	store    blog.Store
	sessions *session.Codec
	feed     Publisher
	metrics  Metrics
	now      func() time.Time

	tmpl    *templates
	forms   *formCodec
	limiter *loginLimiter
	csrfKey []byte
}

// NewHandler validates deps and parses the embedded templates.
func NewHandler(log *slog.Logger, deps Deps, cfg Config) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	switch {
	case deps.Auth == nil:
		return nil, errors.New("web: nil auth service")
	case deps.Store == nil:
		return nil, errors.New("web: nil store")
	case deps.Sessions == nil:
		return nil, errors.New("web: nil session codec")
	}
	if deps.Feed == nil {
		deps.Feed = nopPublisher{}
	}
	if deps.Metrics == nil {
		deps.Metrics = nopMetrics{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if cfg.PostsPerPage <= 0 {
		cfg.PostsPerPage = blog.DefaultPageSize
	}

	key, err := token.DeriveKey(cfg.Secret, csrfKeyPurpose)
	if err != nil {
		return nil, fmt.Errorf("web: csrf key: %w", err)
	}
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	lim, err := newLoginLimiter(cfg.LoginRatePerMin, cfg.LoginBurst, cfg.LoginTrackedIPs)
	if err != nil {
		return nil, fmt.Errorf("web: login limiter: %w", err)
	}

	return &Handler{
		log:      log,
		cfg:      cfg,
		auth:     deps.Auth,
		store:    deps.Store,
		sessions: deps.Sessions,
		feed:     deps.Feed,
		metrics:  deps.Metrics,
		now:      deps.Now,
		tmpl:     tmpl,
		forms:    newFormCodec(cfg.MaxFormBytes),
		limiter:  lim,
		csrfKey:  key,
	}, nil
}

// Register wires the page routes onto mux. Every route runs behind WithCurrentUser.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	page := func(fn http.HandlerFunc) http.Handler { return h.WithCurrentUser(fn) }

	mux.Handle("GET /{$}", page(h.handleIndex))
	mux.Handle("GET /index", page(h.handleIndex))
	mux.Handle("GET /login", page(h.handleLoginForm))
	mux.Handle("POST /login", page(h.handleLogin))
	mux.Handle("POST /logout", page(h.handleLogout))
	mux.Handle("GET /register", page(h.handleRegisterForm))
	mux.Handle("POST /register", page(h.handleRegister))
	mux.Handle("GET /user/{username}", page(h.handleUser))
	mux.Handle("POST /posts", page(h.handlePost))
	mux.Handle("/", page(h.handleNotFound))
}

// view is the data every page template receives.
type view struct {
	Title       string
	CurrentUser *blog.User
	Flashes     []string
	CSRF        string
	Page        any
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name, title string, page any) {
	st := stateFrom(r.Context())
	v := view{Title: title, Page: page}
	if st != nil {
		v.CurrentUser = st.user
		v.Flashes = st.sess.PopFlashes()
		v.CSRF = h.csrfToken(st)
	}
	if err := h.tmpl.render(w, status, name, v); err != nil {
		h.log.Error("web.render.fail", slog.String("template", name), slog.Any("err", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

type errorPage struct {
	Heading string
	Message string
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	h.render(w, r, status, "error", http.StatusText(status), errorPage{
		Heading: http.StatusText(status),
		Message: msg,
	})
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, event string, err error) {
	h.log.Error(event, slog.Any("err", err), slog.String("path", r.URL.Path))
	h.renderError(w, r, http.StatusInternalServerError, "An unexpected error has occurred.")
}

func (h *Handler) redirect(w http.ResponseWriter, r *http.Request, to string) {
	http.Redirect(w, r, to, http.StatusFound)
}

func (h *Handler) handleNotFound(w http.ResponseWriter, r *http.Request) {
	h.renderError(w, r, http.StatusNotFound, "File Not Found")
}
