// Package main is a CI-friendly end-to-end smoke test for a running microblog.
//
// It validates:
//   - feed handshake + subprotocol selection
//   - registration and login through the HTML forms
//   - post submission -> post.new fanout on the live feed
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/oklog/ulid/v2"
)

const (
	feedSubprotocol = "microblog.feed.v1"
	typePostNew     = "post.new"
	maxReadBytes    = 1 << 20 // 1MiB
)

// feedEvent mirrors the fields of a post.new frame the smoke test checks.
type feedEvent struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Post struct {
		ID     int64  `json:"id"`
		Body   string `json:"body"`
		Author struct {
			Username string `json:"username"`
		} `json:"author"`
	} `json:"post"`
}

var csrfRe = regexp.MustCompile(`name="csrf_token" value="([0-9a-f]+)"`)

func main() {
	var (
		baseURL = flag.String("url", "http://127.0.0.1:5000", "Base URL of the server")
		origin  = flag.String("origin", "", "Origin header for the feed handshake (defaults to -url)")
		text    = flag.String("text", "hello microblog 👋", "Post body to submit")
		timeout = flag.Duration("timeout", 7*time.Second, "Per-step timeout")
		verbose = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	base, err := validateBaseURL(*baseURL)
	if err != nil {
		fatalf("invalid -url: %v", err)
	}
	if *origin == "" {
		*origin = base.String()
	}

	root := context.Background()

	conn := mustSubscribe(root, feedURL(base), *origin, *timeout)
	defer closeWS(conn)

	web := newWebClient(base, *timeout)
	suffix := strings.ToLower(ulid.Make().String()[20:])
	username := "smoke_" + suffix
	pw := "smoke-pass-" + suffix

	web.mustRegister(username, username+"@example.com", pw)
	web.mustLogin(username, pw)
	if *verbose {
		fmt.Printf("registered and logged in as %s\n", username)
	}

	web.mustPost(username, *text)

	ev := mustReadPost(root, conn, *text, *timeout)
	if ev.Post.Author.Username != username {
		fatalf("post.new author=%q want %q", ev.Post.Author.Username, username)
	}
	if *verbose {
		fmt.Printf("received post.new id=%s post_id=%d\n", ev.ID, ev.Post.ID)
	}

	fmt.Println("OK")
}

func validateBaseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return nil, errors.New("missing host")
	}
	return u, nil
}

func feedURL(base *url.URL) string {
	u := *base
	u.Scheme = "ws"
	if base.Scheme == "https" {
		u.Scheme = "wss"
	}
	u.Path = "/ws/feed"
	return u.String()
}

func mustSubscribe(parent context.Context, wsURL, origin string, stepTimeout time.Duration) *websocket.Conn {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	h := http.Header{}
	h.Set("Origin", origin)

	conn, resp, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		Subprotocols: []string{feedSubprotocol},
		HTTPHeader:   h,
	})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		fatalf("connect feed: %v", err)
	}
	if got := conn.Subprotocol(); got != feedSubprotocol {
		fatalf("subprotocol mismatch: got=%q want=%q", got, feedSubprotocol)
	}
	conn.SetReadLimit(maxReadBytes)
	return conn
}

func mustReadPost(parent context.Context, conn *websocket.Conn, body string, stepTimeout time.Duration) feedEvent {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			fatalf("waiting for post.new: %v", err)
		}
		var ev feedEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			fatalf("unmarshal feed event: %v", err)
		}
		// Other users may be posting on a shared server.
		if ev.Type == typePostNew && ev.Post.Body == body {
			return ev
		}
	}
}

type webClient struct {
	base   *url.URL
	client *http.Client
}

func newWebClient(base *url.URL, timeout time.Duration) *webClient {
	jar, err := cookiejar.New(nil)
	if err != nil {
		fatalf("cookie jar: %v", err)
	}
	return &webClient{
		base: base,
		client: &http.Client{
			Jar:     jar,
			Timeout: timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (c *webClient) csrf(path string) string {
	resp, err := c.client.Get(c.base.String() + path)
	if err != nil {
		fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		fatalf("GET %s: %v", path, err)
	}
	m := csrfRe.FindSubmatch(b)
	if m == nil {
		fatalf("GET %s: no csrf token (status %d)", path, resp.StatusCode)
	}
	return string(m[1])
}

func (c *webClient) mustPostForm(path string, form url.Values, wantLocation string) {
	resp, err := c.client.PostForm(c.base.String()+path, form)
	if err != nil {
		fatalf("POST %s: %v", path, err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusFound {
		fatalf("POST %s: status=%d want 302", path, resp.StatusCode)
	}
	if got := resp.Header.Get("Location"); got != wantLocation {
		fatalf("POST %s: redirect=%q want %q", path, got, wantLocation)
	}
}

func (c *webClient) mustRegister(username, email, pw string) {
	c.mustPostForm("/register", url.Values{
		"username":   {username},
		"email":      {email},
		"password":   {pw},
		"password2":  {pw},
		"csrf_token": {c.csrf("/register")},
	}, "/login")
}

func (c *webClient) mustLogin(username, pw string) {
	c.mustPostForm("/login", url.Values{
		"username":   {username},
		"password":   {pw},
		"csrf_token": {c.csrf("/login")},
	}, "/index")
}

func (c *webClient) mustPost(username, body string) {
	profile := "/user/" + url.PathEscape(username)
	c.mustPostForm("/posts", url.Values{
		"body":       {body},
		"csrf_token": {c.csrf(profile)},
	}, profile)
}

func closeWS(conn *websocket.Conn) {
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "FAIL: "+format+"\n", args...)
	os.Exit(1)
}
