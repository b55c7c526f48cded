package web

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/time/rate"
)

// loginLimiter is a token bucket per client key. The set of tracked keys is
// bounded by an LRU so a flood of distinct addresses cannot grow memory.
type loginLimiter struct {
	mu      sync.Mutex
	buckets *lru.Cache
	every   rate.Limit
	burst   int
}

func newLoginLimiter(perMinute float64, burst, size int) (*loginLimiter, error) {
	if perMinute <= 0 {
		return nil, nil
	}
	if burst <= 0 {
		burst = 1
	}
	if size <= 0 {
		size = 10_000
	}
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &loginLimiter{
		buckets: c,
		every:   rate.Limit(perMinute / 60),
		burst:   burst,
	}, nil
}

// Allow reports whether key may attempt a login at now.
// A nil limiter allows everything.
func (l *loginLimiter) Allow(key string, now time.Time) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	var lim *rate.Limiter
	if v, ok := l.buckets.Get(key); ok {
		lim = v.(*rate.Limiter)
	} else {
		lim = rate.NewLimiter(l.every, l.burst)
		l.buckets.Add(key, lim)
	}
	return lim.AllowN(now, 1)
}

// RetryAfter is how long a drained bucket needs for one token.
func (l *loginLimiter) RetryAfter() time.Duration {
	if l == nil || l.every <= 0 {
		return 0
	}
	d := time.Duration(float64(time.Second) / float64(l.every))
	return d.Round(time.Second)
}

func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if ip := parseForwardedIP(r.Header.Get("X-Forwarded-For")); ip != nil {
			return ip.String()
		}
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
			return ip.String()
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		if ip := net.ParseIP(host); ip != nil {
			return ip.String()
		}
	}
	return strings.TrimSpace(r.RemoteAddr)
}

func parseForwardedIP(raw string) net.IP {
	if raw == "" {
		return nil
	}
	for _, p := range strings.Split(raw, ",") {
		if ip := net.ParseIP(strings.TrimSpace(p)); ip != nil {
			return ip
		}
	}
	return nil
}
