package app

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private Prometheus registry. It satisfies the metrics
// hooks of the web and feed packages.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	usersRegistered prometheus.Counter
	postsCreated    prometheus.Counter
	logins          *prometheus.CounterVec

	feedSubscribers prometheus.Gauge
	feedDropped     prometheus.Counter
}

// NewMetrics registers every collector on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "microblog",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "microblog",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		usersRegistered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "microblog",
			Name:      "users_registered_total",
			Help:      "Accounts created through registration.",
		}),
		postsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "microblog",
			Name:      "posts_created_total",
			Help:      "Posts submitted.",
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "microblog",
			Name:      "login_attempts_total",
			Help:      "Login form submissions by result.",
		}, []string{"result"}),
		feedSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "microblog",
			Subsystem: "feed",
			Name:      "subscribers",
			Help:      "Connected live feed subscribers.",
		}),
		feedDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "microblog",
			Subsystem: "feed",
			Name:      "events_dropped_total",
			Help:      "Feed events dropped for slow subscribers.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.usersRegistered,
		m.postsCreated,
		m.logins,
		m.feedSubscribers,
		m.feedDropped,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveHTTP records one finished request. route is the matched ServeMux pattern.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) LoginAttempt(result string) { m.logins.WithLabelValues(result).Inc() }
func (m *Metrics) UserRegistered()            { m.usersRegistered.Inc() }
func (m *Metrics) PostCreated()               { m.postsCreated.Inc() }
func (m *Metrics) SubscribersChanged(n int)   { m.feedSubscribers.Set(float64(n)) }
func (m *Metrics) EventDropped()              { m.feedDropped.Inc() }
