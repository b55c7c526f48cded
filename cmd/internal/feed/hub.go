package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"microblog/cmd/blog"
	"microblog/cmd/internal/ids"
)

// Metrics receives hub counters. A nil Metrics is allowed.
type Metrics interface {
	SubscribersChanged(n int)
	EventDropped()
}

// Hub fans new posts out to every subscriber.
//
// Subscribe/Unsubscribe are safe under concurrent Publish. Publish never
// blocks: a subscriber whose queue is full misses the event.
type Hub struct {
	log     *slog.Logger
	metrics Metrics

	mu      sync.RWMutex
	clients map[string]*Client
}

// NewHub constructs a Hub.
func NewHub(log *slog.Logger, m Metrics) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{log: log, metrics: m, clients: make(map[string]*Client)}
}

// Subscribe adds client to the fanout set.
func (h *Hub) Subscribe(client *Client) {
	if h == nil || client == nil || client.ID == "" {
		return
	}

	h.mu.Lock()
	h.clients[client.ID] = client
	n := len(h.clients)
	h.mu.Unlock()

	h.log.Debug("feed.subscribe", "subscriber_id", client.ID, "subscribers", n)
	if h.metrics != nil {
		h.metrics.SubscribersChanged(n)
	}
}

// Unsubscribe removes the client and then signals it to stop.
func (h *Hub) Unsubscribe(id string) {
	if h == nil || id == "" {
		return
	}

	h.mu.Lock()
	cl := h.clients[id]
	delete(h.clients, id)
	n := len(h.clients)
	h.mu.Unlock()

	// Removal happens first so no publisher holds cl while it shuts down.
	if cl != nil {
		cl.Close()
	}

	h.log.Debug("feed.unsubscribe", "subscriber_id", id, "subscribers", n)
	if h.metrics != nil {
		h.metrics.SubscribersChanged(n)
	}
}

// Len returns the current subscriber count.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish delivers ev to every live subscriber without blocking.
func (h *Hub) Publish(ev Event) {
	if h == nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients {
		select {
		case <-c.Done():
			continue
		default:
		}

		select {
		case c.Send <- ev:
		default:
			if h.metrics != nil {
				h.metrics.EventDropped()
			}
		}
	}
}

// PublishPost wraps a freshly created post in a post.new event and publishes it.
func (h *Hub) PublishPost(_ context.Context, p blog.Post, author blog.User) {
	now := time.Now().UTC()
	id, err := ids.NewULID(now)
	if err != nil {
		h.log.Warn("feed.event_id.fail", "err", err)
		return
	}
	h.Publish(Event{Type: TypePostNew, ID: id, TS: now, Post: newPostView(p, author)})
}
