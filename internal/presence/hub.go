// Package presence tracks how many clients are connected right now.
//
// The count lives in a single process; running several server instances
// gives each its own independent counter.
package presence

import (
	"sync"

	"github.com/crawlerlog/internal/metrics"
)

const subscriberBuffer = 16

// Update is published to every subscriber whenever the count changes.
type Update struct {
	ActiveUsers int `json:"active_users"`
}

// Subscription receives updates until it is disconnected.
type Subscription struct {
	ch chan Update
}

// Updates returns the receive side of the subscription.
// The channel is closed once the subscription is disconnected.
func (s *Subscription) Updates() <-chan Update {
	return s.ch
}

// Hub 持有在线人数与订阅者集合，两者由同一把锁保护。
type Hub struct {
	mu          sync.Mutex
	count       int
	subscribers map[*Subscription]struct{}
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{subscribers: make(map[*Subscription]struct{})}
}

// Connect registers a new client and broadcasts the new count to everyone,
// the new client included.
func (h *Hub) Connect() (*Subscription, int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub := &Subscription{ch: make(chan Update, subscriberBuffer)}
	h.subscribers[sub] = struct{}{}
	h.count++
	h.broadcastLocked()
	return sub, h.count
}

// Disconnect removes a client and broadcasts the new count to the rest.
// Disconnecting an unknown or already removed subscription is a no-op.
func (h *Hub) Disconnect(sub *Subscription) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sub == nil {
		return h.count
	}
	if _, ok := h.subscribers[sub]; !ok {
		return h.count
	}
	delete(h.subscribers, sub)
	close(sub.ch)
	if h.count > 0 {
		h.count--
	}
	h.broadcastLocked()
	return h.count
}

// Count returns the current number of connected clients
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

func (h *Hub) broadcastLocked() {
	metrics.PresenceActive.Set(float64(h.count))

	update := Update{ActiveUsers: h.count}
	for sub := range h.subscribers {
		select {
		case sub.ch <- update:
		default:
			// buffer full: drop the oldest pending update so the latest count wins
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- update:
			default:
			}
		}
	}
}
