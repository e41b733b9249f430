package feed

import (
	"context"
	"sync"
	"time"
)

// subscriberBuffer bounds the pending signals per subscriber. A full buffer
// already holds an invalidation, so further events are dropped for that
// subscriber rather than blocking the hub.
const subscriberBuffer = 16

// Change is a payload-free signal that rows of Table changed.
type Change struct {
	Table string    `json:"table"`
	Op    string    `json:"op"`
	At    time.Time `json:"at"`
}

// Subscription receives changes for one table until closed.
type Subscription struct {
	hub   *Hub
	table string
	ch    chan Change
	once  sync.Once
}

// C returns the channel changes are delivered on. It is closed when the
// subscription is closed or the hub stops.
func (s *Subscription) C() <-chan Change { return s.ch }

// Close unregisters the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		select {
		case s.hub.unregister <- s:
		case <-s.hub.done:
		}
	})
}

// Hub fans change-feed events out to subscribers grouped by table name.
type Hub struct {
	rooms map[string]map[*Subscription]bool

	register   chan *Subscription
	unregister chan *Subscription
	broadcast  chan Change
	done       chan struct{}

	// OnPublish, when set, is called from the hub loop for each delivered change.
	OnPublish func(Change)

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Subscription]bool),
		register:   make(chan *Subscription),
		unregister: make(chan *Subscription),
		broadcast:  make(chan Change, 256),
		done:       make(chan struct{}),
	}
}

// Run is the hub's event loop. It returns when ctx is done, closing every
// remaining subscription.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		h.mu.Lock()
		for table, subs := range h.rooms {
			for sub := range subs {
				close(sub.ch)
			}
			delete(h.rooms, table)
		}
		h.mu.Unlock()
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case sub := <-h.register:
			h.mu.Lock()
			if h.rooms[sub.table] == nil {
				h.rooms[sub.table] = make(map[*Subscription]bool)
			}
			h.rooms[sub.table][sub] = true
			h.mu.Unlock()

		case sub := <-h.unregister:
			h.mu.Lock()
			if subs, ok := h.rooms[sub.table]; ok {
				if _, exists := subs[sub]; exists {
					delete(subs, sub)
					close(sub.ch)
					if len(subs) == 0 {
						delete(h.rooms, sub.table)
					}
				}
			}
			h.mu.Unlock()

		case change := <-h.broadcast:
			h.mu.RLock()
			for sub := range h.rooms[change.Table] {
				select {
				case sub.ch <- change:
				default:
				}
			}
			h.mu.RUnlock()
			if h.OnPublish != nil {
				h.OnPublish(change)
			}
		}
	}
}

// Subscribe registers a subscriber for table. The subscription is closed
// when ctx is done.
func (h *Hub) Subscribe(ctx context.Context, table string) (*Subscription, error) {
	sub := &Subscription{hub: h, table: table, ch: make(chan Change, subscriberBuffer)}
	select {
	case h.register <- sub:
	case <-h.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-h.done:
		}
	}()
	return sub, nil
}

// Publish queues a change for delivery. It never blocks once the hub stopped.
func (h *Hub) Publish(change Change) {
	if change.At.IsZero() {
		change.At = time.Now()
	}
	select {
	case h.broadcast <- change:
	case <-h.done:
	}
}

// Subscribers reports how many subscriptions are open for table.
func (h *Hub) Subscribers(table string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[table])
}
