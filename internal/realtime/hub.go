// Package realtime delivers debounced cost syncs and fan-out change
// notifications for the P&L pipeline.
package realtime

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Update is the notification delivered to every subscriber on a trigger.
type Update struct {
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// Callback receives updates for a subscription.
type Callback func(Update)

// Subscription is the handle returned by Subscribe; required to
// unsubscribe.
type Subscription struct {
	module string
	id     uuid.UUID
}

// Hub is an in-process publish/subscribe registry keyed by module. One hub
// is constructed at startup and injected into consumers; there is no
// package-level instance.
type Hub struct {
	mu      sync.Mutex
	subs    map[string]map[uuid.UUID]Callback
	publish func(Update)
	now     func() time.Time
}

// NewHub constructs an empty hub.
func NewHub() *Hub {
	return &Hub{
		subs: make(map[string]map[uuid.UUID]Callback),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// PublishTo mirrors every triggered update to an external publisher, so
// sibling processes can follow without an in-process subscription. Call
// before serving; not safe to change concurrently with TriggerUpdate.
func (h *Hub) PublishTo(fn func(Update)) {
	h.publish = fn
}

// Subscribe registers a callback under the given module. Multiple
// independent subscribers per module are supported.
func (h *Hub) Subscribe(module string, cb Callback) Subscription {
	sub := Subscription{module: module, id: uuid.New()}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[module] == nil {
		h.subs[module] = make(map[uuid.UUID]Callback)
	}
	h.subs[module][sub.id] = cb
	return sub
}

// Unsubscribe removes a subscription. Removing one that is already gone is
// a no-op.
func (h *Hub) Unsubscribe(sub Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if callbacks, ok := h.subs[sub.module]; ok {
		delete(callbacks, sub.id)
		if len(callbacks) == 0 {
			delete(h.subs, sub.module)
		}
	}
}

// TriggerUpdate fans out {source, timestamp} to every subscriber of every
// module. Callbacks run outside the hub lock.
func (h *Hub) TriggerUpdate(source string) {
	update := Update{Source: source, Timestamp: h.now()}

	h.mu.Lock()
	var callbacks []Callback
	for _, bucket := range h.subs {
		for _, cb := range bucket {
			callbacks = append(callbacks, cb)
		}
	}
	h.mu.Unlock()

	for _, cb := range callbacks {
		cb(update)
	}
	if h.publish != nil {
		h.publish(update)
	}
}
