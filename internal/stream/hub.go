// Package stream pushes incremental run/session state to subscribers as it
// changes. The hub is the push path; Poller synthesizes the same event
// vocabulary from periodic snapshots when no push channel is available.
package stream

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/hamza/scanhub/internal/models"
)

// subscriberBuffer is the per-subscriber channel capacity. A subscriber
// that falls this far behind starts losing non-terminal events rather than
// blocking publishers.
const subscriberBuffer = 256

// Hub fans StatusEvents out to subscribers keyed by run or session ID.
// Events are delivered to each subscriber in publish order, and the
// terminal event for a key is delivered at most once, after which the key's
// channels are closed. The hub performs no authorization — call sites must
// already have checked that the subscriber may view the entity.
type Hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]chan models.StatusEvent
	done   map[string]bool
	log    *logrus.Entry
}

// NewHub returns an empty hub.
func NewHub(log *logrus.Entry) *Hub {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Hub{
		subs: make(map[string]map[int]chan models.StatusEvent),
		done: make(map[string]bool),
		log:  log,
	}
}

// Subscribe returns a channel of events for key and a cancel function the
// caller must invoke on disconnect. The channel is closed after the
// terminal event or on cancel.
func (h *Hub) Subscribe(key string) (<-chan models.StatusEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan models.StatusEvent, subscriberBuffer)

	if h.done[key] {
		// Stream already terminated; hand back a closed channel so the
		// caller falls through to a snapshot fetch.
		close(ch)
		return ch, func() {}
	}

	h.nextID++
	id := h.nextID
	if h.subs[key] == nil {
		h.subs[key] = make(map[int]chan models.StatusEvent)
	}
	h.subs[key][id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[key][id]; ok {
			delete(h.subs[key], id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers ev to every subscriber of key in order. Publishing a
// terminal event closes the key: later events for it are dropped, so a
// terminal event can never be duplicated or followed.
func (h *Hub) Publish(key string, ev models.StatusEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.done[key] {
		return
	}

	for id, ch := range h.subs[key] {
		select {
		case ch <- ev:
		default:
			h.log.WithFields(logrus.Fields{"key": key, "subscriber": id}).
				Warn("dropping event for slow subscriber")
		}
	}

	if ev.Terminal() {
		h.done[key] = true
		for id, ch := range h.subs[key] {
			delete(h.subs[key], id)
			close(ch)
		}
		delete(h.subs, key)
	}
}

// Forget clears terminal bookkeeping for key so its ID can be reused, e.g.
// after the entity is deleted.
func (h *Hub) Forget(key string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.done, key)
}
