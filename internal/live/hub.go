// Package live fans thread events out to whoever is watching the thread.
package live

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/storyverse/internal/observ"
	"go.uber.org/zap"
)

type EventType string

const (
	EventSegmentCreated EventType = "segment.created"
	EventSegmentLiked   EventType = "segment.liked"
	EventCommentAdded   EventType = "comment.added"
	EventThreadStatus   EventType = "thread.status"
	EventMediaReady     EventType = "media.ready"
	EventMediaFailed    EventType = "media.failed"
)

// Event is one change on a thread. Payload is whatever entity changed and
// is serialized as-is to websocket clients.
type Event struct {
	Type     EventType `json:"type"`
	ThreadID uuid.UUID `json:"thread_id"`
	Payload  any       `json:"payload,omitempty"`
	At       time.Time `json:"at"`
}

// Publisher is what producers of events depend on.
type Publisher interface {
	Publish(ev Event)
}

// Discard drops every event. Useful where nobody listens.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(Event) {}

const defaultBuffer = 32

// Hub keeps the subscribers of every thread. Publish never blocks: a
// subscriber whose buffer is full misses the event.
//
// Why drop instead of wait?
//   - Publish runs inside request handlers and media jobs while the hub
//     lock is held. One stalled websocket client would otherwise hold up
//     every contribution to that thread.
//   - Events are notifications, not the data itself. A client that missed
//     one refetches the thread and is back in sync.
type Hub struct {
	mu     sync.Mutex
	subs   map[uuid.UUID]map[*Subscription]struct{}
	buffer int
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		subs:   make(map[uuid.UUID]map[*Subscription]struct{}),
		buffer: defaultBuffer,
		logger: logger,
	}
}

// Subscription receives the events of one thread on C until Close.
type Subscription struct {
	C <-chan Event

	ch       chan Event
	hub      *Hub
	threadID uuid.UUID
	once     sync.Once
}

func (h *Hub) Subscribe(threadID uuid.UUID) *Subscription {
	ch := make(chan Event, h.buffer)
	sub := &Subscription{C: ch, ch: ch, hub: h, threadID: threadID}

	h.mu.Lock()
	set, ok := h.subs[threadID]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[threadID] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()

	observ.LiveSubscribers.Inc()
	return sub
}

// Close unsubscribes and closes C. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		h := s.hub
		h.mu.Lock()
		if set, ok := h.subs[s.threadID]; ok {
			delete(set, s)
			if len(set) == 0 {
				delete(h.subs, s.threadID)
			}
		}
		close(s.ch)
		h.mu.Unlock()

		observ.LiveSubscribers.Dec()
	})
}

func (h *Hub) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[ev.ThreadID] {
		select {
		case sub.ch <- ev:
		default:
			h.logger.Warn("dropping live event for slow subscriber",
				zap.String("type", string(ev.Type)),
				zap.String("thread_id", ev.ThreadID.String()),
			)
		}
	}
}

// Subscribers reports how many streams are open on a thread.
func (h *Hub) Subscribers(threadID uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[threadID])
}

// Close ends every open subscription. Later Subscribe calls still work.
func (h *Hub) Close() {
	h.mu.Lock()
	var all []*Subscription
	for _, set := range h.subs {
		for sub := range set {
			all = append(all, sub)
		}
	}
	h.mu.Unlock()

	for _, sub := range all {
		sub.Close()
	}
}
