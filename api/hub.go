package api

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"todosync/domain"
)

const sessionQueueSize = 64

// Session is one live sync connection bound to a user for its lifetime.
// Events are fanned out through the send queue; the transport drains it.
type Session struct {
	ID     string
	UserID string
	send   chan domain.Event

	closeOnce sync.Once
	done      chan struct{}
}

// NewSession creates a session handle with a bounded send queue.
func NewSession(id, userID string) *Session {
	return &Session{
		ID:     id,
		UserID: userID,
		send:   make(chan domain.Event, sessionQueueSize),
		done:   make(chan struct{}),
	}
}

// Events returns the queue of events to deliver to this session.
func (s *Session) Events() <-chan domain.Event {
	return s.send
}

// Done is closed when the session shuts down.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Close signals the session's transport goroutines to stop. Idempotent. The
// send queue is left open so concurrent publishers never panic.
func (s *Session) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Relay forwards published envelopes to sibling server instances and feeds
// inbound ones back. A nil Relay keeps fan-out within the local process.
type Relay interface {
	Publish(ctx context.Context, env domain.Envelope) error
}

// Hub routes a session's events to every other live session of the same user.
// It owns no task data, only transient routing state.
type Hub struct {
	relay Relay
	log   *log.Logger

	mu       sync.Mutex
	sessions map[string]map[*Session]struct{}
}

// NewHub creates an empty registry. relay may be nil for single-instance use.
func NewHub(relay Relay, logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Hub{
		relay:    relay,
		log:      logger,
		sessions: make(map[string]map[*Session]struct{}),
	}
}

// Register adds a session to its user's group. Callers must have
// authenticated the session before registering it.
func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	group, ok := h.sessions[s.UserID]
	if !ok {
		group = make(map[*Session]struct{})
		h.sessions[s.UserID] = group
	}
	group[s] = struct{}{}
	h.mu.Unlock()
	h.log.Debugf("session %s registered for %s", s.ID, s.UserID)
}

// Unregister removes a session from its group, dropping the group once empty.
// Idempotent.
func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	if group, ok := h.sessions[s.UserID]; ok {
		delete(group, s)
		if len(group) == 0 {
			delete(h.sessions, s.UserID)
		}
	}
	h.mu.Unlock()
	s.Close()
}

// Publish delivers ev to every registered sibling of origin. With a relay
// configured the envelope goes through the relay channel instead, and local
// delivery happens when the subscription loop hands it back, so every server
// instance follows the same path.
func (h *Hub) Publish(ctx context.Context, origin *Session, ev domain.Event) {
	if h.relay != nil {
		env := domain.Envelope{UserID: origin.UserID, Origin: origin.ID, Event: ev}
		if err := h.relay.Publish(ctx, env); err != nil {
			h.log.Errorf("relay publish: %v", err)
		}
		return
	}
	h.Deliver(origin.UserID, origin.ID, ev)
}

// Deliver fans ev out to the user's local sessions, excluding the session
// whose ID matches originID. Delivery is best-effort: a session with a full
// queue misses the event and reconciles on its next connect.
func (h *Hub) Deliver(userID, originID string, ev domain.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.sessions[userID] {
		if s.ID == originID {
			continue
		}
		select {
		case s.send <- ev:
		default:
			h.log.Warnf("session %s queue full, dropping %s event", s.ID, ev.Kind)
		}
	}
}
