package session

import (
	"sync"

	"github.com/google/uuid"

	"github.com/salvium/walletcore/internal/storage"
)

// EventKind enumerates the in-process event feed: the scanner/session
// publish, the HTTP/WS daemon layer subscribes and fans out to websocket
// clients.
type EventKind string

const (
	EventOutputReceived EventKind = "output_received"
	EventOutputSpent    EventKind = "output_spent"
	EventReorg          EventKind = "reorg"
	EventSyncProgress   EventKind = "sync_progress"
)

// Progress is the payload of an EventSyncProgress event.
type Progress struct {
	Height    uint64
	TipHeight uint64
}

// ReorgInfo is the payload of an EventReorg event.
type ReorgInfo struct {
	Height             uint64
	BlocksDisconnected int
	BlocksConnected    int
}

// Event is one item on the feed. Exactly one of the payload fields is set,
// matching Kind. CorrelationID lets a websocket subscriber tie an event back
// to the sync pass or pending transfer that produced it, without the daemon
// layer having to thread its own request IDs through the session.
type Event struct {
	Kind          EventKind
	CorrelationID string
	Output        *storage.Output // set for EventOutputReceived/EventOutputSpent
	Progress      *Progress       // set for EventSyncProgress
	Reorg         *ReorgInfo      // set for EventReorg
}

// Events is a simple fan-out broadcaster: every subscriber gets every
// event on its own buffered channel. The HTTP/WS daemon layer's Hub
// subscribes here and rebroadcasts as JSON.
type Events struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

func NewEvents() *Events {
	return &Events{subs: make(map[int]chan Event)}
}

// Subscribe registers a new listener with a bounded buffer; slow
// subscribers drop events rather than block the session. Cancel
// unregisters it.
func (e *Events) Subscribe() (ch <-chan Event, cancel func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.next
	e.next++
	c := make(chan Event, 64)
	e.subs[id] = c
	return c, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if c, ok := e.subs[id]; ok {
			delete(e.subs, id)
			close(c)
		}
	}
}

// Emit publishes ev to every current subscriber, dropping it for any
// subscriber whose buffer is full. Each event is stamped with a fresh
// correlation ID if the caller didn't already set one.
func (e *Events) Emit(ev Event) {
	if ev.CorrelationID == "" {
		ev.CorrelationID = uuid.New().String()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, c := range e.subs {
		select {
		case c <- ev:
		default:
		}
	}
}
