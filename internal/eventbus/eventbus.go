// Package eventbus implements the in-process pub/sub fan-out layer
// (C7): named rooms, per-subscriber bounded delivery, and per-user
// session tracking for targeted force-logout. The hub/register/
// unregister lifecycle is adapted from the corpus's websocket metrics
// collector; room-scoped delivery and session tracking replace its
// flat broadcast-with-filters model.
package eventbus

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/qoffice/dispatcher/internal/models"
)

// Canonical event types (§6.2).
const (
	TypeQueueAdded             = "queue-added"
	TypeNextCalled             = "next-called"
	TypeNoMoreQueues           = "no-more-queues"
	TypeQueueRecalled          = "queue-recalled"
	TypePreviousRecalled       = "previous-recalled"
	TypeQueueSkipped           = "queue-skipped"
	TypeQueueTransferred       = "queue-transferred"
	TypeQueueRequeuedAll       = "queue-requeued-all"
	TypeQueueRequeuedSelected  = "queue-requeued-selected"
	TypeQueueStatusUpdated     = "queue-status-updated"
	TypeServingStatusChanged   = "serving-status-changed"
	TypeForceLogout            = "force-logout"
)

// Room name helpers (§4.7 topology).
func AdminRoom(office models.Office) string { return fmt.Sprintf("admin-%s", office) }

const (
	KioskRoom   = "kiosk"
	FAQRoom     = "admin-shared-faq"
)

func QueueRoom(ticketID string) string { return fmt.Sprintf("queue-%s", ticketID) }

// Event is the structured record delivered to subscribers.
type Event struct {
	Type     string       `json:"type"`
	Office   models.Office `json:"office,omitempty"`
	WindowID string       `json:"windowId,omitempty"`
	Data     any          `json:"data"`
}

const clientSendBuffer = 256

// Subscriber is one connected duplex channel bound into the bus.
type Subscriber struct {
	id     string
	userID string
	send   chan []byte
	rooms  map[string]bool
	mu     sync.Mutex
}

// ID returns the subscriber's connection id.
func (s *Subscriber) ID() string { return s.id }

// Send returns the channel callers (the websocket writePump) read
// outgoing frames from.
func (s *Subscriber) Send() <-chan []byte { return s.send }

func (s *Subscriber) inRoom(room string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rooms[room]
}

func (s *Subscriber) joinRoom(room string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[room] = true
}

func (s *Subscriber) leaveRoom(room string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, room)
}

type publishReq struct {
	room  string
	event Event
}

// Bus is the in-process event bus. It is not durable: events reach
// only subscribers present in a room at emit time.
type Bus struct {
	logger *log.Logger

	mu          sync.RWMutex
	subscribers map[string]*Subscriber   // by connection id
	byUser      map[string]map[string]bool // userID -> set of connection ids

	register   chan *Subscriber
	unregister chan *Subscriber
	publish    chan publishReq

	closeOnce sync.Once
	done      chan struct{}
}

// New builds and starts a Bus. Stop shuts down its goroutine.
func New(logger *log.Logger) *Bus {
	if logger == nil {
		logger = log.Default()
	}
	b := &Bus{
		logger:      logger,
		subscribers: make(map[string]*Subscriber),
		byUser:      make(map[string]map[string]bool),
		register:    make(chan *Subscriber),
		unregister:  make(chan *Subscriber),
		publish:     make(chan publishReq, 1024),
		done:        make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *Bus) run() {
	for {
		select {
		case <-b.done:
			return
		case sub := <-b.register:
			b.mu.Lock()
			b.subscribers[sub.id] = sub
			if sub.userID != "" {
				set, ok := b.byUser[sub.userID]
				if !ok {
					set = make(map[string]bool)
					b.byUser[sub.userID] = set
				}
				set[sub.id] = true
			}
			b.mu.Unlock()
		case sub := <-b.unregister:
			b.mu.Lock()
			if _, ok := b.subscribers[sub.id]; ok {
				delete(b.subscribers, sub.id)
				close(sub.send)
				if sub.userID != "" {
					if set, ok := b.byUser[sub.userID]; ok {
						delete(set, sub.id)
						if len(set) == 0 {
							delete(b.byUser, sub.userID)
						}
					}
				}
			}
			b.mu.Unlock()
		case req := <-b.publish:
			b.deliver(req.room, req.event)
		}
	}
}

func (b *Bus) deliver(room string, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		b.logger.Printf("eventbus: marshal failed for room %s: %v", room, err)
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subscribers {
		if !sub.inRoom(room) {
			continue
		}
		select {
		case sub.send <- payload:
		default:
			b.logger.Printf("eventbus: subscriber %s send buffer full in room %s, dropping", sub.id, room)
		}
	}
}

// Publish emits event to room. Ordering within a room is preserved
// because delivery runs on the bus's single goroutine. Never blocks
// the caller on slow subscribers (bounded, best-effort per §5).
func (b *Bus) Publish(room string, event Event) {
	select {
	case b.publish <- publishReq{room: room, event: event}:
	default:
		b.logger.Printf("eventbus: publish queue full, dropping event %s for room %s", event.Type, room)
	}
}

// Connect registers a new subscriber bound to userID (may be empty for
// anonymous/public connections such as the kiosk display).
func (b *Bus) Connect(id, userID string) *Subscriber {
	sub := &Subscriber{
		id:     id,
		userID: userID,
		send:   make(chan []byte, clientSendBuffer),
		rooms:  make(map[string]bool),
	}
	b.register <- sub
	return sub
}

// Disconnect unregisters a subscriber and closes its send channel.
func (b *Bus) Disconnect(sub *Subscriber) {
	b.unregister <- sub
}

// JoinRoom subscribes sub to room.
func (b *Bus) JoinRoom(sub *Subscriber, room string) { sub.joinRoom(room) }

// LeaveRoom unsubscribes sub from room.
func (b *Bus) LeaveRoom(sub *Subscriber, room string) { sub.leaveRoom(room) }

// ForceLogout publishes a force-logout event to every session of userID.
func (b *Bus) ForceLogout(userID string, reason string) {
	b.mu.RLock()
	ids := make([]string, 0, len(b.byUser[userID]))
	for id := range b.byUser[userID] {
		ids = append(ids, id)
	}
	b.mu.RUnlock()

	event := Event{Type: TypeForceLogout, Data: map[string]string{"reason": reason, "at": time.Now().Format(time.RFC3339)}}
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, id := range ids {
		if sub, ok := b.subscribers[id]; ok {
			select {
			case sub.send <- payload:
			default:
			}
		}
	}
}

// Stop shuts down the bus goroutine; safe to call more than once.
func (b *Bus) Stop() {
	b.closeOnce.Do(func() { close(b.done) })
}
