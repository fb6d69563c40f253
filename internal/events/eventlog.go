// Package events provides the notification log for the engine: an
// append-only, bounded record of every change the engine reports, with an
// optional durable persister and live listeners.
package events

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MRamiBalles/cookie-engine/internal/platform/metrics"
)

// EventType defines the category of a game event.
type EventType string

const (
	EventTypeTick             EventType = "TICK"
	EventTypeUnlock           EventType = "UNLOCK"
	EventTypeResearchStart    EventType = "RESEARCH_START"
	EventTypeResearchComplete EventType = "RESEARCH_COMPLETE"
	EventTypePrestige         EventType = "PRESTIGE"
	EventTypeEffectStart      EventType = "EFFECT_START"
	EventTypeEffectEnd        EventType = "EFFECT_END"
	EventTypePurchase         EventType = "PURCHASE"
	EventTypeUpgrade          EventType = "UPGRADE"
	EventTypeMilestone        EventType = "MILESTONE"
	EventTypeGoldenSpawn      EventType = "GOLDEN_SPAWN"
	EventTypeGoldenDespawn    EventType = "GOLDEN_DESPAWN"
	EventTypeGoldenClick      EventType = "GOLDEN_CLICK"
	EventTypeReward           EventType = "REWARD"
	EventTypeOfflineCredit    EventType = "OFFLINE_CREDIT"
	EventTypeLoad             EventType = "LOAD"
	EventTypeRandomEvent      EventType = "RANDOM_EVENT"
	EventTypeContestEnd       EventType = "CONTEST_END"
)

// GameEvent represents an immutable record of something the engine did.
type GameEvent struct {
	ID        string        `json:"id"`
	Seq       int64         `json:"seq"`
	Timestamp time.Time     `json:"timestamp"`
	SimTime   time.Duration `json:"sim_time"` // engine clock at emission
	Type      EventType     `json:"type"`
	ActorID   string        `json:"actor_id"`  // player, engine, or an external source
	TargetID  string        `json:"target_id"` // producer, achievement, node, effect kind
	Payload   interface{}   `json:"payload"`
}

// Sink receives engine notifications.
type Sink interface {
	Append(event GameEvent)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(GameEvent)

// Append calls f.
func (f SinkFunc) Append(e GameEvent) { f(e) }

// EventPersister defines how an event is durably stored.
type EventPersister interface {
	Append(event GameEvent) error
}

// ErrDropped is reported to metrics when the persist queue is full.
var ErrDropped = errors.New("events: persist queue full, event dropped")

// DefaultRetention is the in-memory history kept when none is configured.
const DefaultRetention = 1000

// EventLog is the in-memory append-only log of game events. Only the most
// recent events are kept in memory. Ticks get a sequence number and reach
// listeners but are neither retained nor persisted.
type EventLog struct {
	mu        sync.RWMutex
	events    []GameEvent
	retention int
	nextSeq   int64
	listeners []func(GameEvent)

	persister EventPersister
	queue     chan GameEvent
	done      chan struct{}
	closeOnce sync.Once
}

// NewEventLog creates a new event log with an optional persister. Persisted
// writes happen on a single background goroutine, in append order.
func NewEventLog(persister EventPersister, retention int) *EventLog {
	if retention <= 0 {
		retention = DefaultRetention
	}
	el := &EventLog{
		events:    make([]GameEvent, 0, retention),
		retention: retention,
		persister: persister,
	}
	if persister != nil {
		el.queue = make(chan GameEvent, 1024)
		el.done = make(chan struct{})
		go el.writeLoop()
	}
	return el
}

// Subscribe registers fn to be called synchronously for each appended event.
func (el *EventLog) Subscribe(fn func(GameEvent)) {
	el.mu.Lock()
	defer el.mu.Unlock()
	el.listeners = append(el.listeners, fn)
}

// Append adds a new event to the log, assigning its id, sequence number and
// timestamp if unset. Events are immutable once appended.
func (el *EventLog) Append(event GameEvent) {
	el.mu.Lock()
	el.nextSeq++
	event.Seq = el.nextSeq
	if event.ID == "" {
		event.ID = GenerateEventID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Type != EventTypeTick {
		if len(el.events) == el.retention {
			copy(el.events, el.events[1:])
			el.events = el.events[:len(el.events)-1]
		}
		el.events = append(el.events, event)
	}
	listeners := el.listeners

	if el.queue != nil && event.Type != EventTypeTick {
		select {
		case el.queue <- event:
		default:
			metrics.Get().RecordEventWrite(0, ErrDropped)
		}
	}
	el.mu.Unlock()

	for _, fn := range listeners {
		fn(event)
	}
}

func (el *EventLog) writeLoop() {
	defer close(el.done)
	for e := range el.queue {
		start := time.Now()
		err := el.persister.Append(e)
		metrics.Get().RecordEventWrite(time.Since(start), err)
	}
}

// Close flushes pending persisted writes and stops the writer.
func (el *EventLog) Close() {
	el.closeOnce.Do(func() {
		el.mu.Lock()
		if el.queue == nil {
			el.mu.Unlock()
			return
		}
		close(el.queue)
		el.queue = nil
		el.mu.Unlock()
		<-el.done
	})
}

// Since returns retained events with Seq > seq, oldest first.
func (el *EventLog) Since(seq int64) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []GameEvent
	for _, e := range el.events {
		if e.Seq > seq {
			result = append(result, e)
		}
	}
	return result
}

// ByType returns up to limit of the most recent events of type t, oldest
// first. An empty t matches every type; limit <= 0 means no limit.
func (el *EventLog) ByType(t EventType, limit int) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []GameEvent
	for i := len(el.events) - 1; i >= 0; i-- {
		e := el.events[i]
		if t != "" && e.Type != t {
			continue
		}
		result = append(result, e)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}
	return result
}

// LastSeq is the sequence number of the latest event.
func (el *EventLog) LastSeq() int64 {
	el.mu.RLock()
	defer el.mu.RUnlock()
	return el.nextSeq
}

// Replay returns a copy of the retained history.
func (el *EventLog) Replay() []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()
	return append([]GameEvent(nil), el.events...)
}

// GenerateEventID creates a unique event identifier.
func GenerateEventID() string {
	return uuid.NewString()
}
