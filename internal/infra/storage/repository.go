// Package storage provides the persistence layer for the game server.
// This package implements the repository pattern to keep the domain pure.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a save slot does not exist.
var ErrNotFound = errors.New("storage: not found")

// StoredEvent mirrors the notification structure for persistence.
// The engine does NOT import this; the Persister adapts between the two.
type StoredEvent struct {
	ID        string                 `json:"id" db:"id"`
	Slot      string                 `json:"slot" db:"slot"`
	Seq       int64                  `json:"seq" db:"seq"`
	Timestamp time.Time              `json:"timestamp" db:"timestamp"`
	SimTime   time.Duration          `json:"sim_time" db:"sim_time_ms"`
	EventType string                 `json:"event_type" db:"event_type"`
	ActorID   string                 `json:"actor_id" db:"actor_id"`
	TargetID  string                 `json:"target_id" db:"target_id"`
	Payload   map[string]interface{} `json:"payload" db:"payload"`
}

// EventRepository defines the interface for event persistence.
type EventRepository interface {
	// Append adds a new event to the immutable ledger.
	Append(ctx context.Context, event StoredEvent) error

	// GetBySlot retrieves every event of a save slot, oldest first.
	GetBySlot(ctx context.Context, slot string) ([]StoredEvent, error)

	// GetByEventType retrieves all events of a specific type, oldest first.
	GetByEventType(ctx context.Context, slot string, eventType string) ([]StoredEvent, error)

	// Since retrieves events recorded after t, oldest first.
	Since(ctx context.Context, slot string, t time.Time) ([]StoredEvent, error)

	// Prune deletes events recorded before t and reports how many went.
	Prune(ctx context.Context, slot string, before time.Time) (int64, error)
}

// SaveRecord is one save slot.
type SaveRecord struct {
	Slot    string    `json:"slot" db:"slot"`
	Data    []byte    `json:"-" db:"data"`
	Version int       `json:"version" db:"version"`
	SavedAt time.Time `json:"saved_at" db:"saved_at"`
}

// SaveRepository stores encoded saves by slot name.
type SaveRepository interface {
	// Put writes data to slot, replacing what was there.
	Put(ctx context.Context, rec SaveRecord) error

	// Get reads a slot. Returns ErrNotFound for an empty slot.
	Get(ctx context.Context, slot string) (*SaveRecord, error)

	// List describes every slot without its data, most recent first.
	List(ctx context.Context) ([]SaveRecord, error)

	// Delete empties a slot.
	Delete(ctx context.Context, slot string) error
}
