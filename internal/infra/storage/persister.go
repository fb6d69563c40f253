package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MRamiBalles/cookie-engine/internal/events"
)

// Persister adapts an EventRepository to events.EventPersister, tagging every
// event with a save slot.
type Persister struct {
	repo    EventRepository
	slot    string
	timeout time.Duration
}

// NewPersister writes events for slot into repo.
func NewPersister(repo EventRepository, slot string) *Persister {
	return &Persister{repo: repo, slot: slot, timeout: 5 * time.Second}
}

// Append stores one event.
func (p *Persister) Append(e events.GameEvent) error {
	payload, err := toMap(e.Payload)
	if err != nil {
		return fmt.Errorf("event %s payload: %w", e.ID, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	return p.repo.Append(ctx, StoredEvent{
		ID:        e.ID,
		Slot:      p.slot,
		Seq:       e.Seq,
		Timestamp: e.Timestamp,
		SimTime:   e.SimTime,
		EventType: string(e.Type),
		ActorID:   e.ActorID,
		TargetID:  e.TargetID,
		Payload:   payload,
	})
}

// toMap flattens a typed payload into its JSON object form.
func toMap(v interface{}) (map[string]interface{}, error) {
	out := map[string]interface{}{}
	if v == nil {
		return out, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
