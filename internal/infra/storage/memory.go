package storage

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryEventRepository keeps events in process. Used by tests and headless
// simulations.
type MemoryEventRepository struct {
	mu     sync.RWMutex
	events []StoredEvent
}

func NewMemoryEventRepository() *MemoryEventRepository {
	return &MemoryEventRepository{}
}

func (r *MemoryEventRepository) Append(_ context.Context, event StoredEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *MemoryEventRepository) filter(keep func(StoredEvent) bool) []StoredEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []StoredEvent
	for _, e := range r.events {
		if keep(e) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].Seq < out[j].Seq
	})
	return out
}

func (r *MemoryEventRepository) GetBySlot(_ context.Context, slot string) ([]StoredEvent, error) {
	return r.filter(func(e StoredEvent) bool { return e.Slot == slot }), nil
}

func (r *MemoryEventRepository) GetByEventType(_ context.Context, slot string, eventType string) ([]StoredEvent, error) {
	return r.filter(func(e StoredEvent) bool { return e.Slot == slot && e.EventType == eventType }), nil
}

func (r *MemoryEventRepository) Since(_ context.Context, slot string, t time.Time) ([]StoredEvent, error) {
	return r.filter(func(e StoredEvent) bool { return e.Slot == slot && e.Timestamp.After(t) }), nil
}

func (r *MemoryEventRepository) Prune(_ context.Context, slot string, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.events[:0]
	var n int64
	for _, e := range r.events {
		if e.Slot == slot && e.Timestamp.Before(before) {
			n++
			continue
		}
		kept = append(kept, e)
	}
	r.events = kept
	return n, nil
}

// MemorySaveRepository keeps save slots in process.
type MemorySaveRepository struct {
	mu    sync.RWMutex
	slots map[string]SaveRecord
}

func NewMemorySaveRepository() *MemorySaveRepository {
	return &MemorySaveRepository{slots: make(map[string]SaveRecord)}
}

func (r *MemorySaveRepository) Put(_ context.Context, rec SaveRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec.Data = append([]byte(nil), rec.Data...)
	r.slots[rec.Slot] = rec
	return nil
}

func (r *MemorySaveRepository) Get(_ context.Context, slot string) (*SaveRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.slots[slot]
	if !ok {
		return nil, ErrNotFound
	}
	rec.Data = append([]byte(nil), rec.Data...)
	return &rec, nil
}

func (r *MemorySaveRepository) List(_ context.Context) ([]SaveRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]SaveRecord, 0, len(r.slots))
	for _, rec := range r.slots {
		rec.Data = nil
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SavedAt.After(out[j].SavedAt) })
	return out, nil
}

func (r *MemorySaveRepository) Delete(_ context.Context, slot string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.slots, slot)
	return nil
}
