package engine

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Timer is a pending one-shot callback.
type Timer struct {
	ID       string        `json:"id"`
	Label    string        `json:"label"`
	Deadline time.Duration `json:"deadline"`

	seq uint64
	fn  func(now time.Duration)
}

// Scheduler holds one-shot timers on simulation time. It has no goroutines:
// the engine runs due timers from inside Tick, so a timer can never fire
// concurrently with a tick or a command.
type Scheduler struct {
	timers  map[string]*Timer
	nextSeq uint64
}

// NewScheduler returns an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{timers: make(map[string]*Timer)}
}

// Schedule registers fn to run once simulation time reaches deadline and
// returns the timer id.
func (s *Scheduler) Schedule(deadline time.Duration, label string, fn func(now time.Duration)) string {
	s.nextSeq++
	t := &Timer{ID: uuid.NewString(), Label: label, Deadline: deadline, seq: s.nextSeq, fn: fn}
	s.timers[t.ID] = t
	return t.ID
}

// Cancel removes a pending timer. Returns false if it already ran or never existed.
func (s *Scheduler) Cancel(id string) bool {
	if _, ok := s.timers[id]; !ok {
		return false
	}
	delete(s.timers, id)
	return true
}

// RunDue fires every timer with deadline <= now, earliest first, ties in
// scheduling order. Timers scheduled by a callback for a deadline <= now run
// in the same call. Returns the number fired.
func (s *Scheduler) RunDue(now time.Duration) int {
	fired := 0
	for {
		due := s.due(now)
		if len(due) == 0 {
			return fired
		}
		for _, t := range due {
			// an earlier callback may have cancelled it
			if _, ok := s.timers[t.ID]; !ok {
				continue
			}
			delete(s.timers, t.ID)
			t.fn(now)
			fired++
		}
	}
}

func (s *Scheduler) due(now time.Duration) []*Timer {
	var due []*Timer
	for _, t := range s.timers {
		if t.Deadline <= now {
			due = append(due, t)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].Deadline != due[j].Deadline {
			return due[i].Deadline < due[j].Deadline
		}
		return due[i].seq < due[j].seq
	})
	return due
}

// Pending lists pending timers by deadline.
func (s *Scheduler) Pending() []Timer {
	out := make([]Timer, 0, len(s.timers))
	for _, t := range s.timers {
		out = append(out, Timer{ID: t.ID, Label: t.Label, Deadline: t.Deadline, seq: t.seq})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Deadline != out[j].Deadline {
			return out[i].Deadline < out[j].Deadline
		}
		return out[i].seq < out[j].seq
	})
	return out
}

// Len is the number of pending timers.
func (s *Scheduler) Len() int { return len(s.timers) }

// Clear drops every pending timer.
func (s *Scheduler) Clear() {
	s.timers = make(map[string]*Timer)
}
