package catalog

import (
	"fmt"
	"time"

	"github.com/MRamiBalles/cookie-engine/internal/domain/effect"
	"github.com/MRamiBalles/cookie-engine/internal/domain/modifier"
)

// RandomEvent is a world event the engine starts on its own now and then.
// It either runs a timed effect or a click contest.
type RandomEvent struct {
	Name   string
	Weight float64

	// Timed effect. Zero Kind means none.
	Kind     effect.Kind
	Target   modifier.Target
	Factor   float64
	Duration time.Duration

	// Clicking is refused while the effect runs.
	DisablesClicks bool

	// Click contest: clicks are counted for Contest, then the prize is
	// clicks^ContestExponent seconds of production.
	Contest         time.Duration
	ContestExponent float64
}

// IsContest reports whether the event is a click contest.
func (r RandomEvent) IsContest() bool { return r.Contest > 0 }

// Effect builds the timed effect for an effect event starting at now.
func (r RandomEvent) Effect(now time.Duration) effect.TimedEffect {
	return effect.TimedEffect{Kind: r.Kind, Target: r.Target, Factor: r.Factor, Start: now, Duration: r.Duration}
}

// EventTable picks random events with normalized probabilities. The zero
// table is empty and never picks.
type EventTable struct {
	events     []RandomEvent
	cumulative []float64
}

// NewEventTable validates events and normalizes their weights.
func NewEventTable(events []RandomEvent) (EventTable, error) {
	if len(events) == 0 {
		return EventTable{}, nil
	}
	weights := make([]float64, len(events))
	names := make(map[string]bool, len(events))
	for i, ev := range events {
		if ev.Name == "" || names[ev.Name] {
			return EventTable{}, fmt.Errorf("random event name %q empty or duplicated", ev.Name)
		}
		names[ev.Name] = true
		if ev.Weight <= 0 {
			return EventTable{}, fmt.Errorf("random event %s: weight must be positive", ev.Name)
		}
		switch {
		case ev.IsContest() && ev.Kind != "":
			return EventTable{}, fmt.Errorf("random event %s: both contest and effect", ev.Name)
		case ev.IsContest():
			if ev.ContestExponent <= 0 {
				return EventTable{}, fmt.Errorf("random event %s: contest exponent must be positive", ev.Name)
			}
		case ev.Kind != "":
			if err := ev.Effect(0).Validate(); err != nil {
				return EventTable{}, fmt.Errorf("random event %s: %w", ev.Name, err)
			}
		default:
			return EventTable{}, fmt.Errorf("random event %s: neither contest nor effect", ev.Name)
		}
		weights[i] = ev.Weight
	}
	return EventTable{
		events:     append([]RandomEvent(nil), events...),
		cumulative: cumulate(weights),
	}, nil
}

// Len is the number of events in the table.
func (t EventTable) Len() int { return len(t.events) }

// Pick maps r in [0,1) to an event. It reports false for an empty table.
func (t EventTable) Pick(r float64) (RandomEvent, bool) {
	if len(t.events) == 0 {
		return RandomEvent{}, false
	}
	return t.events[pick(t.cumulative, r)], true
}

// Lookup finds an event by name.
func (t EventTable) Lookup(name string) (RandomEvent, bool) {
	for _, ev := range t.events {
		if ev.Name == name {
			return ev, true
		}
	}
	return RandomEvent{}, false
}

// Probability returns the normalized probability of event name.
func (t EventTable) Probability(name string) float64 {
	for i, ev := range t.events {
		if ev.Name == name {
			return probability(t.cumulative, i)
		}
	}
	return 0
}

// Events returns a copy of the table entries.
func (t EventTable) Events() []RandomEvent {
	return append([]RandomEvent(nil), t.events...)
}

var defaultRandomEvents = []RandomEvent{
	{Name: "baking_contest", Weight: 0.3, Contest: 30 * time.Second, ContestExponent: 1.5},
	{Name: "market_crash", Weight: 0.2, Kind: effect.KindMarketCrash,
		Target: modifier.TargetProducerCost, Factor: 0.5, Duration: 300 * time.Second},
	{Name: "cookie_revolution", Weight: 0.2, Kind: effect.KindRevolution,
		Target: modifier.TargetGlobalProduction, Factor: 2, Duration: 120 * time.Second, DisablesClicks: true},
	{Name: "time_warp", Weight: 0.15, Kind: effect.KindTimeWarp,
		Target: modifier.TargetGlobalProduction, Factor: 5, Duration: 30 * time.Second},
}
