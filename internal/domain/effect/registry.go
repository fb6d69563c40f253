// Package effect manages timed buffs: at most one live instance per kind,
// replaced (never stacked) on re-activation, reversed exactly once.
// This package is PURE and must NOT import any infrastructure packages.
package effect

import (
	"math"
	"sort"
	"time"

	"github.com/MRamiBalles/cookie-engine/internal/domain/gameerr"
	"github.com/MRamiBalles/cookie-engine/internal/domain/modifier"
)

// Kind identifies a timed effect. The set is closed.
type Kind string

const (
	// golden cookie buffs
	KindFrenzy        Kind = "frenzy"
	KindClickFrenzy   Kind = "click_frenzy"
	KindDragonHarvest Kind = "dragon_harvest"

	// random events
	KindRevolution  Kind = "cookie_revolution"
	KindTimeWarp    Kind = "time_warp"
	KindMarketCrash Kind = "market_crash"
)

// Kinds lists every timed effect kind.
func Kinds() []Kind {
	return []Kind{KindFrenzy, KindClickFrenzy, KindDragonHarvest, KindRevolution, KindTimeWarp, KindMarketCrash}
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	for _, known := range Kinds() {
		if k == known {
			return true
		}
	}
	return false
}

// TimedEffect is a temporary multiplicative contribution. Start is measured
// on the engine's monotonic clock.
type TimedEffect struct {
	Kind     Kind            `json:"kind"`
	Target   modifier.Target `json:"target"`
	Factor   float64         `json:"factor"`
	Start    time.Duration   `json:"start"`
	Duration time.Duration   `json:"duration"`
}

// Validate checks everything Activate needs before it touches any state.
func (e TimedEffect) Validate() error {
	if !e.Kind.Valid() {
		return &gameerr.UnknownIDError{Kind: "effect", ID: string(e.Kind)}
	}
	if e.Duration <= 0 {
		return gameerr.Invariant("effect %s has non-positive duration %v", e.Kind, e.Duration)
	}
	if !e.Target.Valid() || !(e.Factor > 0) || math.IsInf(e.Factor, 0) {
		return gameerr.Invariant("effect %s has target %q factor %v", e.Kind, e.Target, e.Factor)
	}
	return nil
}

// Deadline is the instant the effect expires.
func (e TimedEffect) Deadline() time.Duration { return e.Start + e.Duration }

// Active describes a live effect for display.
type Active struct {
	Kind      Kind
	Target    modifier.Target
	Factor    float64
	Remaining time.Duration
}

type instance struct {
	effect  TimedEffect
	reverse func() bool
	active  bool
}

// Registry is the TimedEffectRegistry.
type Registry struct {
	stack *modifier.Stack
	live  map[Kind]*instance
	onEnd func(TimedEffect)
}

// NewRegistry binds a registry to the stack it contributes to. onEnd is
// called exactly once for every effect that stops being active, whether it
// expired, was replaced or was cancelled.
func NewRegistry(stack *modifier.Stack, onEnd func(TimedEffect)) *Registry {
	return &Registry{stack: stack, live: make(map[Kind]*instance), onEnd: onEnd}
}

// Activate applies e, first reversing any live effect of the same kind.
// It reports whether an older instance was replaced.
func (r *Registry) Activate(e TimedEffect) (bool, error) {
	if err := e.Validate(); err != nil {
		return false, err
	}

	replaced := false
	if old, ok := r.live[e.Kind]; ok {
		replaced = r.end(old)
	}

	reverse, err := r.stack.ApplyTransient(e.Target, e.Factor)
	if err != nil {
		return replaced, err
	}
	r.live[e.Kind] = &instance{effect: e, reverse: reverse, active: true}
	return replaced, nil
}

// Tick expires every effect whose deadline is at or before now. Expiry
// happens in deadline order; calling Tick again for the same instant is a
// no-op.
func (r *Registry) Tick(now time.Duration) []TimedEffect {
	var due []*instance
	for _, inst := range r.live {
		if now >= inst.effect.Deadline() {
			due = append(due, inst)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		di, dj := due[i].effect.Deadline(), due[j].effect.Deadline()
		if di != dj {
			return di < dj
		}
		return due[i].effect.Kind < due[j].effect.Kind
	})

	ended := make([]TimedEffect, 0, len(due))
	for _, inst := range due {
		if r.end(inst) {
			ended = append(ended, inst.effect)
		}
	}
	return ended
}

// Cancel ends the live effect of kind k through the same path as expiry.
func (r *Registry) Cancel(k Kind) bool {
	inst, ok := r.live[k]
	if !ok {
		return false
	}
	return r.end(inst)
}

// CancelAll ends every live effect.
func (r *Registry) CancelAll() []TimedEffect {
	return r.Tick(maxDuration)
}

// IsActive reports whether an effect of kind k is live.
func (r *Registry) IsActive(k Kind) bool {
	_, ok := r.live[k]
	return ok
}

// ListActive returns the live effects ordered by remaining time, shortest first.
func (r *Registry) ListActive(now time.Duration) []Active {
	out := make([]Active, 0, len(r.live))
	for _, inst := range r.live {
		remaining := inst.effect.Deadline() - now
		if remaining < 0 {
			remaining = 0
		}
		out = append(out, Active{
			Kind:      inst.effect.Kind,
			Target:    inst.effect.Target,
			Factor:    inst.effect.Factor,
			Remaining: remaining,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Remaining != out[j].Remaining {
			return out[i].Remaining < out[j].Remaining
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}

// end is the single exit path for an instance. The active flag lives on the
// instance so a stale pointer can never reverse twice.
func (r *Registry) end(inst *instance) bool {
	if !inst.active {
		return false
	}
	inst.active = false
	inst.reverse()
	if cur, ok := r.live[inst.effect.Kind]; ok && cur == inst {
		delete(r.live, inst.effect.Kind)
	}
	if r.onEnd != nil {
		r.onEnd(inst.effect)
	}
	return true
}

const maxDuration = time.Duration(1<<63 - 1)
