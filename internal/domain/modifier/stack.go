// Package modifier implements the ModifierStack: permanent multiplicative
// contributions keyed by (target, source) plus transient contributions owned
// by timed effects.
// This package is PURE and must NOT import any infrastructure packages.
package modifier

import (
	"math"
	"strings"

	"github.com/MRamiBalles/cookie-engine/internal/domain/gameerr"
)

// Target names the quantity a modifier scales.
type Target string

const (
	TargetGlobalProduction Target = "GLOBAL_PRODUCTION"
	TargetClickPower       Target = "CLICK_POWER"
	TargetGoldenFrequency  Target = "GOLDEN_FREQUENCY"
	TargetProducerCost     Target = "PRODUCER_COST" // scales the price of producer units

	producerPrefix = "PRODUCER:"
)

// ProducerTarget scales the output of a single producer type.
func ProducerTarget(id string) Target {
	return Target(producerPrefix + id)
}

// ProducerID returns the producer id of a producer target.
func (t Target) ProducerID() (string, bool) {
	if !strings.HasPrefix(string(t), producerPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(string(t), producerPrefix)
	return id, id != ""
}

// Valid reports whether t is one of the closed set of targets.
func (t Target) Valid() bool {
	switch t {
	case TargetGlobalProduction, TargetClickPower, TargetGoldenFrequency, TargetProducerCost:
		return true
	}
	_, ok := t.ProducerID()
	return ok
}

// Tier decides whether a modifier survives a prestige reset.
type Tier int8

const (
	TierRun      Tier = iota // cleared by prestige
	TierPrestige             // kept across prestige
)

// Source prefixes. Achievement rewards, heavenly upgrades and the chip bonus
// are prestige-tier; everything else belongs to the current run.
const (
	SourceAchievement = "achievement:"
	SourceHeavenly    = "heavenly:"
	SourcePrestige    = "prestige:"
	SourceUpgrade     = "upgrade:"
	SourceResearch    = "research:"
)

// TierOf derives the tier of a source from its prefix.
func TierOf(source string) Tier {
	switch {
	case strings.HasPrefix(source, SourceAchievement),
		strings.HasPrefix(source, SourceHeavenly),
		strings.HasPrefix(source, SourcePrestige):
		return TierPrestige
	default:
		return TierRun
	}
}

// Spec is a reward described as data: scale Target by Factor.
type Spec struct {
	Target Target  `json:"target" yaml:"target"`
	Factor float64 `json:"factor" yaml:"factor"`
}

// Modifier is a registered permanent contribution.
type Modifier struct {
	Target Target  `json:"target"`
	Factor float64 `json:"factor"`
	Source string  `json:"source"`
}

// Tier returns the modifier's reset tier.
func (m Modifier) Tier() Tier { return TierOf(m.Source) }

type key struct {
	target Target
	source string
}

type transient struct {
	handle uint64
	target Target
	factor float64
}

// Stack is the ModifierStack. The zero value is not usable; call NewStack.
type Stack struct {
	permanent  []Modifier
	index      map[key]struct{}
	transients []transient
	nextHandle uint64
}

// NewStack returns an empty stack.
func NewStack() *Stack {
	return &Stack{index: make(map[key]struct{})}
}

// Register adds a permanent contribution. Registering the same source twice
// for the same target fails with DuplicateSourceError and changes nothing.
func (s *Stack) Register(target Target, factor float64, source string) error {
	if !target.Valid() {
		return gameerr.Invariant("modifier target %q is not valid", target)
	}
	if source == "" {
		return gameerr.Invariant("modifier for %q has no source", target)
	}
	if !validFactor(factor) {
		return gameerr.Invariant("modifier %q has factor %v", source, factor)
	}
	k := key{target: target, source: source}
	if _, dup := s.index[k]; dup {
		return &gameerr.DuplicateSourceError{Target: string(target), Source: source}
	}
	s.index[k] = struct{}{}
	s.permanent = append(s.permanent, Modifier{Target: target, Factor: factor, Source: source})
	return nil
}

// Has reports whether source is registered for target.
func (s *Stack) Has(target Target, source string) bool {
	_, ok := s.index[key{target: target, source: source}]
	return ok
}

// HasSource reports whether source is registered for any target.
func (s *Stack) HasSource(source string) bool {
	for _, m := range s.permanent {
		if m.Source == source {
			return true
		}
	}
	return false
}

// Resolve multiplies 1.0 by every permanent factor for target, in
// registration order, then by every active transient factor, in activation
// order. It never mutates the stack.
func (s *Stack) Resolve(target Target) float64 {
	v := 1.0
	for _, m := range s.permanent {
		if m.Target == target {
			v *= m.Factor
		}
	}
	for _, tr := range s.transients {
		if tr.target == target {
			v *= tr.factor
		}
	}
	return v
}

// ResolvePermanent is Resolve without transient contributions.
func (s *Stack) ResolvePermanent(target Target) float64 {
	v := 1.0
	for _, m := range s.permanent {
		if m.Target == target {
			v *= m.Factor
		}
	}
	return v
}

// Modifiers returns a copy of the permanent modifiers in registration order.
func (s *Stack) Modifiers() []Modifier {
	out := make([]Modifier, len(s.permanent))
	copy(out, s.permanent)
	return out
}

// Len is the number of permanent modifiers.
func (s *Stack) Len() int { return len(s.permanent) }

// ApplyTransient adds a temporary contribution and returns the function that
// removes it. The returned function reports whether it removed anything, so a
// second call is a no-op returning false.
func (s *Stack) ApplyTransient(target Target, factor float64) (func() bool, error) {
	if !target.Valid() {
		return nil, gameerr.Invariant("transient target %q is not valid", target)
	}
	if !validFactor(factor) {
		return nil, gameerr.Invariant("transient factor %v is not valid", factor)
	}
	s.nextHandle++
	h := s.nextHandle
	s.transients = append(s.transients, transient{handle: h, target: target, factor: factor})
	return func() bool { return s.removeTransient(h) }, nil
}

func (s *Stack) removeTransient(h uint64) bool {
	for i, tr := range s.transients {
		if tr.handle == h {
			s.transients = append(s.transients[:i], s.transients[i+1:]...)
			return true
		}
	}
	return false
}

// TransientCount is the number of live transient contributions.
func (s *Stack) TransientCount() int { return len(s.transients) }

// Retain drops every permanent modifier for which keep returns false,
// preserving the relative order of the survivors.
func (s *Stack) Retain(keep func(Modifier) bool) {
	kept := s.permanent[:0]
	for _, m := range s.permanent {
		if keep(m) {
			kept = append(kept, m)
			continue
		}
		delete(s.index, key{target: m.Target, source: m.Source})
	}
	s.permanent = kept
}

func validFactor(f float64) bool {
	return f > 0 && !math.IsInf(f, 0) && !math.IsNaN(f)
}
