package catalog

import (
	"fmt"
	"sort"
	"time"

	"github.com/MRamiBalles/cookie-engine/internal/domain/effect"
	"github.com/MRamiBalles/cookie-engine/internal/domain/modifier"
)

// GoldenOutcome is what clicking a golden cookie does.
type GoldenOutcome struct {
	Name   string
	Weight float64 // relative; the table normalizes

	// Timed buff. Zero Kind means no buff.
	Kind     effect.Kind
	Target   modifier.Target
	Factor   float64
	Duration time.Duration

	// Lump sum worth LumpSeconds of current production.
	LumpSeconds float64
}

// IsBuff reports whether the outcome activates a timed effect.
func (o GoldenOutcome) IsBuff() bool { return o.Kind != "" }

// Effect builds the timed effect for a buff outcome starting at now.
func (o GoldenOutcome) Effect(now time.Duration) effect.TimedEffect {
	return effect.TimedEffect{Kind: o.Kind, Target: o.Target, Factor: o.Factor, Start: now, Duration: o.Duration}
}

// GoldenTable picks outcomes with explicitly normalized probabilities.
type GoldenTable struct {
	outcomes   []GoldenOutcome
	cumulative []float64 // normalized, last entry is exactly 1
}

// NewGoldenTable normalizes weights so they sum to one.
func NewGoldenTable(outcomes []GoldenOutcome) (GoldenTable, error) {
	if len(outcomes) == 0 {
		return GoldenTable{}, fmt.Errorf("golden table is empty")
	}
	weights := make([]float64, len(outcomes))
	for i, o := range outcomes {
		if o.Weight <= 0 {
			return GoldenTable{}, fmt.Errorf("golden outcome %s: weight must be positive", o.Name)
		}
		if o.IsBuff() {
			if err := o.Effect(0).Validate(); err != nil {
				return GoldenTable{}, fmt.Errorf("golden outcome %s: invalid buff: %w", o.Name, err)
			}
		} else if o.LumpSeconds <= 0 {
			return GoldenTable{}, fmt.Errorf("golden outcome %s: neither buff nor lump sum", o.Name)
		}
		weights[i] = o.Weight
	}
	return GoldenTable{
		outcomes:   append([]GoldenOutcome(nil), outcomes...),
		cumulative: cumulate(weights),
	}, nil
}

// Pick maps r in [0,1) to an outcome.
func (t GoldenTable) Pick(r float64) GoldenOutcome {
	return t.outcomes[pick(t.cumulative, r)]
}

// cumulate turns positive weights into normalized cumulative bounds. The
// last bound is pinned to exactly 1.
func cumulate(weights []float64) []float64 {
	var total float64
	for _, w := range weights {
		total += w
	}
	out := make([]float64, len(weights))
	var acc float64
	for i, w := range weights {
		acc += w / total
		out[i] = acc
	}
	out[len(out)-1] = 1
	return out
}

// pick maps r in [0,1) to an index of cumulative.
func pick(cumulative []float64, r float64) int {
	i := sort.SearchFloat64s(cumulative, r)
	// SearchFloat64s returns the first index with cumulative >= r; a draw that
	// lands exactly on a boundary belongs to the next bucket.
	if i < len(cumulative) && cumulative[i] == r {
		i++
	}
	if i >= len(cumulative) {
		i = len(cumulative) - 1
	}
	return i
}

func probability(cumulative []float64, i int) float64 {
	if i == 0 {
		return cumulative[0]
	}
	return cumulative[i] - cumulative[i-1]
}

// Probability returns the normalized probability of outcome name.
func (t GoldenTable) Probability(name string) float64 {
	for i, o := range t.outcomes {
		if o.Name == name {
			return probability(t.cumulative, i)
		}
	}
	return 0
}

// Outcomes returns a copy of the table entries.
func (t GoldenTable) Outcomes() []GoldenOutcome {
	return append([]GoldenOutcome(nil), t.outcomes...)
}
