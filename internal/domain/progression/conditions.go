// Package progression drives one-shot unlocks: achievements, the research
// tree, cookie-bought upgrades, heavenly upgrades and prestige bookkeeping.
// This package is PURE and must NOT import any infrastructure packages.
package progression

import (
	"fmt"

	"github.com/MRamiBalles/cookie-engine/internal/domain/modifier"
)

// Snapshot is the read-only view of game state that predicates run against.
type Snapshot struct {
	Balance           float64
	LifetimeProduced  float64
	TotalClicks       int64
	GoldenClicks      int64
	PeakRate          float64 // highest cookies per second ever reached
	ProducerCounts    map[string]int
	ResearchCompleted int
	TotalResets       int64
	HeavenlyUnits     int64
}

// Metric is the closed set of quantities a condition can test.
type Metric string

const (
	MetricLifetimeProduced  Metric = "lifetime_produced"
	MetricTotalClicks       Metric = "total_clicks"
	MetricGoldenClicks      Metric = "golden_clicks"
	MetricPeakRate          Metric = "peak_rate"
	MetricProducerCount     Metric = "producer_count"
	MetricResearchCompleted Metric = "research_completed"
	MetricTotalResets       Metric = "total_resets"
	MetricHeavenlyUnits     Metric = "heavenly_units"
)

// Condition is a threshold predicate: Metric >= Threshold. Producer names the
// producer for MetricProducerCount.
type Condition struct {
	Metric    Metric
	Producer  string
	Threshold float64
}

// Met evaluates the condition. It is a pure function of s.
func (c Condition) Met(s Snapshot) bool {
	switch c.Metric {
	case MetricLifetimeProduced:
		return s.LifetimeProduced >= c.Threshold
	case MetricTotalClicks:
		return float64(s.TotalClicks) >= c.Threshold
	case MetricGoldenClicks:
		return float64(s.GoldenClicks) >= c.Threshold
	case MetricPeakRate:
		return s.PeakRate >= c.Threshold
	case MetricProducerCount:
		return float64(s.ProducerCounts[c.Producer]) >= c.Threshold
	case MetricResearchCompleted:
		return float64(s.ResearchCompleted) >= c.Threshold
	case MetricTotalResets:
		return float64(s.TotalResets) >= c.Threshold
	case MetricHeavenlyUnits:
		return float64(s.HeavenlyUnits) >= c.Threshold
	default:
		return false
	}
}

// Validate rejects metrics outside the closed set.
func (c Condition) Validate() error {
	switch c.Metric {
	case MetricLifetimeProduced, MetricTotalClicks, MetricGoldenClicks, MetricPeakRate,
		MetricResearchCompleted, MetricTotalResets, MetricHeavenlyUnits:
		return nil
	case MetricProducerCount:
		if c.Producer == "" {
			return fmt.Errorf("producer_count condition needs a producer")
		}
		return nil
	default:
		return fmt.Errorf("unknown metric %q", c.Metric)
	}
}

// UpgradeKind is the closed set of upgrade effects.
type UpgradeKind string

const (
	ProducerBoost  UpgradeKind = "producer_boost"
	ClickBoost     UpgradeKind = "click_boost"
	GlobalBoost    UpgradeKind = "global_boost"
	FrequencyBoost UpgradeKind = "frequency_boost"

	// StartingBonus carries part of the balance over a prestige reset. It is
	// heavenly only and registers no modifier.
	StartingBonus UpgradeKind = "starting_bonus"
)

// UpgradeEffect is the data form of an upgrade's reward.
type UpgradeEffect struct {
	Kind     UpgradeKind
	Producer string // ProducerBoost only
	Factor   float64
}

// Target maps the effect kind to the modifier target it scales.
func (u UpgradeEffect) Target() (modifier.Target, error) {
	switch u.Kind {
	case ProducerBoost:
		if u.Producer == "" {
			return "", fmt.Errorf("producer boost without producer")
		}
		return modifier.ProducerTarget(u.Producer), nil
	case ClickBoost:
		return modifier.TargetClickPower, nil
	case GlobalBoost:
		return modifier.TargetGlobalProduction, nil
	case FrequencyBoost:
		return modifier.TargetGoldenFrequency, nil
	default:
		return "", fmt.Errorf("unknown upgrade kind %q", u.Kind)
	}
}

// Spec converts the effect into a modifier spec.
func (u UpgradeEffect) Spec() (modifier.Spec, error) {
	target, err := u.Target()
	if err != nil {
		return modifier.Spec{}, err
	}
	return modifier.Spec{Target: target, Factor: u.Factor}, nil
}
