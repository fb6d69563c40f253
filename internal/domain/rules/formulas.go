// Package rules contains the pure calculation logic for game mechanics.
// This package is PURE and must NOT import any infrastructure packages.
package rules

import (
	"math"
	"time"
)

// DefaultGrowthBase is the canonical idle-game geometric cost growth.
const DefaultGrowthBase = 1.15

// ProducerCost is the price of the next unit: baseCost × growthBase^count.
func ProducerCost(baseCost, growthBase float64, count int) float64 {
	return baseCost * math.Pow(growthBase, float64(count))
}

// CumulativeCost is the total spent buying units from..to-1 (to exclusive).
func CumulativeCost(baseCost, growthBase float64, from, to int) float64 {
	total := 0.0
	for k := from; k < to; k++ {
		total += ProducerCost(baseCost, growthBase, k)
	}
	return total
}

// UpgradeCost is the price of a producer upgrade at the given level:
// baseCost × costBase^level.
func UpgradeCost(baseCost, costBase float64, level int) float64 {
	return baseCost * math.Pow(costBase, float64(level))
}

// PrestigeParams holds the parameters of the prestige formula.
type PrestigeParams struct {
	Threshold float64 // lifetime cookies for the first heavenly unit
	Exponent  float64
}

// PrestigeGain computes floor((lifetime / threshold) ^ exponent).
func PrestigeGain(lifetime float64, p PrestigeParams) int64 {
	if lifetime <= 0 || p.Threshold <= 0 {
		return 0
	}
	return int64(math.Floor(math.Pow(lifetime/p.Threshold, p.Exponent)))
}

// OfflineCredit is the lump-sum credited on load for time spent away.
// Negative elapsed time (clock skew) is clamped to zero.
func OfflineCredit(ratePerSecond float64, elapsed time.Duration, efficiency float64) float64 {
	if elapsed <= 0 || ratePerSecond <= 0 || efficiency <= 0 {
		return 0
	}
	return ratePerSecond * elapsed.Seconds() * efficiency
}

// ClampElapsed returns now-then, never negative.
func ClampElapsed(now, then time.Time) time.Duration {
	if then.IsZero() {
		return 0
	}
	d := now.Sub(then)
	if d < 0 {
		return 0
	}
	return d
}

// ResearchPoints is the research point yield of owned buildings over delta.
func ResearchPoints(totalOwned int, perBuildingPerSecond float64, delta time.Duration) float64 {
	if totalOwned <= 0 || delta <= 0 {
		return 0
	}
	return float64(totalOwned) * perBuildingPerSecond * delta.Seconds()
}

// LevelScaled is the factor of a bonus that grows linearly with prestige level:
// 1 + level × perLevel.
func LevelScaled(level int64, perLevel float64) float64 {
	return 1 + float64(level)*perLevel
}
