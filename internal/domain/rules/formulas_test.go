package rules

import (
	"math"
	"testing"
	"time"
)

func TestProducerCostGeometric(t *testing.T) {
	for n := 0; n < 50; n++ {
		got := ProducerCost(15, DefaultGrowthBase, n)
		want := 15 * math.Pow(1.15, float64(n))
		if math.Abs(got-want) > 1e-9*want {
			t.Fatalf("cost after %d purchases = %v, want %v", n, got, want)
		}
	}
}

func TestCumulativeCostTenCursors(t *testing.T) {
	got := CumulativeCost(15, DefaultGrowthBase, 0, 10)
	if math.Abs(got-304.5557) > 0.01 {
		t.Errorf("cumulative cost of 10 units = %.4f, want ~304.56", got)
	}
}

func TestPrestigeGain(t *testing.T) {
	p := PrestigeParams{Threshold: 1e12, Exponent: 0.5}

	if g := PrestigeGain(5e11, p); g != 0 {
		t.Errorf("gain below threshold = %d, want 0", g)
	}
	if g := PrestigeGain(1e12, p); g != 1 {
		t.Errorf("gain at threshold = %d, want 1", g)
	}
	if g := PrestigeGain(1e14, p); g != 10 {
		t.Errorf("gain at 100x threshold = %d, want 10", g)
	}
	if g := PrestigeGain(-1, p); g != 0 {
		t.Errorf("gain for negative lifetime = %d, want 0", g)
	}
}

func TestOfflineCredit(t *testing.T) {
	if got := OfflineCredit(10, 100*time.Second, 0.5); got != 500 {
		t.Errorf("offline credit = %v, want 500", got)
	}
	if got := OfflineCredit(10, -time.Hour, 0.5); got != 0 {
		t.Errorf("offline credit for negative elapsed = %v, want 0", got)
	}
}

func TestClampElapsed(t *testing.T) {
	now := time.Unix(1000, 0)
	if d := ClampElapsed(now, now.Add(time.Minute)); d != 0 {
		t.Errorf("future save should clamp to 0, got %v", d)
	}
	if d := ClampElapsed(now, time.Time{}); d != 0 {
		t.Errorf("zero timestamp should give 0, got %v", d)
	}
	if d := ClampElapsed(now, now.Add(-time.Minute)); d != time.Minute {
		t.Errorf("elapsed = %v, want 1m", d)
	}
}

func TestResearchPoints(t *testing.T) {
	if got := ResearchPoints(20, 0.1, 2*time.Second); math.Abs(got-4) > 1e-12 {
		t.Errorf("research points = %v, want 4", got)
	}
}
