package catalog

import (
	"math"
	"testing"
	"time"

	"github.com/MRamiBalles/cookie-engine/internal/domain/effect"
	"github.com/MRamiBalles/cookie-engine/internal/domain/modifier"
)

func TestDefaultCatalogValidates(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("default catalog invalid: %v", err)
	}
	p, ok := c.Producer("cursor")
	if !ok || p.BaseCost != 15 || p.BaseOutput != 0.1 {
		t.Errorf("cursor = %+v, %v", p, ok)
	}
}

func TestDefaultIsIndependentCopy(t *testing.T) {
	a := Default()
	a.Producers[0].BaseCost = 1
	if Default().Producers[0].BaseCost != 15 {
		t.Error("Default shares producer slice between calls")
	}
}

func TestGoldenTableNormalizes(t *testing.T) {
	table, err := NewGoldenTable([]GoldenOutcome{
		{Name: "a", Weight: 3, LumpSeconds: 1},
		{Name: "b", Weight: 1, Kind: effect.KindFrenzy, Target: modifier.TargetGlobalProduction, Factor: 7, Duration: time.Second},
	})
	if err != nil {
		t.Fatal(err)
	}
	if p := table.Probability("a"); math.Abs(p-0.75) > 1e-12 {
		t.Errorf("P(a) = %v", p)
	}
	if p := table.Probability("b"); math.Abs(p-0.25) > 1e-12 {
		t.Errorf("P(b) = %v", p)
	}
	cases := map[float64]string{0: "a", 0.5: "a", 0.75: "b", 0.99: "b"}
	for r, want := range cases {
		if got := table.Pick(r).Name; got != want {
			t.Errorf("Pick(%v) = %s, want %s", r, got, want)
		}
	}
}

func TestDefaultGoldenWeightsSumToOne(t *testing.T) {
	table := Default().Golden
	var sum float64
	for _, o := range table.Outcomes() {
		sum += table.Probability(o.Name)
	}
	if math.Abs(sum-1) > 1e-12 {
		t.Errorf("probabilities sum to %v", sum)
	}
	if got := table.Pick(0).Name; got != "frenzy" {
		t.Errorf("Pick(0) = %s", got)
	}
}

func TestGoldenTableRejectsBadOutcomes(t *testing.T) {
	if _, err := NewGoldenTable(nil); err == nil {
		t.Error("empty table accepted")
	}
	if _, err := NewGoldenTable([]GoldenOutcome{{Name: "x", Weight: 1}}); err == nil {
		t.Error("outcome with no buff and no lump sum accepted")
	}
	if _, err := NewGoldenTable([]GoldenOutcome{{Name: "x", Weight: 0, LumpSeconds: 1}}); err == nil {
		t.Error("zero weight accepted")
	}
}

func TestDefaultRandomEvents(t *testing.T) {
	table := Default().Events
	if table.Len() != 4 {
		t.Fatalf("expected 4 random events, got %d", table.Len())
	}
	var sum float64
	for _, ev := range table.Events() {
		sum += table.Probability(ev.Name)
	}
	if math.Abs(sum-1) > 1e-12 {
		t.Errorf("probabilities sum to %v", sum)
	}
	crash, ok := table.Lookup("market_crash")
	if !ok || crash.Target != modifier.TargetProducerCost || crash.Factor != 0.5 || crash.Duration != 5*time.Minute {
		t.Errorf("market crash = %+v", crash)
	}
	if ev, _ := table.Pick(0); !ev.IsContest() {
		t.Errorf("Pick(0) = %+v, want the baking contest", ev)
	}
}

func TestEventTableRejectsBadEvents(t *testing.T) {
	if table, err := NewEventTable(nil); err != nil || table.Len() != 0 {
		t.Fatalf("empty table: %v", err)
	}
	if _, ok := (EventTable{}).Pick(0.5); ok {
		t.Error("empty table picked an event")
	}
	bad := [][]RandomEvent{
		{{Name: "idle", Weight: 1}},
		{{Name: "both", Weight: 1, Contest: time.Second, ContestExponent: 1, Kind: effect.KindTimeWarp,
			Target: modifier.TargetGlobalProduction, Factor: 2, Duration: time.Second}},
		{{Name: "flat", Weight: 1, Contest: time.Second}},
		{{Name: "warp", Weight: 1, Kind: effect.KindTimeWarp, Target: modifier.TargetGlobalProduction, Factor: 0, Duration: time.Second}},
		{{Name: "dup", Weight: 1, Contest: time.Second, ContestExponent: 1}, {Name: "dup", Weight: 1, Contest: time.Second, ContestExponent: 1}},
	}
	for _, events := range bad {
		if _, err := NewEventTable(events); err == nil {
			t.Errorf("accepted %+v", events)
		}
	}
}
