package engine

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/MRamiBalles/cookie-engine/internal/domain/catalog"
	"github.com/MRamiBalles/cookie-engine/internal/domain/gameerr"
	"github.com/MRamiBalles/cookie-engine/internal/events"
	"github.com/MRamiBalles/cookie-engine/internal/platform/config"
)

func newEventEngine(t *testing.T, cfg config.Engine) (*Engine, *recorder) {
	t.Helper()
	cat := testCatalog(t)
	cat.Events = catalog.Default().Events
	rec := &recorder{}
	e, err := NewEngine(cat, cfg, WithSink(rec), WithRand(rand.New(rand.NewSource(1))))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e, rec
}

func quietConfig() config.Engine {
	cfg := testConfig()
	cfg.RandomEventsEnabled = false
	return cfg
}

func TestMarketCrashHalvesProducerCost(t *testing.T) {
	cfg := quietConfig()
	e, _ := newEventEngine(t, cfg)

	full, _ := e.Cost("cursor")
	if err := e.TriggerRandomEvent("market_crash"); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if c, _ := e.Cost("cursor"); !approx(c, full/2) {
		t.Fatalf("expected cost %v during the crash, got %v", full/2, c)
	}
	_ = e.Reward("test", full/2)
	p, err := e.PurchaseProducer("cursor")
	if err != nil {
		t.Fatalf("purchase at crash price: %v", err)
	}
	if !approx(p.Cost, full/2) || e.State().Balance > 1e-9 {
		t.Errorf("expected to pay %v, paid %v", full/2, p.Cost)
	}

	_, _ = e.Tick(300 * time.Second)
	if c, _ := e.Cost("cursor"); !approx(c, full*cfg.GrowthBase) {
		t.Errorf("expected the full price back after the crash, got %v", c)
	}
}

func TestRevolutionDoublesRateAndBlocksClicks(t *testing.T) {
	e, rec := newEventEngine(t, quietConfig())
	_ = e.Reward("test", 1)
	_, _ = e.PurchaseProducer("oven")

	if err := e.TriggerRandomEvent("cookie_revolution"); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if r := e.Rate(); !approx(r, 20) {
		t.Errorf("expected rate 20 during the revolution, got %v", r)
	}
	_, err := e.Click()
	var off *gameerr.ClickingDisabledError
	if !errors.As(err, &off) || !gameerr.IsRejected(err) {
		t.Fatalf("expected clicking to be disabled, got %v", err)
	}
	if e.State().TotalClicks != 0 {
		t.Errorf("refused click was counted")
	}
	if rec.count(events.EventTypeRandomEvent) != 1 {
		t.Errorf("expected one random event notification")
	}

	_, _ = e.Tick(120 * time.Second)
	if r := e.Rate(); r > 11 {
		t.Errorf("expected the boost to end, rate %v", r)
	}
	if _, err := e.Click(); err != nil {
		t.Errorf("expected clicks back after the revolution, got %v", err)
	}
}

func TestBakingContestPaysForClicks(t *testing.T) {
	e, rec := newEventEngine(t, quietConfig())
	_ = e.Reward("test", 1)
	_, _ = e.PurchaseProducer("oven")

	if err := e.TriggerRandomEvent("baking_contest"); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	var running *gameerr.ContestRunningError
	if err := e.TriggerRandomEvent("baking_contest"); !errors.As(err, &running) {
		t.Errorf("expected a second contest to be refused, got %v", err)
	}
	for i := 0; i < 4; i++ {
		_, _ = e.Click()
	}

	_, _ = e.Tick(30 * time.Second)
	if rec.count(events.EventTypeContestEnd) != 1 {
		t.Fatalf("expected the contest to end at 30s")
	}
	var got events.ContestPayload
	for _, ev := range rec.events {
		if ev.Type == events.EventTypeContestEnd {
			got = ev.Payload.(events.ContestPayload)
		}
	}
	// 4^1.5 seconds of 10/s
	if got.Clicks != 4 || !approx(got.Prize, 80) {
		t.Errorf("unexpected contest result %+v", got)
	}
	if err := e.TriggerRandomEvent("baking_contest"); err != nil {
		t.Errorf("expected a new contest after the first ended, got %v", err)
	}
}

func TestResetDropsRunningContest(t *testing.T) {
	e, rec := newEventEngine(t, quietConfig())
	_ = e.TriggerRandomEvent("baking_contest")
	if err := e.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	_, _ = e.Tick(time.Minute)
	if rec.count(events.EventTypeContestEnd) != 0 {
		t.Errorf("contest from the discarded game still paid out")
	}
}

func TestUnknownRandomEventRejected(t *testing.T) {
	e, _ := newEventEngine(t, quietConfig())
	err := e.TriggerRandomEvent("dimension_rift")
	var unknown *gameerr.UnknownIDError
	if !errors.As(err, &unknown) {
		t.Errorf("expected unknown id, got %v", err)
	}
}

func TestRandomEventsRolledOnSchedule(t *testing.T) {
	cfg := testConfig()
	cfg.RandomEventsEnabled = true
	cfg.RandomEventCheck = 10 * time.Second
	cfg.RandomEventChance = 1
	e, rec := newEventEngine(t, cfg)

	_, _ = e.Tick(9 * time.Second)
	if rec.count(events.EventTypeRandomEvent) != 0 {
		t.Fatalf("event fired early")
	}
	_, _ = e.Tick(time.Second)
	if rec.count(events.EventTypeRandomEvent) != 1 {
		t.Fatalf("expected an event at 10s")
	}
	var next bool
	for _, p := range e.Pending() {
		if p.Label == "random_event_check" && p.Deadline == 20*time.Second {
			next = true
		}
	}
	if !next {
		t.Errorf("expected the next roll at 20s, got %+v", e.Pending())
	}
}

func TestRandomEventsOnlyWhenEnabled(t *testing.T) {
	cfg := testConfig()
	cfg.RandomEventsEnabled = true
	cfg.RandomEventCheck = time.Second
	cfg.RandomEventChance = 1
	e, rec := newEventEngine(t, cfg)
	cfg.RandomEventsEnabled = false
	quiet, quietRec := newEventEngine(t, cfg)

	for i := 0; i < 5; i++ {
		_, _ = e.Tick(time.Second)
		_, _ = quiet.Tick(time.Second)
	}
	if rec.count(events.EventTypeRandomEvent) == 0 {
		t.Errorf("expected events when enabled")
	}
	if quietRec.count(events.EventTypeRandomEvent) != 0 {
		t.Errorf("expected no events when disabled")
	}
}
