package engine

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/MRamiBalles/cookie-engine/internal/domain/catalog"
	"github.com/MRamiBalles/cookie-engine/internal/domain/effect"
	"github.com/MRamiBalles/cookie-engine/internal/domain/gameerr"
	"github.com/MRamiBalles/cookie-engine/internal/domain/modifier"
	"github.com/MRamiBalles/cookie-engine/internal/domain/producer"
	"github.com/MRamiBalles/cookie-engine/internal/domain/progression"
	"github.com/MRamiBalles/cookie-engine/internal/events"
	"github.com/MRamiBalles/cookie-engine/internal/platform/config"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	golden, err := catalog.NewGoldenTable([]catalog.GoldenOutcome{
		{Name: "cookie_storm", Weight: 1, LumpSeconds: 30},
	})
	if err != nil {
		t.Fatalf("golden table: %v", err)
	}
	global := func(f float64) modifier.Spec {
		return modifier.Spec{Target: modifier.TargetGlobalProduction, Factor: f}
	}
	return &catalog.Catalog{
		Producers: []producer.Def{
			{ID: "cursor", Name: "Cursor", BaseCost: 15, BaseOutput: 0.1},
			{ID: "oven", Name: "Oven", BaseCost: 1, BaseOutput: 10},
		},
		Progression: progression.Defs{
			Achievements: []progression.AchievementDef{
				{ID: "rookie", Condition: progression.Condition{Metric: progression.MetricLifetimeProduced, Threshold: 100},
					Reward: global(1.01)},
			},
			Research: []progression.ResearchDef{
				{ID: "dough", Cost: 100, Duration: 60 * time.Second, Reward: global(1.5)},
				{ID: "chem", Cost: 500, Duration: 180 * time.Second, Prerequisites: []string{"dough"},
					Reward: modifier.Spec{Target: modifier.TargetClickPower, Factor: 2}},
			},
			Upgrades: []progression.UpgradeDef{
				{ID: "reinforced", Cost: 100,
					Requirement: progression.Condition{Metric: progression.MetricProducerCount, Producer: "cursor", Threshold: 1},
					Effect:      progression.UpgradeEffect{Kind: progression.ProducerBoost, Producer: "cursor", Factor: 2}},
			},
			Heavenly: []progression.HeavenlyDef{
				{ID: "halo", Cost: 1, Kind: progression.GlobalBoost, PerLevel: 0.01},
				{ID: "legacy", Cost: 1, Kind: progression.StartingBonus, Share: 0.5},
			},
		},
		Golden: golden,
	}
}

func testConfig() config.Engine {
	cfg := config.DefaultEngine()
	cfg.GoldenEnabled = false
	cfg.CritChance = 0
	return cfg
}

// recorder collects notifications.
type recorder struct {
	events []events.GameEvent
}

func (r *recorder) Append(e events.GameEvent) { r.events = append(r.events, e) }

func (r *recorder) count(t events.EventType) int {
	n := 0
	for _, e := range r.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

func newTestEngine(t *testing.T, cfg config.Engine, opts ...Option) (*Engine, *recorder) {
	t.Helper()
	rec := &recorder{}
	opts = append([]Option{WithSink(rec), WithRand(rand.New(rand.NewSource(1)))}, opts...)
	e, err := NewEngine(testCatalog(t), cfg, opts...)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e, rec
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-6*math.Max(1, math.Abs(b))
}

func TestTickCreditsProductionAtCurrentRate(t *testing.T) {
	e, rec := newTestEngine(t, testConfig())
	if err := e.Reward("test", 1000); err != nil {
		t.Fatalf("reward: %v", err)
	}
	if _, err := e.PurchaseProducer("oven"); err != nil {
		t.Fatalf("purchase: %v", err)
	}

	rep, err := e.Tick(2 * time.Second)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if rep.Produced != 20 {
		t.Errorf("expected 20 produced, got %v", rep.Produced)
	}
	if got := e.State().Balance; !approx(got, 1019) {
		t.Errorf("expected balance 1019, got %v", got)
	}
	if len(rep.Unlocked) != 1 || rep.Unlocked[0] != "rookie" {
		t.Errorf("expected rookie unlocked, got %v", rep.Unlocked)
	}
	// rookie's reward applies from the next tick on
	if got := e.Rate(); !approx(got, 10.1) {
		t.Errorf("expected rate 10.1, got %v", got)
	}
	if rec.count(events.EventTypeTick) != 1 {
		t.Errorf("expected one TICK event, got %d", rec.count(events.EventTypeTick))
	}
}

func TestNegativeDeltaIsZero(t *testing.T) {
	e, _ := newTestEngine(t, testConfig())
	_ = e.Reward("test", 10)
	_, _ = e.PurchaseProducer("oven")

	rep, err := e.Tick(-5 * time.Second)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if rep.Produced != 0 || e.Now() != 0 {
		t.Errorf("negative delta moved the game: produced %v, now %v", rep.Produced, e.Now())
	}
}

func TestTenCursorPurchases(t *testing.T) {
	e, rec := newTestEngine(t, testConfig())
	_ = e.Reward("test", 1000)

	spent := 0.0
	var last producer.Purchase
	for i := 0; i < 10; i++ {
		p, err := e.PurchaseProducer("cursor")
		if err != nil {
			t.Fatalf("purchase %d: %v", i, err)
		}
		spent += p.Cost
		last = p
	}
	if math.Abs(spent-304.5558) > 1e-3 {
		t.Errorf("expected ~304.5558 spent, got %v", spent)
	}
	if len(last.Milestones) != 1 || last.Milestones[0] != 10 {
		t.Errorf("expected the tenth purchase to cross milestone 10, got %v", last.Milestones)
	}
	if rec.count(events.EventTypeMilestone) != 1 {
		t.Errorf("expected one MILESTONE event, got %d", rec.count(events.EventTypeMilestone))
	}
	// 10 × 0.1 × 1.1
	if got := e.Rate(); !approx(got, 1.1) {
		t.Errorf("expected rate 1.1, got %v", got)
	}
}

func TestPurchaseRejectedLeavesState(t *testing.T) {
	e, rec := newTestEngine(t, testConfig())
	_, err := e.PurchaseProducer("cursor")
	var funds *gameerr.InsufficientFundsError
	if !errors.As(err, &funds) {
		t.Fatalf("expected InsufficientFundsError, got %v", err)
	}
	if _, err := e.PurchaseProducer("nope"); !gameerr.IsRejected(err) {
		t.Errorf("expected rejection for unknown producer, got %v", err)
	}
	st := e.State()
	if st.Balance != 0 || st.Producers[0].Count != 0 {
		t.Errorf("rejected purchase changed state: %+v", st.Producers[0])
	}
	if len(rec.events) != 0 {
		t.Errorf("rejected purchase emitted %d events", len(rec.events))
	}
}

func TestCriticalClick(t *testing.T) {
	cfg := testConfig()
	cfg.CritChance = 1
	e, _ := newTestEngine(t, cfg)

	v, err := e.Click()
	if err != nil {
		t.Fatalf("click: %v", err)
	}
	if v != cfg.BaseClickValue*cfg.CritMultiplier {
		t.Errorf("expected critical click worth %v, got %v", cfg.BaseClickValue*cfg.CritMultiplier, v)
	}
	if e.State().TotalClicks != 1 {
		t.Errorf("click not counted")
	}
}

func TestAchievementAppliedOnce(t *testing.T) {
	e, rec := newTestEngine(t, testConfig())
	_ = e.Reward("test", 500)

	for i := 0; i < 5; i++ {
		if _, err := e.Tick(time.Second); err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
	}
	if rec.count(events.EventTypeUnlock) != 1 {
		t.Errorf("expected one UNLOCK, got %d", rec.count(events.EventTypeUnlock))
	}
	mods := e.State().Modifiers
	if len(mods) != 1 || mods[0].Source != "achievement:rookie" {
		t.Errorf("expected only the rookie reward, got %v", mods)
	}
}

func TestEffectReactivationReplaces(t *testing.T) {
	e, rec := newTestEngine(t, testConfig())
	_ = e.Reward("test", 200)
	_, _ = e.PurchaseProducer("oven")
	// unlock rookie before measuring the base rate
	_, _ = e.Tick(0)
	base := e.Rate()

	frenzy := effect.TimedEffect{Kind: effect.KindFrenzy, Target: modifier.TargetGlobalProduction, Factor: 7, Duration: 100 * time.Second}
	if err := e.ActivateEffect(frenzy); err != nil {
		t.Fatalf("activate: %v", err)
	}
	_, _ = e.Tick(10 * time.Second)
	if err := e.ActivateEffect(frenzy); err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	if got := e.Rate(); !approx(got, base*7) {
		t.Errorf("expected rate %v after reactivation, got %v", base*7, got)
	}

	// restarted at 10s, so still live at 105s
	_, _ = e.Tick(95 * time.Second)
	if len(e.ActiveEffects()) != 1 {
		t.Fatalf("expected frenzy live at 105s")
	}
	_, _ = e.Tick(10 * time.Second)
	if len(e.ActiveEffects()) != 0 {
		t.Errorf("expected frenzy expired at 115s")
	}
	if got := e.Rate(); !approx(got, base) {
		t.Errorf("expected rate back to %v, got %v", base, got)
	}
	if rec.count(events.EventTypeEffectEnd) != 2 {
		t.Errorf("expected 2 EFFECT_END (replaced + expired), got %d", rec.count(events.EventTypeEffectEnd))
	}
}

func TestResearchThroughEngine(t *testing.T) {
	e, rec := newTestEngine(t, testConfig())

	var points *gameerr.InsufficientPointsError
	if err := e.StartResearch("dough"); !errors.As(err, &points) {
		t.Fatalf("expected InsufficientPointsError, got %v", err)
	}
	var prereq *gameerr.PrerequisitesNotMetError
	if err := e.StartResearch("chem"); !errors.As(err, &prereq) {
		t.Fatalf("expected PrerequisitesNotMetError, got %v", err)
	}

	_ = e.Reward("test", 10)
	_, _ = e.PurchaseProducer("oven")
	// one building at 0.1 points/s
	if _, err := e.Tick(1100 * time.Second); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if err := e.StartResearch("dough"); err != nil {
		t.Fatalf("start: %v", err)
	}
	var busy *gameerr.ResearchBusyError
	if err := e.StartResearch("dough"); !errors.As(err, &busy) {
		t.Errorf("expected ResearchBusyError, got %v", err)
	}

	rep, err := e.Tick(60 * time.Second)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if rep.Completed != "dough" {
		t.Errorf("expected dough to complete, got %q", rep.Completed)
	}
	if s, _ := e.ResearchStatus("dough"); s != progression.ResearchCompleted {
		t.Errorf("expected COMPLETED, got %s", s)
	}
	if rec.count(events.EventTypeResearchComplete) != 1 {
		t.Errorf("expected one RESEARCH_COMPLETE event")
	}
}

func TestPrestige(t *testing.T) {
	cfg := testConfig()
	cfg.PrestigeThreshold = 100
	e, rec := newTestEngine(t, cfg)

	gain, err := e.Prestige()
	if err != nil || gain != 0 {
		t.Fatalf("expected no-op prestige on a fresh game, got %d, %v", gain, err)
	}
	if rec.count(events.EventTypePrestige) != 0 {
		t.Errorf("no-op prestige emitted an event")
	}

	_ = e.Reward("test", 400)
	_, _ = e.PurchaseProducer("oven")
	gain, err = e.Prestige()
	if err != nil {
		t.Fatalf("prestige: %v", err)
	}
	if gain != 2 {
		t.Errorf("expected 2 units for 400 lifetime, got %d", gain)
	}
	st := e.State()
	if st.Balance != 0 || st.Producers[1].Count != 0 {
		t.Errorf("run state survived prestige: balance %v, ovens %d", st.Balance, st.Producers[1].Count)
	}
	if st.LifetimeProduced != 400 {
		t.Errorf("lifetime must survive prestige, got %v", st.LifetimeProduced)
	}
	if st.Prestige.HeavenlyUnits != 2 || st.Prestige.TotalResets != 1 {
		t.Errorf("unexpected prestige state %+v", st.Prestige)
	}

	// same lifetime grants nothing more
	if gain, _ := e.Prestige(); gain != 0 {
		t.Errorf("expected repeated prestige to be a no-op, got %d", gain)
	}

	_ = e.Reward("test", 500)
	gain, _ = e.Prestige()
	if gain != 1 {
		t.Errorf("expected 1 more unit at 900 lifetime, got %d", gain)
	}
	if got := e.State().Prestige.HeavenlyUnits; got != 3 {
		t.Errorf("expected units to increase to 3, got %d", got)
	}
}

func TestPrestigeCarriesStartingBonus(t *testing.T) {
	cfg := testConfig()
	cfg.PrestigeThreshold = 100
	e, rec := newTestEngine(t, cfg)
	_ = e.Reward("test", 400)
	if _, err := e.Prestige(); err != nil {
		t.Fatalf("first prestige: %v", err)
	}
	if err := e.PurchaseHeavenlyUpgrade("legacy"); err != nil {
		t.Fatalf("buy legacy: %v", err)
	}
	mods := len(e.State().Modifiers)

	_ = e.Reward("test", 1600)
	gain, err := e.Prestige()
	if err != nil || gain != 2 {
		t.Fatalf("second prestige: gain %d, %v", gain, err)
	}
	st := e.State()
	if st.Balance != 800 || st.LifetimeProduced != 2000 {
		t.Errorf("expected half the balance carried, got balance %v lifetime %v", st.Balance, st.LifetimeProduced)
	}
	if len(st.Modifiers) != mods {
		t.Errorf("starting bonus registered a modifier: %v", st.Modifiers)
	}
	last := rec.events[len(rec.events)-1]
	if p, ok := last.Payload.(events.PrestigePayload); !ok || p.Carried != 800 {
		t.Errorf("prestige event payload = %+v", last.Payload)
	}
}

func TestFailedPrestigeKeepsTheRun(t *testing.T) {
	cfg := testConfig()
	cfg.PrestigeThreshold = 100
	cfg.ChipBonusPerUnit = math.Inf(1)
	e, rec := newTestEngine(t, cfg)
	_ = e.Reward("test", 400)
	_, _ = e.PurchaseProducer("oven")
	before := e.State()

	if _, err := e.Prestige(); err == nil {
		t.Fatal("expected prestige to fail on an unusable chip bonus")
	}
	st := e.State()
	if st.Balance != before.Balance || st.Producers[1].Count != 1 {
		t.Errorf("run state lost: balance %v, ovens %d", st.Balance, st.Producers[1].Count)
	}
	if st.Prestige.TotalResets != 0 || rec.count(events.EventTypePrestige) != 0 {
		t.Errorf("failed prestige was recorded: %+v", st.Prestige)
	}
}

func TestPeakRateOutlivesBuffs(t *testing.T) {
	cfg := testConfig()
	cfg.PrestigeThreshold = 100
	e, _ := newTestEngine(t, cfg, WithWallClock(fixedWall(epoch)))
	_ = e.Reward("test", 10)
	_, _ = e.PurchaseProducer("oven")
	frenzy := effect.TimedEffect{Kind: effect.KindFrenzy, Target: modifier.TargetGlobalProduction, Factor: 7, Duration: 10 * time.Second}
	if err := e.ActivateEffect(frenzy); err != nil {
		t.Fatalf("activate: %v", err)
	}
	_, _ = e.Tick(time.Second)
	_, _ = e.Tick(20 * time.Second)

	if e.Rate() >= 70 {
		t.Fatalf("frenzy should have ended, rate %v", e.Rate())
	}
	if got := e.Snapshot().PeakRate; !approx(got, 70) {
		t.Errorf("peak rate = %v, want 70", got)
	}

	data, err := e.Save()
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	b, _ := newTestEngine(t, cfg, WithWallClock(fixedWall(epoch)))
	if _, err := b.Load(data); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := b.Prestige(); err != nil {
		t.Fatalf("prestige: %v", err)
	}
	if got := b.Snapshot().PeakRate; !approx(got, 70) {
		t.Errorf("peak rate after load and prestige = %v, want 70", got)
	}
}

func TestPrestigeEndsTimedEffects(t *testing.T) {
	cfg := testConfig()
	cfg.PrestigeThreshold = 100
	e, _ := newTestEngine(t, cfg)
	_ = e.Reward("test", 400)
	_ = e.ActivateEffect(effect.TimedEffect{Kind: effect.KindFrenzy, Target: modifier.TargetGlobalProduction, Factor: 7, Duration: time.Minute})

	if _, err := e.Prestige(); err != nil {
		t.Fatalf("prestige: %v", err)
	}
	if len(e.ActiveEffects()) != 0 {
		t.Errorf("expected effects cleared by prestige")
	}
	// chip bonus only: 1 + 2×0.02
	if got := e.State().Modifiers; len(got) != 1 || !approx(got[0].Factor, 1.04) {
		t.Errorf("expected the chip bonus alone, got %v", got)
	}
}

func TestHeavenlyUpgradeSpendsUnits(t *testing.T) {
	cfg := testConfig()
	cfg.PrestigeThreshold = 100
	e, _ := newTestEngine(t, cfg)

	var funds *gameerr.InsufficientFundsError
	if err := e.PurchaseHeavenlyUpgrade("halo"); !errors.As(err, &funds) {
		t.Fatalf("expected InsufficientFundsError without units, got %v", err)
	}
	_ = e.Reward("test", 100)
	if _, err := e.Prestige(); err != nil {
		t.Fatalf("prestige: %v", err)
	}
	if err := e.PurchaseHeavenlyUpgrade("halo"); err != nil {
		t.Fatalf("heavenly: %v", err)
	}
	p := e.State().Prestige
	if p.Available() != 0 || p.HeavenlyUnits != 1 {
		t.Errorf("expected the unit spent but still counted, got %+v", p)
	}
	var owned *gameerr.AlreadyOwnedError
	if err := e.PurchaseHeavenlyUpgrade("halo"); !errors.As(err, &owned) {
		t.Errorf("expected AlreadyOwnedError, got %v", err)
	}
}

func TestGoldenCookieClickedOnce(t *testing.T) {
	e, rec := newTestEngine(t, testConfig())
	_ = e.Reward("test", 10)
	_, _ = e.PurchaseProducer("oven")
	before := e.State().Balance

	id := e.SpawnGolden()
	res, err := e.ClickGolden(id)
	if err != nil {
		t.Fatalf("click golden: %v", err)
	}
	if res.Outcome != "cookie_storm" || res.Amount != 300 {
		t.Errorf("expected a 300 cookie storm, got %+v", res)
	}

	var unknown *gameerr.UnknownIDError
	if _, err := e.ClickGolden(id); !errors.As(err, &unknown) {
		t.Errorf("expected second click rejected, got %v", err)
	}
	st := e.State()
	if !approx(st.Balance, before+300) {
		t.Errorf("expected single credit, balance %v", st.Balance)
	}
	if st.GoldenClicks != 1 || rec.count(events.EventTypeGoldenClick) != 1 {
		t.Errorf("golden click counted %d times", st.GoldenClicks)
	}
}

func TestGoldenCookieSurvivesUnusableOutcome(t *testing.T) {
	cat := testCatalog(t)
	jackpot, err := catalog.NewGoldenTable([]catalog.GoldenOutcome{
		{Name: "jackpot", Weight: 1, LumpSeconds: math.MaxFloat64},
	})
	if err != nil {
		t.Fatalf("golden table: %v", err)
	}
	cat.Golden = jackpot
	e, err := NewEngine(cat, testConfig(), WithRand(rand.New(rand.NewSource(1))))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	_ = e.Reward("test", 10)
	_, _ = e.PurchaseProducer("oven")

	id := e.SpawnGolden()
	if _, err := e.ClickGolden(id); !gameerr.IsInvariant(err) {
		t.Fatalf("expected an overflowing lump sum to be refused, got %v", err)
	}
	st := e.State()
	if len(st.Golden) != 1 || st.Golden[0].ID != id {
		t.Errorf("spawn consumed by a failed click: %+v", st.Golden)
	}
	if st.GoldenClicks != 0 {
		t.Errorf("failed click counted")
	}
}

func TestGoldenCookieDespawns(t *testing.T) {
	cfg := testConfig()
	e, rec := newTestEngine(t, cfg)

	id := e.SpawnGolden()
	if _, err := e.Tick(cfg.GoldenLifetime); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if _, err := e.ClickGolden(id); err == nil {
		t.Errorf("expected an expired golden cookie to be rejected")
	}
	if rec.count(events.EventTypeGoldenDespawn) != 1 {
		t.Errorf("expected one GOLDEN_DESPAWN event")
	}
}

func TestGoldenCookiesSpawnOnSchedule(t *testing.T) {
	cfg := testConfig()
	cfg.GoldenEnabled = true
	cfg.GoldenMinInterval = 10 * time.Second
	cfg.GoldenMaxInterval = 10 * time.Second
	cfg.GoldenLifetime = 5 * time.Second
	e, rec := newTestEngine(t, cfg)

	_, _ = e.Tick(9 * time.Second)
	if len(e.State().Golden) != 0 {
		t.Fatalf("spawned early")
	}
	_, _ = e.Tick(time.Second)
	if len(e.State().Golden) != 1 || rec.count(events.EventTypeGoldenSpawn) != 1 {
		t.Fatalf("expected a spawn at 10s")
	}
	_, _ = e.Tick(5 * time.Second)
	if len(e.State().Golden) != 0 {
		t.Errorf("expected despawn at 15s")
	}
	// next spawn is armed
	pending := e.Pending()
	if len(pending) != 1 || pending[0].Label != "golden_spawn" || pending[0].Deadline != 20*time.Second {
		t.Errorf("expected the next spawn at 20s, got %+v", pending)
	}
	if !e.CancelScheduled(pending[0].ID) {
		t.Errorf("expected cancel to succeed")
	}
	_, _ = e.Tick(10 * time.Second)
	if rec.count(events.EventTypeGoldenSpawn) != 1 {
		t.Errorf("cancelled spawn still fired")
	}
}

func TestRewardRejectsBadInput(t *testing.T) {
	e, _ := newTestEngine(t, testConfig())
	if err := e.Reward("", 10); err == nil {
		t.Errorf("expected empty source rejected")
	}
	if err := e.Reward("minigame", -1); err == nil {
		t.Errorf("expected negative amount rejected")
	}
	if e.State().Balance != 0 {
		t.Errorf("rejected reward credited")
	}
}

func TestRunFor(t *testing.T) {
	e, _ := newTestEngine(t, testConfig())
	n, err := RunFor(e, 10*time.Second, 3*time.Second)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if n != 4 || e.Now() != 10*time.Second {
		t.Errorf("expected 4 ticks to 10s, got %d ticks to %s", n, e.Now())
	}
}

func TestAutopilotBuysAffordable(t *testing.T) {
	e, _ := newTestEngine(t, testConfig())
	_ = e.Reward("test", 20)

	actions := NewAutopilot(e).Step()
	if len(actions) == 0 {
		t.Fatalf("expected purchases")
	}
	// ovens yield far more per cookie than cursors
	if actions[0].Kind != "producer" || actions[0].ID != "oven" {
		t.Errorf("expected an oven first, got %+v", actions[0])
	}
	st := e.State()
	if st.Producers[1].NextCost <= st.Balance {
		t.Errorf("autopilot left an affordable oven: balance %v, cost %v", st.Balance, st.Producers[1].NextCost)
	}
}
