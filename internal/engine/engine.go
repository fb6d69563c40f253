package engine

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/MRamiBalles/cookie-engine/internal/domain/account"
	"github.com/MRamiBalles/cookie-engine/internal/domain/catalog"
	"github.com/MRamiBalles/cookie-engine/internal/domain/effect"
	"github.com/MRamiBalles/cookie-engine/internal/domain/gameerr"
	"github.com/MRamiBalles/cookie-engine/internal/domain/modifier"
	"github.com/MRamiBalles/cookie-engine/internal/domain/producer"
	"github.com/MRamiBalles/cookie-engine/internal/domain/progression"
	"github.com/MRamiBalles/cookie-engine/internal/domain/rules"
	"github.com/MRamiBalles/cookie-engine/internal/events"
	"github.com/MRamiBalles/cookie-engine/internal/platform/config"
	"github.com/MRamiBalles/cookie-engine/internal/platform/logger"
	"github.com/MRamiBalles/cookie-engine/internal/platform/metrics"
)

// Actor ids carried on events.
const (
	ActorPlayer = "player"
	ActorEngine = "engine"
)

// Engine is the central orchestrator. Every exported method takes the engine
// lock, so ticks, commands, scheduled callbacks and snapshots never overlap.
type Engine struct {
	mu sync.Mutex

	cat  *catalog.Catalog
	cfg  config.Engine
	log  *logger.Logger
	sink events.Sink
	rng  *rand.Rand

	clock *Clock
	sched *Scheduler
	w     *world

	spawns     map[string]*goldenCookie
	spawnTimer string
	eventTimer string
	contest    *contest
	tickCount  int64
}

// world is everything a save restores. Load builds a new world and swaps it
// in only when it is complete.
type world struct {
	acct    *account.Account
	stack   *modifier.Stack
	effects *effect.Registry
	ledger  *producer.Ledger
	prog    *progression.Engine

	peakRate float64 // survives prestige
}

// Option configures an Engine.
type Option func(*Engine)

// WithSink sends notifications to s.
func WithSink(s events.Sink) Option {
	return func(e *Engine) { e.sink = s }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithRand sets the random source used for crits, golden cookie timing and
// outcomes.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rng = r }
}

// WithWallClock sets the real-time source used for save stamps and offline
// catch-up.
func WithWallClock(now func() time.Time) Option {
	return func(e *Engine) { e.clock = NewClock(now) }
}

// NewEngine builds an engine in the fresh-game state.
func NewEngine(cat *catalog.Catalog, cfg config.Engine, opts ...Option) (*Engine, error) {
	if cat == nil {
		cat = catalog.Default()
	}
	if err := cat.Validate(); err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		cat:    cat,
		cfg:    cfg,
		clock:  NewClock(nil),
		sched:  NewScheduler(),
		spawns: make(map[string]*goldenCookie),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logger.Discard()
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	w, err := e.newWorld()
	if err != nil {
		return nil, err
	}
	e.w = w
	e.scheduleGolden()
	e.scheduleRandomEvent()
	return e, nil
}

func (e *Engine) ledgerParams() producer.Params {
	return producer.Params{
		GrowthBase:        e.cfg.GrowthBase,
		Milestones:        append([]int(nil), e.cfg.Milestones...),
		MilestoneStep:     e.cfg.MilestoneStep,
		UpgradeMultiplier: e.cfg.UpgradeMultiplier,
		UpgradeCostBase:   e.cfg.UpgradeCostBase,
	}
}

func (e *Engine) prestigeParams() rules.PrestigeParams {
	return rules.PrestigeParams{Threshold: e.cfg.PrestigeThreshold, Exponent: e.cfg.PrestigeExponent}
}

func (e *Engine) newWorld() (*world, error) {
	ledger, err := producer.NewLedger(e.cat.Producers, e.ledgerParams())
	if err != nil {
		return nil, err
	}
	prog, err := progression.New(e.cat.Progression)
	if err != nil {
		return nil, err
	}
	stack := modifier.NewStack()
	return &world{
		acct:    account.New(),
		stack:   stack,
		effects: effect.NewRegistry(stack, e.onEffectEnd),
		ledger:  ledger,
		prog:    prog,
	}, nil
}

func (e *Engine) onEffectEnd(te effect.TimedEffect) {
	e.emit(events.EventTypeEffectEnd, ActorEngine, string(te.Kind), events.EffectPayload{
		Target: string(te.Target),
		Factor: te.Factor,
	})
}

// emit appends a notification. Must be called with the lock held.
func (e *Engine) emit(t events.EventType, actor, target string, payload interface{}) {
	if e.sink == nil {
		return
	}
	e.sink.Append(events.GameEvent{
		Timestamp: e.clock.Wall(),
		SimTime:   e.clock.Now(),
		Type:      t,
		ActorID:   actor,
		TargetID:  target,
		Payload:   payload,
	})
}

// done records a command outcome and logs anything that is not a plain
// rejection.
func (e *Engine) done(cmd string, err error) error {
	rejected := gameerr.IsRejected(err)
	metrics.Get().RecordCommand(err, rejected)
	if err != nil && !rejected {
		e.log.Errorf("%s failed: %v", cmd, err)
	}
	return err
}

// rate is production per second after every modifier. Lock held.
func (e *Engine) rate() float64 {
	w := e.w
	scaled := w.ledger.ScaledOutput(func(id string) float64 {
		return w.stack.Resolve(modifier.ProducerTarget(id))
	})
	return scaled * w.stack.Resolve(modifier.TargetGlobalProduction)
}

// costScale multiplies producer prices, below 1 during a market crash. Lock
// held.
func (e *Engine) costScale() float64 {
	return e.w.stack.Resolve(modifier.TargetProducerCost)
}

// clickValue is the non-critical value of one click. Lock held.
func (e *Engine) clickValue() float64 {
	return e.cfg.BaseClickValue * e.w.stack.Resolve(modifier.TargetClickPower)
}

// snapshot is the read-only view progression predicates run on. It raises
// the peak rate first so rate conditions stay met once reached. Lock held.
func (e *Engine) snapshot() progression.Snapshot {
	w := e.w
	if r := e.rate(); r > w.peakRate {
		w.peakRate = r
	}
	counts := make(map[string]int)
	for _, p := range w.ledger.All() {
		counts[p.ID] = p.Count
	}
	p := w.prog.Prestige()
	return progression.Snapshot{
		Balance:           w.acct.Balance(),
		LifetimeProduced:  w.acct.LifetimeProduced(),
		TotalClicks:       w.acct.TotalClicks(),
		GoldenClicks:      w.acct.GoldenClicks(),
		PeakRate:          w.peakRate,
		ProducerCounts:    counts,
		ResearchCompleted: len(w.prog.CompletedIDs()),
		TotalResets:       p.TotalResets,
		HeavenlyUnits:     p.HeavenlyUnits,
	}
}

// ---------------------------------------------------------------------------
// Commands
// ---------------------------------------------------------------------------

// Click credits one manual click and returns the amount credited.
func (e *Engine) Click() (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if k, off := e.clicksDisabled(); off {
		return 0, e.done("click", &gameerr.ClickingDisabledError{Effect: string(k)})
	}
	value := e.clickValue()
	crit := e.cfg.CritChance > 0 && e.rng.Float64() < e.cfg.CritChance
	if crit {
		value *= e.cfg.CritMultiplier
	}
	if err := e.w.acct.Credit(value); err != nil {
		return 0, e.done("click", err)
	}
	e.w.acct.RecordClick()
	return value, e.done("click", nil)
}

// PurchaseProducer buys one unit of producer id.
func (e *Engine) PurchaseProducer(id string) (producer.Purchase, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, err := e.w.ledger.PurchaseScaled(id, e.w.acct, e.costScale())
	if err != nil {
		return producer.Purchase{}, e.done("purchase", err)
	}
	e.emit(events.EventTypePurchase, ActorPlayer, id, events.PurchasePayload{Cost: p.Cost, Count: p.Count})
	if len(p.Milestones) > 0 {
		st, _ := e.w.ledger.Get(id)
		for _, m := range p.Milestones {
			e.emit(events.EventTypeMilestone, ActorEngine, id, events.MilestonePayload{
				Threshold: m, Efficiency: st.Efficiency, Level: st.Level,
			})
		}
	}
	return p, e.done("purchase", nil)
}

// UpgradeProducer doubles the efficiency of producer id for its upgrade cost.
func (e *Engine) UpgradeProducer(id string) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cost, err := e.w.ledger.Upgrade(id, e.w.acct)
	if err != nil {
		return 0, e.done("upgrade producer", err)
	}
	st, _ := e.w.ledger.Get(id)
	e.emit(events.EventTypeUpgrade, ActorPlayer, id, events.PurchasePayload{
		Cost: cost, Count: st.Count, Level: st.Level, Efficiency: st.Efficiency,
	})
	return cost, e.done("upgrade producer", nil)
}

// PurchaseUpgrade buys the one-shot cookie upgrade id.
func (e *Engine) PurchaseUpgrade(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	u, err := e.w.prog.PurchaseUpgrade(id, e.snapshot(), e.w.acct, e.w.stack)
	if err != nil {
		return e.done("purchase upgrade", err)
	}
	e.emit(events.EventTypePurchase, ActorPlayer, "upgrade:"+id, events.PurchasePayload{Cost: u.Cost, Count: 1})
	return e.done("purchase upgrade", nil)
}

// PurchaseHeavenlyUpgrade spends heavenly units on upgrade id.
func (e *Engine) PurchaseHeavenlyUpgrade(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	h, err := e.w.prog.PurchaseHeavenly(id, e.w.stack)
	if err != nil {
		return e.done("purchase heavenly upgrade", err)
	}
	e.emit(events.EventTypePurchase, ActorPlayer, "heavenly:"+id, events.PurchasePayload{Cost: float64(h.Cost), Count: 1})
	return e.done("purchase heavenly upgrade", nil)
}

// StartResearch begins research node id.
func (e *Engine) StartResearch(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.w.prog.StartResearch(id); err != nil {
		return e.done("start research", err)
	}
	e.emit(events.EventTypeResearchStart, ActorPlayer, id, nil)
	return e.done("start research", nil)
}

// Prestige resets the run in exchange for heavenly units. It returns the
// units gained; zero means nothing happened. Units already granted for the
// same lifetime production are not granted again.
func (e *Engine) Prestige() (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	w := e.w
	total := rules.PrestigeGain(w.acct.LifetimeProduced(), e.prestigeParams())
	gain := total - w.prog.Prestige().HeavenlyUnits
	if gain <= 0 {
		return 0, nil
	}

	carried := w.acct.Balance() * w.prog.StartingShare()
	// ApplyPrestige is the only step that can fail and it changes nothing
	// when it does
	if err := w.prog.ApplyPrestige(gain, e.cfg.ChipBonusPerUnit, w.stack); err != nil {
		return 0, e.done("prestige", err)
	}
	w.effects.CancelAll()
	e.clearGolden()
	w.acct.ResetBalance(carried)
	w.ledger.ResetForPrestige()
	e.scheduleGolden()

	p := w.prog.Prestige()
	e.emit(events.EventTypePrestige, ActorPlayer, "", events.PrestigePayload{
		Gain: gain, HeavenlyUnits: p.HeavenlyUnits, TotalResets: p.TotalResets, Carried: carried,
	})
	metrics.Get().RecordPrestige()
	e.log.Infof("prestige #%d: +%d heavenly units (%d total)", p.TotalResets, gain, p.HeavenlyUnits)
	return gain, e.done("prestige", nil)
}

// ActivateEffect starts a timed effect now, replacing any live effect of the
// same kind. The effect's Start is set to the engine clock.
func (e *Engine) ActivateEffect(te effect.TimedEffect) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.done("activate effect", e.activate(te, ActorPlayer))
}

func (e *Engine) activate(te effect.TimedEffect, actor string) error {
	te.Start = e.clock.Now()
	replaced, err := e.w.effects.Activate(te)
	if err != nil {
		return err
	}
	e.emit(events.EventTypeEffectStart, actor, string(te.Kind), events.EffectPayload{
		Target:          string(te.Target),
		Factor:          te.Factor,
		DurationSeconds: te.Duration.Seconds(),
		Replaced:        replaced,
	})
	metrics.Get().RecordEffect()
	return nil
}

// CancelEffect ends the live effect of kind k early.
func (e *Engine) CancelEffect(k effect.Kind) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.w.effects.Cancel(k)
}

// Reward credits a lump sum from an external source such as a minigame.
func (e *Engine) Reward(source string, amount float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if source == "" || !(amount > 0) {
		return e.done("reward", &gameerr.UnknownIDError{Kind: "reward", ID: fmt.Sprintf("%s:%v", source, amount)})
	}
	if err := e.w.acct.Credit(amount); err != nil {
		return e.done("reward", err)
	}
	e.emit(events.EventTypeReward, source, "", events.RewardPayload{Source: source, Amount: amount})
	return e.done("reward", nil)
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

// ProducerView is a producer as shown to a client.
type ProducerView struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Count       int     `json:"count"`
	Efficiency  float64 `json:"efficiency"`
	Level       int     `json:"level"`
	Output      float64 `json:"output"`
	NextCost    float64 `json:"next_cost"`
	UpgradeCost float64 `json:"upgrade_cost"`
}

// EffectView is a live timed effect.
type EffectView struct {
	Kind             effect.Kind `json:"kind"`
	Target           string      `json:"target"`
	Factor           float64     `json:"factor"`
	RemainingSeconds float64     `json:"remaining_seconds"`
}

// State is a point-in-time view of the whole game.
type State struct {
	SimTime          time.Duration             `json:"sim_time"`
	Balance          float64                   `json:"balance"`
	LifetimeProduced float64                   `json:"lifetime_produced"`
	TotalClicks      int64                     `json:"total_clicks"`
	GoldenClicks     int64                     `json:"golden_clicks"`
	Rate             float64                   `json:"rate"`
	ClickValue       float64                   `json:"click_value"`
	Producers        []ProducerView            `json:"producers"`
	Effects          []EffectView              `json:"effects"`
	Achievements     []string                  `json:"achievements"`
	Research         ResearchView              `json:"research"`
	Upgrades         []string                  `json:"upgrades"`
	Heavenly         []string                  `json:"heavenly_upgrades"`
	Prestige         progression.PrestigeState `json:"prestige"`
	PrestigeGain     int64                     `json:"prestige_gain"`
	Golden           []GoldenView              `json:"golden"`
	Modifiers        []modifier.Modifier       `json:"modifiers"`
}

// ResearchView is the research tree state.
type ResearchView struct {
	Completed       []string `json:"completed"`
	Active          string   `json:"active,omitempty"`
	ProgressSeconds float64  `json:"progress_seconds,omitempty"`
	DurationSeconds float64  `json:"duration_seconds,omitempty"`
	Points          float64  `json:"points"`
}

// State returns a snapshot of the game for display.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	w := e.w
	rate := e.rate()
	s := State{
		SimTime:          e.clock.Now(),
		Balance:          w.acct.Balance(),
		LifetimeProduced: w.acct.LifetimeProduced(),
		TotalClicks:      w.acct.TotalClicks(),
		GoldenClicks:     w.acct.GoldenClicks(),
		Rate:             rate,
		ClickValue:       e.clickValue(),
		Achievements:     w.prog.UnlockedIDs(),
		Upgrades:         w.prog.OwnedUpgrades(),
		Heavenly:         w.prog.AscendedIDs(),
		Prestige:         w.prog.Prestige(),
		Modifiers:        w.stack.Modifiers(),
		Golden:           e.goldenViews(),
	}
	s.PrestigeGain = rules.PrestigeGain(w.acct.LifetimeProduced(), e.prestigeParams()) - s.Prestige.HeavenlyUnits
	if s.PrestigeGain < 0 {
		s.PrestigeGain = 0
	}

	for _, p := range w.ledger.All() {
		cost, _ := w.ledger.ScaledCost(p.ID, e.costScale())
		up, _ := w.ledger.UpgradeCost(p.ID)
		s.Producers = append(s.Producers, ProducerView{
			ID: p.ID, Name: p.Name, Count: p.Count, Efficiency: p.Efficiency, Level: p.Level,
			Output: p.Output(), NextCost: cost, UpgradeCost: up,
		})
	}
	s.Effects = e.activeEffects()

	s.Research = ResearchView{Completed: w.prog.CompletedIDs(), Points: w.prog.Points()}
	if ip, ok := w.prog.Active(); ok {
		s.Research.Active = ip.ID
		s.Research.ProgressSeconds = ip.Progress.Seconds()
		for _, r := range w.prog.Defs().Research {
			if r.ID == ip.ID {
				s.Research.DurationSeconds = r.Duration.Seconds()
			}
		}
	}
	return s
}

func (e *Engine) activeEffects() []EffectView {
	var out []EffectView
	for _, a := range e.w.effects.ListActive(e.clock.Now()) {
		out = append(out, EffectView{
			Kind: a.Kind, Target: string(a.Target), Factor: a.Factor,
			RemainingSeconds: a.Remaining.Seconds(),
		})
	}
	return out
}

// ActiveEffects lists live timed effects with their remaining time.
func (e *Engine) ActiveEffects() []EffectView {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.activeEffects()
}

// Cost is the price of the next unit of producer id, discounts included.
func (e *Engine) Cost(id string) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.w.ledger.ScaledCost(id, e.costScale())
}

// Rate is the current production per second.
func (e *Engine) Rate() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rate()
}

// ClickValue is the non-critical value of one click.
func (e *Engine) ClickValue() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clickValue()
}

// ResearchStatus reports the status of research node id.
func (e *Engine) ResearchStatus(id string) (progression.ResearchStatus, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.w.prog.Status(id)
}

// Now is the engine's simulation time.
func (e *Engine) Now() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clock.Now()
}

// Pending lists scheduled timers.
func (e *Engine) Pending() []Timer {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sched.Pending()
}

// CancelScheduled removes a pending timer. It reports false if the timer
// already fired or never existed.
func (e *Engine) CancelScheduled(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch {
	case id == e.spawnTimer:
		e.spawnTimer = ""
	case id == e.eventTimer:
		e.eventTimer = ""
	case e.contest != nil && id == e.contest.timer:
		e.contest = nil
	}
	return e.sched.Cancel(id)
}

// Catalog returns the static game data.
func (e *Engine) Catalog() *catalog.Catalog { return e.cat }
