package engine

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/MRamiBalles/cookie-engine/internal/domain/effect"
	"github.com/MRamiBalles/cookie-engine/internal/domain/gameerr"
	"github.com/MRamiBalles/cookie-engine/internal/domain/modifier"
	"github.com/MRamiBalles/cookie-engine/internal/events"
	"github.com/MRamiBalles/cookie-engine/internal/platform/metrics"
)

// goldenCookie is a clickable spawn that disappears after its lifetime.
type goldenCookie struct {
	id        string
	spawnedAt time.Duration
	expiresAt time.Duration
	despawn   string // scheduler timer id
}

// GoldenView is a live golden cookie.
type GoldenView struct {
	ID               string  `json:"id"`
	RemainingSeconds float64 `json:"remaining_seconds"`
}

// GoldenResult is what a golden cookie click did.
type GoldenResult struct {
	SpawnID string  `json:"spawn_id"`
	Outcome string  `json:"outcome"`
	Amount  float64 `json:"amount,omitempty"` // lump sum credited
}

// scheduleGolden arms the next spawn. The wait is uniform in the configured
// window and shrinks with the golden frequency multiplier. Lock held.
func (e *Engine) scheduleGolden() {
	if !e.cfg.GoldenEnabled || e.spawnTimer != "" {
		return
	}
	window := e.cfg.GoldenMaxInterval - e.cfg.GoldenMinInterval
	wait := e.cfg.GoldenMinInterval
	if window > 0 {
		wait += time.Duration(e.rng.Float64() * float64(window))
	}
	if freq := e.w.stack.Resolve(modifier.TargetGoldenFrequency); freq > 0 {
		wait = time.Duration(float64(wait) / freq)
	}
	e.spawnTimer = e.sched.Schedule(e.clock.Now()+wait, "golden_spawn", func(now time.Duration) {
		e.spawnTimer = ""
		e.spawnGolden(now)
		e.scheduleGolden()
	})
}

func (e *Engine) spawnGolden(now time.Duration) string {
	g := &goldenCookie{id: uuid.NewString(), spawnedAt: now, expiresAt: now + e.cfg.GoldenLifetime}
	g.despawn = e.sched.Schedule(g.expiresAt, "golden_despawn", func(time.Duration) {
		delete(e.spawns, g.id)
		e.emit(events.EventTypeGoldenDespawn, ActorEngine, g.id, nil)
	})
	e.spawns[g.id] = g
	e.emit(events.EventTypeGoldenSpawn, ActorEngine, g.id, events.GoldenPayload{
		SpawnID:         g.id,
		LifetimeSeconds: e.cfg.GoldenLifetime.Seconds(),
	})
	return g.id
}

// clearGolden removes every spawn and the pending spawn timer. Lock held.
func (e *Engine) clearGolden() {
	for id, g := range e.spawns {
		e.sched.Cancel(g.despawn)
		delete(e.spawns, id)
	}
	if e.spawnTimer != "" {
		e.sched.Cancel(e.spawnTimer)
		e.spawnTimer = ""
	}
}

func (e *Engine) goldenViews() []GoldenView {
	now := e.clock.Now()
	out := make([]GoldenView, 0, len(e.spawns))
	for _, g := range e.spawns {
		out = append(out, GoldenView{ID: g.id, RemainingSeconds: (g.expiresAt - now).Seconds()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RemainingSeconds < out[j].RemainingSeconds })
	return out
}

// SpawnGolden places a golden cookie now, outside the random schedule. It
// returns the spawn id.
func (e *Engine) SpawnGolden() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.spawnGolden(e.clock.Now())
}

// ClickGolden consumes a live golden cookie and applies a random outcome:
// either a timed buff or a lump sum worth some seconds of production. A
// spawn can be clicked once; expired or unknown ids are rejected.
func (e *Engine) ClickGolden(spawnID string) (GoldenResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	g, ok := e.spawns[spawnID]
	if !ok {
		return GoldenResult{}, e.done("click golden", &gameerr.UnknownIDError{Kind: "golden cookie", ID: spawnID})
	}
	outcome := e.cat.Golden.Pick(e.rng.Float64())
	res := GoldenResult{SpawnID: spawnID, Outcome: outcome.Name}
	var te effect.TimedEffect
	if outcome.IsBuff() {
		te = outcome.Effect(e.clock.Now())
		if err := te.Validate(); err != nil {
			return GoldenResult{}, e.done("click golden", err)
		}
	} else {
		res.Amount = e.rate() * outcome.LumpSeconds
		if !(res.Amount >= 0) || math.IsInf(res.Amount, 0) {
			return GoldenResult{}, e.done("click golden",
				gameerr.Invariant("golden outcome %s is worth %v", outcome.Name, res.Amount))
		}
	}

	// the outcome is known to apply; only now is the spawn consumed
	delete(e.spawns, spawnID)
	e.sched.Cancel(g.despawn)
	if outcome.IsBuff() {
		if err := e.activate(te, ActorPlayer); err != nil {
			return GoldenResult{}, e.done("click golden", err)
		}
	} else if err := e.w.acct.Credit(res.Amount); err != nil {
		return GoldenResult{}, e.done("click golden", err)
	}
	e.w.acct.RecordGoldenClick()
	metrics.Get().RecordGoldenClick()
	e.emit(events.EventTypeGoldenClick, ActorPlayer, spawnID, events.GoldenPayload{
		SpawnID: spawnID,
		Outcome: outcome.Name,
		Amount:  res.Amount,
	})
	return res, e.done("click golden", nil)
}
