package engine

import (
	"time"

	"github.com/MRamiBalles/cookie-engine/internal/domain/gameerr"
	"github.com/MRamiBalles/cookie-engine/internal/domain/rules"
	"github.com/MRamiBalles/cookie-engine/internal/events"
	"github.com/MRamiBalles/cookie-engine/internal/platform/metrics"
)

// TickReport summarizes one simulation step.
type TickReport struct {
	Now       time.Duration
	Produced  float64
	Rate      float64
	Expired   int      // timed effects that ended
	Fired     int      // scheduled callbacks that ran
	Completed string   // research node finished this tick
	Unlocked  []string // achievements unlocked this tick
}

// Tick advances the simulation by delta. Order within a tick: the clock
// moves, expired effects are reversed, due timers fire, production at the
// resulting rate is credited with research points, research progresses and
// achievements are evaluated. A negative delta counts as zero.
//
// An InvariantViolationError means the state is no longer trustworthy; the
// caller must stop driving the engine.
func (e *Engine) Tick(delta time.Duration) (TickReport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	if delta < 0 {
		delta = 0
	}
	w := e.w
	now := e.clock.Advance(delta)
	rep := TickReport{Now: now}

	rep.Expired = len(w.effects.Tick(now))
	rep.Fired = e.sched.RunDue(now)

	rep.Rate = e.rate()
	rep.Produced = rep.Rate * delta.Seconds()
	if err := w.acct.Credit(rep.Produced); err != nil {
		return rep, err
	}
	w.prog.AddPoints(rules.ResearchPoints(w.ledger.TotalOwned(), e.cfg.ResearchPointsPerBuilding, delta))

	done, err := w.prog.TickResearch(delta, w.stack)
	if err != nil {
		return rep, err
	}
	if done != "" {
		rep.Completed = done
		metrics.Get().RecordResearch()
		e.emit(events.EventTypeResearchComplete, ActorEngine, done, nil)
		e.log.Infof("research complete: %s", done)
	}

	// Rewards registered above can change the rate predicates see.
	unlocked, err := w.prog.EvaluateAchievements(e.snapshot(), w.stack)
	if err != nil {
		return rep, gameerr.Invariant("achievement reward: %v", err)
	}
	for _, id := range unlocked {
		metrics.Get().RecordUnlock()
		e.emit(events.EventTypeUnlock, ActorEngine, id, nil)
	}
	rep.Unlocked = unlocked

	if err := w.prog.CheckInvariants(); err != nil {
		return rep, err
	}

	e.tickCount++
	e.emit(events.EventTypeTick, ActorEngine, "", events.TickPayload{
		Balance:          w.acct.Balance(),
		LifetimeProduced: w.acct.LifetimeProduced(),
		Rate:             rep.Rate,
		Produced:         rep.Produced,
		ResearchPoints:   w.prog.Points(),
	})
	metrics.Get().RecordTick(time.Since(start))
	return rep, nil
}

// Ticks is the number of completed ticks since the engine was built.
func (e *Engine) Ticks() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tickCount
}
