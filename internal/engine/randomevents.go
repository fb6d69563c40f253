package engine

import (
	"math"
	"time"

	"github.com/MRamiBalles/cookie-engine/internal/domain/catalog"
	"github.com/MRamiBalles/cookie-engine/internal/domain/effect"
	"github.com/MRamiBalles/cookie-engine/internal/domain/gameerr"
	"github.com/MRamiBalles/cookie-engine/internal/events"
)

// contest is a running click contest.
type contest struct {
	name       string
	exponent   float64
	baseClicks int64
	timer      string
}

// scheduleRandomEvent arms the next random event roll. Lock held.
func (e *Engine) scheduleRandomEvent() {
	if !e.cfg.RandomEventsEnabled || e.cat.Events.Len() == 0 || e.eventTimer != "" {
		return
	}
	e.eventTimer = e.sched.Schedule(e.clock.Now()+e.cfg.RandomEventCheck, "random_event_check", func(time.Duration) {
		e.eventTimer = ""
		if e.rng.Float64() < e.cfg.RandomEventChance {
			if ev, ok := e.cat.Events.Pick(e.rng.Float64()); ok {
				if err := e.startRandomEvent(ev); err != nil {
					e.log.Warnf("random event %s skipped: %v", ev.Name, err)
				}
			}
		}
		e.scheduleRandomEvent()
	})
}

// startRandomEvent runs ev now. A contest is refused while another one is
// still counting. Lock held.
func (e *Engine) startRandomEvent(ev catalog.RandomEvent) error {
	payload := events.RandomEventPayload{Contest: ev.IsContest()}
	if ev.IsContest() {
		if e.contest != nil {
			return &gameerr.ContestRunningError{Name: e.contest.name}
		}
		c := &contest{name: ev.Name, exponent: ev.ContestExponent, baseClicks: e.w.acct.TotalClicks()}
		c.timer = e.sched.Schedule(e.clock.Now()+ev.Contest, "contest_end", func(time.Duration) {
			e.endContest()
		})
		e.contest = c
		payload.DurationSeconds = ev.Contest.Seconds()
	} else {
		if err := e.activate(ev.Effect(e.clock.Now()), ActorEngine); err != nil {
			return err
		}
		payload.Effect = string(ev.Kind)
		payload.DurationSeconds = ev.Duration.Seconds()
	}
	e.emit(events.EventTypeRandomEvent, ActorEngine, ev.Name, payload)
	e.log.Infof("random event: %s", ev.Name)
	return nil
}

// endContest pays clicks^exponent seconds of current production for the
// clicks made since the contest began. Lock held.
func (e *Engine) endContest() {
	c := e.contest
	if c == nil {
		return
	}
	e.contest = nil
	clicks := e.w.acct.TotalClicks() - c.baseClicks
	if clicks < 0 {
		clicks = 0
	}
	prize := math.Pow(float64(clicks), c.exponent) * e.rate()
	if prize > 0 && !math.IsInf(prize, 0) {
		if err := e.w.acct.Credit(prize); err != nil {
			e.log.Errorf("contest %s prize: %v", c.name, err)
			prize = 0
		}
	} else {
		prize = 0
	}
	e.emit(events.EventTypeContestEnd, ActorEngine, c.name, events.ContestPayload{Clicks: clicks, Prize: prize})
}

// clearRandomEvents drops the pending roll and any running contest. Lock
// held.
func (e *Engine) clearRandomEvents() {
	if e.eventTimer != "" {
		e.sched.Cancel(e.eventTimer)
		e.eventTimer = ""
	}
	if e.contest != nil {
		e.sched.Cancel(e.contest.timer)
		e.contest = nil
	}
}

// clicksDisabled names the live effect that blocks manual clicks, if any.
// Lock held.
func (e *Engine) clicksDisabled() (effect.Kind, bool) {
	for _, ev := range e.cat.Events.Events() {
		if ev.DisablesClicks && e.w.effects.IsActive(ev.Kind) {
			return ev.Kind, true
		}
	}
	return "", false
}

// TriggerRandomEvent starts the random event name now, outside the random
// schedule.
func (e *Engine) TriggerRandomEvent(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ev, ok := e.cat.Events.Lookup(name)
	if !ok {
		return e.done("random event", &gameerr.UnknownIDError{Kind: "random event", ID: name})
	}
	return e.done("random event", e.startRandomEvent(ev))
}
