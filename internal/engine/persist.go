package engine

import (
	"time"

	"github.com/MRamiBalles/cookie-engine/internal/domain/account"
	"github.com/MRamiBalles/cookie-engine/internal/domain/gameerr"
	"github.com/MRamiBalles/cookie-engine/internal/domain/modifier"
	"github.com/MRamiBalles/cookie-engine/internal/domain/progression"
	"github.com/MRamiBalles/cookie-engine/internal/domain/rules"
	"github.com/MRamiBalles/cookie-engine/internal/events"
	"github.com/MRamiBalles/cookie-engine/internal/platform/logger"
	"github.com/MRamiBalles/cookie-engine/internal/platform/metrics"
	"github.com/MRamiBalles/cookie-engine/internal/save"
)

// LoadReport describes what a load did.
type LoadReport struct {
	Elapsed       time.Duration `json:"elapsed"`
	OfflineCredit float64       `json:"offline_credit"`
	Rate          float64       `json:"rate"`  // global multiplier × raw output, the offline rate
	Fresh         bool          `json:"fresh"` // the save was unusable and a new game started
	Reconciled    []string      `json:"reconciled,omitempty"`
}

// Snapshot captures the persistable state, stamped with the wall clock.
// Timed effects are not persisted.
func (e *Engine) Snapshot() save.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() save.Snapshot {
	w := e.w
	s := save.Snapshot{
		Version:          save.Version,
		Balance:          w.acct.Balance(),
		LifetimeProduced: w.acct.LifetimeProduced(),
		TotalClicks:      w.acct.TotalClicks(),
		GoldenClicks:     w.acct.GoldenClicks(),
		PeakRate:         w.peakRate,
		Modifiers:        w.stack.Modifiers(),
	}
	for _, p := range w.ledger.All() {
		ms := p.Milestones
		s.Producers = append(s.Producers, save.Producer{
			ID:                   p.ID,
			Count:                p.Count,
			EfficiencyMultiplier: p.Efficiency,
			Level:                p.Level,
			Milestones:           &ms,
		})
	}

	prog := w.prog.Export()
	for _, a := range w.prog.Defs().Achievements {
		s.Achievements = append(s.Achievements, save.Achievement{ID: a.ID, Unlocked: w.prog.Unlocked(a.ID)})
	}
	s.Research = save.Research{Completed: prog.Completed, Points: prog.Points}
	if s.Research.Completed == nil {
		s.Research.Completed = []string{}
	}
	if prog.InProgress != nil {
		s.Research.InProgress = &save.InProgress{ID: prog.InProgress.ID, Progress: prog.InProgress.Progress.Seconds()}
	}
	s.Prestige = save.Prestige{
		HeavenlyUnits: prog.Prestige.HeavenlyUnits,
		TotalResets:   prog.Prestige.TotalResets,
		SpentUnits:    prog.Prestige.SpentUnits,
	}
	s.Upgrades = prog.Upgrades
	s.HeavenlyUpgrades = prog.Heavenly
	s.Stamp(e.clock.Wall())
	return s
}

// Save encodes the current state.
func (e *Engine) Save() ([]byte, error) {
	start := time.Now()
	data, err := save.Encode(e.Snapshot())
	metrics.Get().RecordSave(time.Since(start), err)
	return data, err
}

// Load decodes data and restores it. A corrupt save resets the engine to a
// fresh game; the report says so and the CorruptSaveError is still returned
// so the caller can keep the bad bytes for inspection.
func (e *Engine) Load(data []byte) (LoadReport, error) {
	s, err := save.Decode(data)
	if err != nil {
		return e.fallback(err)
	}
	rep, err := e.Restore(s)
	if gameerr.IsCorrupt(err) {
		return e.fallback(err)
	}
	return rep, err
}

func (e *Engine) fallback(cause error) (LoadReport, error) {
	metrics.Get().RecordCorruptLoad()
	e.log.Warnf("save rejected, starting a fresh game: %v", cause)
	if err := e.Reset(); err != nil {
		return LoadReport{}, err
	}
	return LoadReport{Fresh: true}, cause
}

// Reset discards all progress.
func (e *Engine) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	w, err := e.newWorld()
	if err != nil {
		return err
	}
	e.swap(w)
	e.scheduleGolden()
	e.scheduleRandomEvent()
	return nil
}

// swap replaces the world. Effects of the old world are ended first so their
// end events fire against the state they belonged to. Lock held.
func (e *Engine) swap(w *world) {
	if e.w != nil {
		e.w.effects.CancelAll()
	}
	e.clearGolden()
	e.clearRandomEvents()
	e.sched.Clear()
	e.w = w
}

// Restore replaces the whole state with s and credits offline production
// once: resolve(GLOBAL_PRODUCTION) × raw output × wall-clock time since the
// save × offline efficiency. The engine is untouched if s does not fit the
// catalog.
func (e *Engine) Restore(s save.Snapshot) (LoadReport, error) {
	if err := save.Validate(s); err != nil {
		return LoadReport{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	w, err := e.newWorld()
	if err != nil {
		return LoadReport{}, err
	}
	acct, err := account.Restore(s.Balance, s.LifetimeProduced, s.TotalClicks, s.GoldenClicks)
	if err != nil {
		return LoadReport{}, gameerr.Corrupt("account", err)
	}
	w.acct = acct
	w.peakRate = s.PeakRate

	for _, p := range s.Producers {
		milestones := -1
		if p.Milestones != nil {
			milestones = *p.Milestones
		}
		if err := w.ledger.Restore(p.ID, p.Count, p.EfficiencyMultiplier, p.Level, milestones); err != nil {
			return LoadReport{}, gameerr.Corrupt("producer "+p.ID, err)
		}
	}
	for _, m := range s.Modifiers {
		if err := w.stack.Register(m.Target, m.Factor, m.Source); err != nil {
			return LoadReport{}, gameerr.Corrupt("modifier "+m.Source, err)
		}
	}

	saved := progression.Saved{
		Achievements: s.UnlockedAchievements(),
		Completed:    s.Research.Completed,
		Points:       s.Research.Points,
		Prestige: progression.PrestigeState{
			HeavenlyUnits: s.Prestige.HeavenlyUnits,
			SpentUnits:    s.Prestige.SpentUnits,
			TotalResets:   s.Prestige.TotalResets,
		},
		Upgrades: s.Upgrades,
		Heavenly: s.HeavenlyUpgrades,
	}
	if ip := s.Research.InProgress; ip != nil {
		saved.InProgress = &progression.InProgress{
			ID:       ip.ID,
			Progress: time.Duration(ip.Progress * float64(time.Second)),
		}
	}
	if err := w.prog.Restore(saved); err != nil {
		return LoadReport{}, err
	}
	if _, ok := w.prog.Active(); saved.InProgress != nil && !ok {
		e.log.Warnf("research %q is no longer in the catalog, dropped from the save", saved.InProgress.ID)
	}
	added, err := w.prog.Reconcile(e.cfg.ChipBonusPerUnit, w.stack)
	if err != nil {
		return LoadReport{}, gameerr.Corrupt("reconcile rewards", err)
	}

	e.swap(w)

	// Offline production ignores per-producer modifiers: only the global
	// multiplier applies to the raw output.
	offlineRate := w.stack.Resolve(modifier.TargetGlobalProduction) * w.ledger.RawOutput()
	rep := LoadReport{Reconciled: added, Rate: offlineRate}
	rep.Elapsed = rules.ClampElapsed(e.clock.Wall(), s.SavedAt())
	rep.OfflineCredit = rules.OfflineCredit(rep.Rate, rep.Elapsed, e.cfg.OfflineEfficiency)
	if rep.OfflineCredit > 0 {
		if err := w.acct.Credit(rep.OfflineCredit); err != nil {
			return rep, err
		}
		e.emit(events.EventTypeOfflineCredit, ActorEngine, "", events.OfflinePayload{
			ElapsedSeconds: rep.Elapsed.Seconds(),
			Credit:         rep.OfflineCredit,
			Rate:           rep.Rate,
		})
	}
	e.scheduleGolden()
	e.scheduleRandomEvent()
	e.emit(events.EventTypeLoad, ActorEngine, "", nil)
	if len(added) > 0 {
		e.log.Warnf("save was missing %d reward modifiers, re-registered: %v", len(added), added)
	}
	e.log.Infof("save restored: %s offline, +%s cookies", rep.Elapsed.Round(time.Second), logger.Cookies(rep.OfflineCredit))
	return rep, nil
}
