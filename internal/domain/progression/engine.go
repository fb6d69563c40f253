package progression

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/MRamiBalles/cookie-engine/internal/domain/account"
	"github.com/MRamiBalles/cookie-engine/internal/domain/gameerr"
	"github.com/MRamiBalles/cookie-engine/internal/domain/modifier"
)

// ChipBonusSource is the modifier source of the heavenly chip production bonus.
const ChipBonusSource = modifier.SourcePrestige + "heavenly_chips"

// ResearchStatus is the lifecycle state of a research node.
type ResearchStatus string

const (
	ResearchLocked     ResearchStatus = "LOCKED"
	ResearchAvailable  ResearchStatus = "AVAILABLE"
	ResearchInProgress ResearchStatus = "IN_PROGRESS"
	ResearchCompleted  ResearchStatus = "COMPLETED"
)

// InProgress is the single busy research slot.
type InProgress struct {
	ID       string
	Progress time.Duration
}

// PrestigeState is kept across resets. HeavenlyUnits never decreases;
// spending is tracked separately in SpentUnits.
type PrestigeState struct {
	HeavenlyUnits int64
	SpentUnits    int64
	TotalResets   int64
}

// Available returns the unspent heavenly units.
func (p PrestigeState) Available() int64 { return p.HeavenlyUnits - p.SpentUnits }

// Saved is the persistable part of progression state.
type Saved struct {
	Achievements []string
	Completed    []string
	InProgress   *InProgress
	Points       float64
	Prestige     PrestigeState
	Upgrades     []string
	Heavenly     []string
}

// Engine is the ProgressionEngine. It owns unlock state; modifier rewards are
// applied to the stack passed into each call.
type Engine struct {
	defs Defs

	achievements map[string]AchievementDef
	research     map[string]ResearchDef
	upgrades     map[string]UpgradeDef
	heavenly     map[string]HeavenlyDef

	unlocked  map[string]bool
	completed map[string]bool
	active    *InProgress
	points    float64
	owned     map[string]bool // cookie-bought upgrades
	ascended  map[string]bool // heavenly upgrades
	prestige  PrestigeState
}

// New validates defs and returns an engine in the fresh state.
func New(defs Defs) (*Engine, error) {
	if err := defs.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		defs:         defs,
		achievements: make(map[string]AchievementDef, len(defs.Achievements)),
		research:     make(map[string]ResearchDef, len(defs.Research)),
		upgrades:     make(map[string]UpgradeDef, len(defs.Upgrades)),
		heavenly:     make(map[string]HeavenlyDef, len(defs.Heavenly)),
	}
	for _, a := range defs.Achievements {
		e.achievements[a.ID] = a
	}
	for _, r := range defs.Research {
		e.research[r.ID] = r
	}
	for _, u := range defs.Upgrades {
		e.upgrades[u.ID] = u
	}
	for _, h := range defs.Heavenly {
		e.heavenly[h.ID] = h
	}
	e.Reset()
	return e, nil
}

// Reset returns every piece of progression state to a fresh game.
func (e *Engine) Reset() {
	e.unlocked = make(map[string]bool)
	e.completed = make(map[string]bool)
	e.active = nil
	e.points = 0
	e.owned = make(map[string]bool)
	e.ascended = make(map[string]bool)
	e.prestige = PrestigeState{}
}

// Defs returns the definitions the engine runs on.
func (e *Engine) Defs() Defs { return e.defs }

// ---------------------------------------------------------------------------
// Achievements
// ---------------------------------------------------------------------------

// EvaluateAchievements unlocks every locked achievement whose condition holds
// and registers its reward. Returns the newly unlocked ids in catalog order.
func (e *Engine) EvaluateAchievements(s Snapshot, stack *modifier.Stack) ([]string, error) {
	var fresh []string
	for _, a := range e.defs.Achievements {
		if e.unlocked[a.ID] || !a.Condition.Met(s) {
			continue
		}
		// A restored stack may already carry the reward.
		source := modifier.SourceAchievement + a.ID
		if !stack.Has(a.Reward.Target, source) {
			if err := stack.Register(a.Reward.Target, a.Reward.Factor, source); err != nil {
				return fresh, err
			}
		}
		e.unlocked[a.ID] = true
		fresh = append(fresh, a.ID)
	}
	return fresh, nil
}

// Unlocked reports whether achievement id has been unlocked.
func (e *Engine) Unlocked(id string) bool { return e.unlocked[id] }

// UnlockedIDs lists unlocked achievements in catalog order.
func (e *Engine) UnlockedIDs() []string {
	var ids []string
	for _, a := range e.defs.Achievements {
		if e.unlocked[a.ID] {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

// ---------------------------------------------------------------------------
// Research
// ---------------------------------------------------------------------------

// Points is the unspent research point balance.
func (e *Engine) Points() float64 { return e.points }

// AddPoints accrues research points.
func (e *Engine) AddPoints(p float64) {
	if p > 0 {
		e.points += p
	}
}

// Active returns the in-progress node, if any.
func (e *Engine) Active() (InProgress, bool) {
	if e.active == nil {
		return InProgress{}, false
	}
	return *e.active, true
}

// Status returns the lifecycle state of a research node.
func (e *Engine) Status(id string) (ResearchStatus, error) {
	node, ok := e.research[id]
	if !ok {
		return "", &gameerr.UnknownIDError{Kind: "research", ID: id}
	}
	switch {
	case e.completed[id]:
		return ResearchCompleted, nil
	case e.active != nil && e.active.ID == id:
		return ResearchInProgress, nil
	case len(e.missing(node)) == 0:
		return ResearchAvailable, nil
	default:
		return ResearchLocked, nil
	}
}

// CompletedIDs lists completed nodes in catalog order.
func (e *Engine) CompletedIDs() []string {
	var ids []string
	for _, r := range e.defs.Research {
		if e.completed[r.ID] {
			ids = append(ids, r.ID)
		}
	}
	return ids
}

func (e *Engine) missing(node ResearchDef) []string {
	var out []string
	for _, p := range node.Prerequisites {
		if !e.completed[p] {
			out = append(out, p)
		}
	}
	return out
}

// StartResearch debits the node's cost in points and occupies the busy slot.
func (e *Engine) StartResearch(id string) error {
	node, ok := e.research[id]
	if !ok {
		return &gameerr.UnknownIDError{Kind: "research", ID: id}
	}
	if e.completed[id] {
		return &gameerr.AlreadyOwnedError{ID: id}
	}
	if e.active != nil {
		return &gameerr.ResearchBusyError{Active: e.active.ID}
	}
	if miss := e.missing(node); len(miss) > 0 {
		return &gameerr.PrerequisitesNotMetError{Node: id, Missing: miss}
	}
	if e.points < node.Cost {
		return &gameerr.InsufficientPointsError{Need: node.Cost, Have: e.points}
	}
	e.points -= node.Cost
	e.active = &InProgress{ID: id}
	return nil
}

// TickResearch advances the busy slot by delta. When the node reaches its
// duration it completes, its reward is registered once and the slot clears.
// Returns the completed node id or "".
func (e *Engine) TickResearch(delta time.Duration, stack *modifier.Stack) (string, error) {
	if e.active == nil || delta <= 0 {
		return "", nil
	}
	node := e.research[e.active.ID]
	e.active.Progress += delta
	if e.active.Progress < node.Duration {
		return "", nil
	}
	if e.completed[node.ID] {
		return "", gameerr.Invariant("research %s completed twice", node.ID)
	}
	if err := stack.Register(node.Reward.Target, node.Reward.Factor, modifier.SourceResearch+node.ID); err != nil {
		return "", gameerr.Invariant("research %s reward: %v", node.ID, err)
	}
	e.completed[node.ID] = true
	e.active = nil
	return node.ID, nil
}

// ---------------------------------------------------------------------------
// Upgrades
// ---------------------------------------------------------------------------

// Owned reports whether the cookie-bought upgrade id has been purchased.
func (e *Engine) Owned(id string) bool { return e.owned[id] }

// OwnedUpgrades lists purchased upgrades in catalog order.
func (e *Engine) OwnedUpgrades() []string {
	var ids []string
	for _, u := range e.defs.Upgrades {
		if e.owned[u.ID] {
			ids = append(ids, u.ID)
		}
	}
	return ids
}

// PurchaseUpgrade debits the upgrade's cost and registers its modifier.
// Either both happen or neither.
func (e *Engine) PurchaseUpgrade(id string, s Snapshot, acct *account.Account, stack *modifier.Stack) (UpgradeDef, error) {
	u, ok := e.upgrades[id]
	if !ok {
		return UpgradeDef{}, &gameerr.UnknownIDError{Kind: "upgrade", ID: id}
	}
	if e.owned[id] {
		return UpgradeDef{}, &gameerr.AlreadyOwnedError{ID: id}
	}
	if !u.Requirement.Met(s) {
		return UpgradeDef{}, &gameerr.PrerequisitesNotMetError{Node: id}
	}
	spec, err := u.Effect.Spec()
	if err != nil {
		return UpgradeDef{}, gameerr.Invariant("upgrade %s: %v", id, err)
	}
	source := modifier.SourceUpgrade + id
	if stack.Has(spec.Target, source) {
		return UpgradeDef{}, &gameerr.DuplicateSourceError{Target: string(spec.Target), Source: source}
	}
	if err := acct.Debit(u.Cost); err != nil {
		return UpgradeDef{}, err
	}
	if err := stack.Register(spec.Target, spec.Factor, source); err != nil {
		return UpgradeDef{}, gameerr.Invariant("upgrade %s registered after debit: %v", id, err)
	}
	e.owned[id] = true
	return u, nil
}

// ---------------------------------------------------------------------------
// Prestige and heavenly upgrades
// ---------------------------------------------------------------------------

// Prestige returns the prestige state.
func (e *Engine) Prestige() PrestigeState { return e.prestige }

// Ascended reports whether heavenly upgrade id is owned.
func (e *Engine) Ascended(id string) bool { return e.ascended[id] }

// AscendedIDs lists owned heavenly upgrades in catalog order.
func (e *Engine) AscendedIDs() []string {
	var ids []string
	for _, h := range e.defs.Heavenly {
		if e.ascended[h.ID] {
			ids = append(ids, h.ID)
		}
	}
	return ids
}

// StartingShare is the fraction of the balance a prestige reset keeps, summed
// over owned StartingBonus upgrades and capped at one.
func (e *Engine) StartingShare() float64 {
	var share float64
	for _, h := range e.defs.Heavenly {
		if e.ascended[h.ID] && !h.Modifies() {
			share += h.Share
		}
	}
	return math.Min(share, 1)
}

// PurchaseHeavenly spends heavenly units on a heavenly upgrade and registers
// its modifier at the current prestige level.
func (e *Engine) PurchaseHeavenly(id string, stack *modifier.Stack) (HeavenlyDef, error) {
	h, ok := e.heavenly[id]
	if !ok {
		return HeavenlyDef{}, &gameerr.UnknownIDError{Kind: "heavenly upgrade", ID: id}
	}
	if e.ascended[id] {
		return HeavenlyDef{}, &gameerr.AlreadyOwnedError{ID: id}
	}
	if avail := e.prestige.Available(); avail < h.Cost {
		return HeavenlyDef{}, &gameerr.InsufficientFundsError{Need: float64(h.Cost), Have: float64(avail)}
	}
	if h.Modifies() {
		spec, err := h.Effect(e.prestige.TotalResets).Spec()
		if err != nil {
			return HeavenlyDef{}, gameerr.Invariant("heavenly upgrade %s: %v", id, err)
		}
		if err := stack.Register(spec.Target, spec.Factor, modifier.SourceHeavenly+id); err != nil {
			return HeavenlyDef{}, err
		}
	}
	e.prestige.SpentUnits += h.Cost
	e.ascended[id] = true
	return h, nil
}

// ApplyPrestige records a reset worth gain heavenly units and clears run
// progress: research, points and cookie-bought upgrades. The stack keeps only
// achievement rewards; prestige-tier bonuses are then re-derived in a fixed
// order so the result does not depend on history. Nothing changes when it
// returns an error.
func (e *Engine) ApplyPrestige(gain int64, chipBonusPerUnit float64, stack *modifier.Stack) error {
	if gain <= 0 {
		return gameerr.Invariant("prestige applied with gain %d", gain)
	}
	next := e.prestige
	next.HeavenlyUnits += gain
	next.TotalResets++
	bonuses, err := e.prestigeBonuses(next, chipBonusPerUnit)
	if err != nil {
		return err
	}

	e.prestige = next
	e.completed = make(map[string]bool)
	e.active = nil
	e.points = 0
	e.owned = make(map[string]bool)

	stack.Retain(func(m modifier.Modifier) bool {
		return strings.HasPrefix(m.Source, modifier.SourceAchievement)
	})
	for _, b := range bonuses {
		if err := stack.Register(b.Target, b.Factor, b.Source); err != nil {
			return err
		}
	}
	return nil
}

// prestigeBonuses lists the permanent modifiers a prestige state grants:
// the heavenly chip bonus, then each ascended upgrade at its current level.
func (e *Engine) prestigeBonuses(p PrestigeState, chipBonusPerUnit float64) ([]modifier.Modifier, error) {
	var out []modifier.Modifier
	add := func(target modifier.Target, factor float64, source string) error {
		if !(factor > 0) || math.IsInf(factor, 0) {
			return gameerr.Invariant("prestige bonus %s has factor %v", source, factor)
		}
		out = append(out, modifier.Modifier{Target: target, Factor: factor, Source: source})
		return nil
	}
	if p.HeavenlyUnits > 0 && chipBonusPerUnit > 0 {
		factor := 1 + float64(p.HeavenlyUnits)*chipBonusPerUnit
		if err := add(modifier.TargetGlobalProduction, factor, ChipBonusSource); err != nil {
			return nil, err
		}
	}
	for _, h := range e.defs.Heavenly {
		if !e.ascended[h.ID] || !h.Modifies() {
			continue
		}
		spec, err := h.Effect(p.TotalResets).Spec()
		if err != nil {
			return nil, err
		}
		if err := add(spec.Target, spec.Factor, modifier.SourceHeavenly+h.ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Persistence
// ---------------------------------------------------------------------------

// Export returns the persistable state.
func (e *Engine) Export() Saved {
	s := Saved{
		Achievements: e.UnlockedIDs(),
		Completed:    e.CompletedIDs(),
		Points:       e.points,
		Prestige:     e.prestige,
		Upgrades:     e.OwnedUpgrades(),
		Heavenly:     e.AscendedIDs(),
	}
	if e.active != nil {
		cp := *e.active
		s.InProgress = &cp
	}
	return s
}

// Restore replaces progression state with s. Ids no longer in the catalog are
// dropped, including a retired research in progress. A corrupt combination
// leaves the engine untouched.
func (e *Engine) Restore(s Saved) error {
	if s.Points < 0 {
		return gameerr.Corrupt("negative research points", nil)
	}
	p := s.Prestige
	if p.HeavenlyUnits < 0 || p.SpentUnits < 0 || p.TotalResets < 0 || p.SpentUnits > p.HeavenlyUnits {
		return gameerr.Corrupt("prestige state out of range", nil)
	}

	unlocked := keep(s.Achievements, func(id string) bool { _, ok := e.achievements[id]; return ok })
	completed := keep(s.Completed, func(id string) bool { _, ok := e.research[id]; return ok })
	owned := keep(s.Upgrades, func(id string) bool { _, ok := e.upgrades[id]; return ok })
	ascended := keep(s.Heavenly, func(id string) bool { _, ok := e.heavenly[id]; return ok })

	var active *InProgress
	if s.InProgress != nil {
		if node, ok := e.research[s.InProgress.ID]; ok {
			if completed[node.ID] {
				return gameerr.Corrupt("research "+node.ID+" both completed and in progress", nil)
			}
			for _, pre := range node.Prerequisites {
				if !completed[pre] {
					return gameerr.Corrupt("research "+node.ID+" in progress without "+pre, nil)
				}
			}
			if s.InProgress.Progress < 0 {
				return gameerr.Corrupt("negative research progress", nil)
			}
			cp := *s.InProgress
			active = &cp
		}
	}

	e.unlocked = unlocked
	e.completed = completed
	e.owned = owned
	e.ascended = ascended
	e.active = active
	e.points = s.Points
	e.prestige = p
	return nil
}

func keep(ids []string, known func(string) bool) map[string]bool {
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		if known(id) {
			out[id] = true
		}
	}
	return out
}

// Reconcile registers any reward that unlock state says was applied but the
// stack is missing, so that restoring a save never applies a reward twice and
// never loses one. It returns the sources it added, sorted.
func (e *Engine) Reconcile(chipBonusPerUnit float64, stack *modifier.Stack) ([]string, error) {
	var added []string
	ensure := func(spec modifier.Spec, source string) error {
		if stack.HasSource(source) {
			return nil
		}
		if err := stack.Register(spec.Target, spec.Factor, source); err != nil {
			return err
		}
		added = append(added, source)
		return nil
	}
	for _, a := range e.defs.Achievements {
		if e.unlocked[a.ID] {
			if err := ensure(a.Reward, modifier.SourceAchievement+a.ID); err != nil {
				return added, err
			}
		}
	}
	for _, r := range e.defs.Research {
		if e.completed[r.ID] {
			if err := ensure(r.Reward, modifier.SourceResearch+r.ID); err != nil {
				return added, err
			}
		}
	}
	for _, u := range e.defs.Upgrades {
		if !e.owned[u.ID] {
			continue
		}
		spec, err := u.Effect.Spec()
		if err != nil {
			return added, err
		}
		if err := ensure(spec, modifier.SourceUpgrade+u.ID); err != nil {
			return added, err
		}
	}
	for _, h := range e.defs.Heavenly {
		if !e.ascended[h.ID] || !h.Modifies() {
			continue
		}
		spec, err := h.Effect(e.prestige.TotalResets).Spec()
		if err != nil {
			return added, err
		}
		if err := ensure(spec, modifier.SourceHeavenly+h.ID); err != nil {
			return added, err
		}
	}
	if e.prestige.HeavenlyUnits > 0 && chipBonusPerUnit > 0 {
		chip := modifier.Spec{
			Target: modifier.TargetGlobalProduction,
			Factor: 1 + float64(e.prestige.HeavenlyUnits)*chipBonusPerUnit,
		}
		if err := ensure(chip, ChipBonusSource); err != nil {
			return added, err
		}
	}
	sort.Strings(added)
	return added, nil
}

// CheckInvariants verifies the busy slot is consistent with the tree.
func (e *Engine) CheckInvariants() error {
	if e.active == nil {
		return nil
	}
	node, ok := e.research[e.active.ID]
	if !ok {
		return gameerr.Invariant("unknown research %s in progress", e.active.ID)
	}
	if e.completed[node.ID] {
		return gameerr.Invariant("research %s in progress and completed", node.ID)
	}
	if miss := e.missing(node); len(miss) > 0 {
		return gameerr.Invariant("research %s in progress without prerequisites %v", node.ID, miss)
	}
	return nil
}
