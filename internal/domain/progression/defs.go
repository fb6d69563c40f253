package progression

import (
	"fmt"
	"time"

	"github.com/MRamiBalles/cookie-engine/internal/domain/modifier"
	"github.com/MRamiBalles/cookie-engine/internal/domain/rules"
)

// AchievementDef is a one-shot unlock. The reward is data, registered on the
// modifier stack under "achievement:<id>".
type AchievementDef struct {
	ID        string
	Name      string
	Condition Condition
	Reward    modifier.Spec
}

// ResearchDef is a node in the research tree.
type ResearchDef struct {
	ID            string
	Name          string
	Cost          float64 // research points
	Duration      time.Duration
	Prerequisites []string
	Reward        modifier.Spec
}

// UpgradeDef is a cookie-bought, one-shot upgrade.
type UpgradeDef struct {
	ID          string
	Name        string
	Cost        float64
	Requirement Condition
	Effect      UpgradeEffect
}

// HeavenlyDef is bought with heavenly units. Its factor is
// 1 + prestigeLevel*PerLevel and is re-derived after every reset. A
// StartingBonus upgrade has no factor; Share is the fraction of the balance
// kept by a reset.
type HeavenlyDef struct {
	ID       string
	Name     string
	Cost     int64
	Kind     UpgradeKind
	Producer string
	PerLevel float64
	Share    float64
}

// Modifies reports whether the upgrade contributes a modifier.
func (h HeavenlyDef) Modifies() bool { return h.Kind != StartingBonus }

// Effect returns the upgrade effect at the given prestige level.
func (h HeavenlyDef) Effect(level int64) UpgradeEffect {
	return UpgradeEffect{Kind: h.Kind, Producer: h.Producer, Factor: rules.LevelScaled(level, h.PerLevel)}
}

// Defs groups the closed set of definitions the progression engine runs on.
type Defs struct {
	Achievements []AchievementDef
	Research     []ResearchDef
	Upgrades     []UpgradeDef
	Heavenly     []HeavenlyDef
}

// Validate checks ids are unique per kind, research prerequisites exist and
// form no cycle, and every reward maps to a valid modifier.
func (d Defs) Validate() error {
	seen := make(map[string]bool)
	for _, a := range d.Achievements {
		if a.ID == "" || seen["a:"+a.ID] {
			return fmt.Errorf("achievement id %q empty or duplicated", a.ID)
		}
		seen["a:"+a.ID] = true
		if err := a.Condition.Validate(); err != nil {
			return fmt.Errorf("achievement %s: %w", a.ID, err)
		}
		if !a.Reward.Target.Valid() || a.Reward.Factor <= 0 {
			return fmt.Errorf("achievement %s: invalid reward", a.ID)
		}
	}

	nodes := make(map[string]ResearchDef, len(d.Research))
	for _, r := range d.Research {
		if r.ID == "" || nodes[r.ID].ID != "" {
			return fmt.Errorf("research id %q empty or duplicated", r.ID)
		}
		if r.Cost < 0 || r.Duration <= 0 {
			return fmt.Errorf("research %s: cost and duration must be positive", r.ID)
		}
		if !r.Reward.Target.Valid() || r.Reward.Factor <= 0 {
			return fmt.Errorf("research %s: invalid reward", r.ID)
		}
		nodes[r.ID] = r
	}
	for _, r := range d.Research {
		for _, p := range r.Prerequisites {
			if _, ok := nodes[p]; !ok {
				return fmt.Errorf("research %s: unknown prerequisite %s", r.ID, p)
			}
		}
	}
	if cyc := findCycle(nodes); cyc != "" {
		return fmt.Errorf("research graph has a cycle through %s", cyc)
	}

	for _, u := range d.Upgrades {
		if u.ID == "" || seen["u:"+u.ID] {
			return fmt.Errorf("upgrade id %q empty or duplicated", u.ID)
		}
		seen["u:"+u.ID] = true
		if err := u.Requirement.Validate(); err != nil {
			return fmt.Errorf("upgrade %s: %w", u.ID, err)
		}
		if _, err := u.Effect.Spec(); err != nil {
			return fmt.Errorf("upgrade %s: %w", u.ID, err)
		}
		if u.Effect.Factor <= 0 {
			return fmt.Errorf("upgrade %s: factor must be positive", u.ID)
		}
	}
	for _, h := range d.Heavenly {
		if h.ID == "" || seen["h:"+h.ID] {
			return fmt.Errorf("heavenly upgrade id %q empty or duplicated", h.ID)
		}
		seen["h:"+h.ID] = true
		if h.Cost <= 0 || h.PerLevel < 0 {
			return fmt.Errorf("heavenly upgrade %s: bad cost or per-level factor", h.ID)
		}
		if !h.Modifies() {
			if !(h.Share > 0 && h.Share <= 1) {
				return fmt.Errorf("heavenly upgrade %s: share must be in (0, 1]", h.ID)
			}
			continue
		}
		if _, err := h.Effect(0).Target(); err != nil {
			return fmt.Errorf("heavenly upgrade %s: %w", h.ID, err)
		}
	}
	return nil
}

func findCycle(nodes map[string]ResearchDef) string {
	const (
		white = iota
		grey
		black
	)
	color := make(map[string]int, len(nodes))
	var visit func(id string) string
	visit = func(id string) string {
		color[id] = grey
		for _, p := range nodes[id].Prerequisites {
			switch color[p] {
			case grey:
				return p
			case white:
				if c := visit(p); c != "" {
					return c
				}
			}
		}
		color[id] = black
		return ""
	}
	for id := range nodes {
		if color[id] == white {
			if c := visit(id); c != "" {
				return c
			}
		}
	}
	return ""
}
