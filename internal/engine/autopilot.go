package engine

import (
	"github.com/MRamiBalles/cookie-engine/internal/domain/progression"
)

// Action is one purchase the autopilot made.
type Action struct {
	Kind string `json:"kind"` // producer, upgrade, research
	ID   string `json:"id"`
}

// Autopilot plays greedily: it starts any available research, buys any
// affordable upgrade, then buys the producer with the best output per cookie
// until nothing is affordable. Used for headless simulation.
type Autopilot struct {
	engine *Engine
}

// NewAutopilot binds an autopilot to e.
func NewAutopilot(e *Engine) *Autopilot {
	return &Autopilot{engine: e}
}

// Step makes every purchase currently possible and returns them in order.
func (a *Autopilot) Step() []Action {
	var actions []Action
	e := a.engine
	defs := e.Catalog().Progression

	if st := e.State(); st.Research.Active == "" {
		for _, r := range defs.Research {
			if status, _ := e.ResearchStatus(r.ID); status != progression.ResearchAvailable {
				continue
			}
			if e.StartResearch(r.ID) == nil {
				actions = append(actions, Action{Kind: "research", ID: r.ID})
				break
			}
		}
	}

	for _, u := range defs.Upgrades {
		if e.PurchaseUpgrade(u.ID) == nil {
			actions = append(actions, Action{Kind: "upgrade", ID: u.ID})
		}
	}

	for {
		id, ok := a.bestProducer()
		if !ok {
			break
		}
		if _, err := e.PurchaseProducer(id); err != nil {
			break
		}
		actions = append(actions, Action{Kind: "producer", ID: id})
	}
	return actions
}

// bestProducer picks the affordable producer with the highest base output
// per cookie of its next unit.
func (a *Autopilot) bestProducer() (string, bool) {
	st := a.engine.State()
	best, bestScore := "", 0.0
	for _, p := range st.Producers {
		if p.NextCost > st.Balance || p.NextCost <= 0 {
			continue
		}
		def, ok := a.engine.Catalog().Producer(p.ID)
		if !ok {
			continue
		}
		score := def.BaseOutput * p.Efficiency / p.NextCost
		if score > bestScore {
			best, bestScore = p.ID, score
		}
	}
	return best, best != ""
}
