// Package producer owns the producer types (buildings), their owned counts,
// the geometric cost curve and raw production.
// This package is PURE and must NOT import any infrastructure packages.
package producer

import (
	"fmt"

	"github.com/MRamiBalles/cookie-engine/internal/domain/account"
	"github.com/MRamiBalles/cookie-engine/internal/domain/gameerr"
	"github.com/MRamiBalles/cookie-engine/internal/domain/rules"
)

// Def is the static definition of a producer type.
type Def struct {
	ID         string  `yaml:"id"`
	Name       string  `yaml:"name"`
	BaseCost   float64 `yaml:"base_cost"`
	BaseOutput float64 `yaml:"base_output"` // cookies per second per unit
}

// Producer is a producer type plus its mutable progress.
type Producer struct {
	Def
	Count      int
	Efficiency float64 // >= 1, starts at 1
	Level      int     // >= 1
	Milestones int     // thresholds already applied
}

// Output is this producer's raw cookies per second.
func (p *Producer) Output() float64 {
	return float64(p.Count) * p.BaseOutput * p.Efficiency
}

// Params tunes costs and milestone rewards.
type Params struct {
	GrowthBase        float64
	Milestones        []int
	MilestoneStep     float64
	UpgradeMultiplier float64
	UpgradeCostBase   float64
}

// DefaultParams mirrors the classic curve: 1.15 growth, +0.1 efficiency at
// 10/25/50/100/150/200/250/300 owned, upgrades double output for baseCost×10^level.
func DefaultParams() Params {
	return Params{
		GrowthBase:        rules.DefaultGrowthBase,
		Milestones:        []int{10, 25, 50, 100, 150, 200, 250, 300},
		MilestoneStep:     0.1,
		UpgradeMultiplier: 2,
		UpgradeCostBase:   10,
	}
}

// Purchase describes a successful buy.
type Purchase struct {
	ID         string
	Cost       float64
	Count      int
	Milestones []int // thresholds crossed by this purchase
}

// Ledger is the ProducerLedger.
type Ledger struct {
	params    Params
	producers []*Producer
	byID      map[string]*Producer
}

// NewLedger creates a ledger with zero owned units of every def.
func NewLedger(defs []Def, params Params) (*Ledger, error) {
	l := &Ledger{params: params, byID: make(map[string]*Producer, len(defs))}
	for _, d := range defs {
		if d.ID == "" {
			return nil, fmt.Errorf("producer def has empty id")
		}
		if _, dup := l.byID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate producer id %q", d.ID)
		}
		if d.BaseCost <= 0 || d.BaseOutput < 0 {
			return nil, fmt.Errorf("producer %q has invalid cost/output", d.ID)
		}
		p := &Producer{Def: d, Efficiency: 1, Level: 1}
		l.producers = append(l.producers, p)
		l.byID[d.ID] = p
	}
	return l, nil
}

// Params returns the ledger's tuning.
func (l *Ledger) Params() Params { return l.params }

// Get returns a copy of a producer's state.
func (l *Ledger) Get(id string) (Producer, bool) {
	p, ok := l.byID[id]
	if !ok {
		return Producer{}, false
	}
	return *p, true
}

// All returns copies of every producer in catalog order.
func (l *Ledger) All() []Producer {
	out := make([]Producer, len(l.producers))
	for i, p := range l.producers {
		out[i] = *p
	}
	return out
}

// Cost returns baseCost × growthBase^count for the next unit.
func (l *Ledger) Cost(id string) (float64, error) {
	return l.ScaledCost(id, 1)
}

// ScaledCost is Cost multiplied by scale, the resolved PRODUCER_COST factor.
func (l *Ledger) ScaledCost(id string, scale float64) (float64, error) {
	p, ok := l.byID[id]
	if !ok {
		return 0, &gameerr.UnknownIDError{Kind: "producer", ID: id}
	}
	return rules.ProducerCost(p.BaseCost, l.params.GrowthBase, p.Count) * scale, nil
}

// UpgradeCost returns the price of the next upgrade of id.
func (l *Ledger) UpgradeCost(id string) (float64, error) {
	p, ok := l.byID[id]
	if !ok {
		return 0, &gameerr.UnknownIDError{Kind: "producer", ID: id}
	}
	return rules.UpgradeCost(p.BaseCost, l.params.UpgradeCostBase, p.Level), nil
}

// Purchase buys one unit of id, debiting acct. Either both the debit and the
// count increment happen or neither does.
func (l *Ledger) Purchase(id string, acct *account.Account) (Purchase, error) {
	return l.PurchaseScaled(id, acct, 1)
}

// PurchaseScaled is Purchase at ScaledCost.
func (l *Ledger) PurchaseScaled(id string, acct *account.Account, scale float64) (Purchase, error) {
	p, ok := l.byID[id]
	if !ok {
		return Purchase{}, &gameerr.UnknownIDError{Kind: "producer", ID: id}
	}
	cost := rules.ProducerCost(p.BaseCost, l.params.GrowthBase, p.Count) * scale
	if err := acct.Debit(cost); err != nil {
		return Purchase{}, err
	}
	p.Count++
	return Purchase{ID: id, Cost: cost, Count: p.Count, Milestones: l.applyMilestones(p)}, nil
}

// applyMilestones bumps efficiency and level once per threshold reached.
// Milestones counts thresholds already applied so a threshold can never
// trigger twice, including after a reload.
func (l *Ledger) applyMilestones(p *Producer) []int {
	var crossed []int
	for p.Milestones < len(l.params.Milestones) && p.Count >= l.params.Milestones[p.Milestones] {
		p.Efficiency += l.params.MilestoneStep
		p.Level++
		crossed = append(crossed, l.params.Milestones[p.Milestones])
		p.Milestones++
	}
	return crossed
}

// Upgrade multiplies the efficiency of id, debiting acct for the upgrade cost.
func (l *Ledger) Upgrade(id string, acct *account.Account) (float64, error) {
	p, ok := l.byID[id]
	if !ok {
		return 0, &gameerr.UnknownIDError{Kind: "producer", ID: id}
	}
	cost := rules.UpgradeCost(p.BaseCost, l.params.UpgradeCostBase, p.Level)
	if err := acct.Debit(cost); err != nil {
		return 0, err
	}
	p.Efficiency *= l.params.UpgradeMultiplier
	p.Level++
	return cost, nil
}

// RawOutput is Σ count × baseOutput × efficiency, before any modifier.
func (l *Ledger) RawOutput() float64 {
	total := 0.0
	for _, p := range l.producers {
		total += p.Output()
	}
	return total
}

// ScaledOutput is RawOutput with each producer scaled by scale(id).
func (l *Ledger) ScaledOutput(scale func(id string) float64) float64 {
	total := 0.0
	for _, p := range l.producers {
		if p.Count == 0 {
			continue
		}
		total += p.Output() * scale(p.ID)
	}
	return total
}

// TotalOwned is the number of units owned across all producers.
func (l *Ledger) TotalOwned() int {
	n := 0
	for _, p := range l.producers {
		n += p.Count
	}
	return n
}

// Count returns the owned units of id (0 if unknown).
func (l *Ledger) Count(id string) int {
	if p, ok := l.byID[id]; ok {
		return p.Count
	}
	return 0
}

// Restore sets persisted progress for id. Unknown ids are ignored so saves
// survive catalog removals; milestones < 0 means "derive from count".
func (l *Ledger) Restore(id string, count int, efficiency float64, level, milestones int) error {
	p, ok := l.byID[id]
	if !ok {
		return nil
	}
	if count < 0 {
		return gameerr.Corrupt(fmt.Sprintf("producer %q has negative count %d", id, count), nil)
	}
	if efficiency == 0 {
		efficiency = 1
	}
	if efficiency < 1 {
		return gameerr.Corrupt(fmt.Sprintf("producer %q has efficiency %v < 1", id, efficiency), nil)
	}
	if level == 0 {
		level = 1
	}
	if level < 1 {
		return gameerr.Corrupt(fmt.Sprintf("producer %q has level %d", id, level), nil)
	}
	if milestones < 0 {
		milestones = 0
		for milestones < len(l.params.Milestones) && count >= l.params.Milestones[milestones] {
			milestones++
		}
	}
	if milestones > len(l.params.Milestones) {
		milestones = len(l.params.Milestones)
	}
	p.Count, p.Efficiency, p.Level, p.Milestones = count, efficiency, level, milestones
	return nil
}

// ResetForPrestige returns every producer to zero owned, efficiency 1, level 1.
func (l *Ledger) ResetForPrestige() {
	for _, p := range l.producers {
		p.Count, p.Efficiency, p.Level, p.Milestones = 0, 1, 1, 0
	}
}
