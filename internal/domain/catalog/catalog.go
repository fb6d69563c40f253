// Package catalog holds the closed set of game content: producers, upgrades,
// achievements, research nodes, heavenly upgrades, golden cookie outcomes and
// random events.
// Rewards are data, never callbacks.
package catalog

import (
	"fmt"
	"time"

	"github.com/MRamiBalles/cookie-engine/internal/domain/effect"
	"github.com/MRamiBalles/cookie-engine/internal/domain/modifier"
	"github.com/MRamiBalles/cookie-engine/internal/domain/producer"
	"github.com/MRamiBalles/cookie-engine/internal/domain/progression"
)

// Catalog is everything the engine needs to know about game content.
type Catalog struct {
	Producers   []producer.Def
	Progression progression.Defs
	Golden      GoldenTable
	Events      EventTable
}

// Validate checks every part of the catalog.
func (c *Catalog) Validate() error {
	if len(c.Producers) == 0 {
		return fmt.Errorf("catalog has no producers")
	}
	ids := make(map[string]bool, len(c.Producers))
	for _, p := range c.Producers {
		if ids[p.ID] {
			return fmt.Errorf("duplicate producer %s", p.ID)
		}
		ids[p.ID] = true
	}
	for _, u := range c.Progression.Upgrades {
		if u.Effect.Kind == progression.ProducerBoost && !ids[u.Effect.Producer] {
			return fmt.Errorf("upgrade %s boosts unknown producer %s", u.ID, u.Effect.Producer)
		}
	}
	if len(c.Golden.outcomes) == 0 {
		return fmt.Errorf("catalog has no golden cookie outcomes")
	}
	return c.Progression.Validate()
}

// Producer returns the definition for id.
func (c *Catalog) Producer(id string) (producer.Def, bool) {
	for _, p := range c.Producers {
		if p.ID == id {
			return p, true
		}
	}
	return producer.Def{}, false
}

// Default returns the standard game catalog.
func Default() *Catalog {
	golden, err := NewGoldenTable(defaultGolden)
	if err != nil {
		panic(err) // static data
	}
	randomEvents, err := NewEventTable(defaultRandomEvents)
	if err != nil {
		panic(err)
	}
	return &Catalog{
		Producers: append([]producer.Def(nil), defaultProducers...),
		Progression: progression.Defs{
			Achievements: append([]progression.AchievementDef(nil), defaultAchievements...),
			Research:     append([]progression.ResearchDef(nil), defaultResearch...),
			Upgrades:     append([]progression.UpgradeDef(nil), defaultUpgrades...),
			Heavenly:     append([]progression.HeavenlyDef(nil), defaultHeavenly...),
		},
		Golden: golden,
		Events: randomEvents,
	}
}

var defaultProducers = []producer.Def{
	{ID: "cursor", Name: "Cursor", BaseCost: 15, BaseOutput: 0.1},
	{ID: "grandma", Name: "Grandma", BaseCost: 100, BaseOutput: 1},
	{ID: "farm", Name: "Cookie Farm", BaseCost: 1100, BaseOutput: 8},
	{ID: "mine", Name: "Cookie Mine", BaseCost: 12000, BaseOutput: 47},
	{ID: "factory", Name: "Cookie Factory", BaseCost: 130000, BaseOutput: 260},
	{ID: "bank", Name: "Cookie Bank", BaseCost: 1.4e6, BaseOutput: 1400},
	{ID: "temple", Name: "Cookie Temple", BaseCost: 2e7, BaseOutput: 7800},
	{ID: "wizard_tower", Name: "Wizard Tower", BaseCost: 3.3e8, BaseOutput: 44000},
	{ID: "shipment", Name: "Cookie Shipment", BaseCost: 5.1e9, BaseOutput: 260000},
	{ID: "alchemy_lab", Name: "Alchemy Lab", BaseCost: 7.5e10, BaseOutput: 1.6e6},
	{ID: "portal", Name: "Cookie Portal", BaseCost: 1e12, BaseOutput: 1e7},
	{ID: "time_machine", Name: "Time Machine", BaseCost: 1.4e13, BaseOutput: 6.5e7},
	{ID: "antimatter_condenser", Name: "Antimatter Condenser", BaseCost: 1.7e14, BaseOutput: 4.3e8},
	{ID: "prism", Name: "Prism", BaseCost: 2.1e15, BaseOutput: 2.9e9},
	{ID: "chancemaker", Name: "Chancemaker", BaseCost: 2.6e16, BaseOutput: 2.1e10},
}

func lifetime(n float64) progression.Condition {
	return progression.Condition{Metric: progression.MetricLifetimeProduced, Threshold: n}
}

func owns(id string, n float64) progression.Condition {
	return progression.Condition{Metric: progression.MetricProducerCount, Producer: id, Threshold: n}
}

func global(f float64) modifier.Spec {
	return modifier.Spec{Target: modifier.TargetGlobalProduction, Factor: f}
}

func click(f float64) modifier.Spec {
	return modifier.Spec{Target: modifier.TargetClickPower, Factor: f}
}

var defaultAchievements = []progression.AchievementDef{
	{ID: "cookie_rookie", Name: "Cookie Rookie", Condition: lifetime(100), Reward: global(1.01)},
	{ID: "cookie_professional", Name: "Cookie Professional", Condition: lifetime(1e4), Reward: global(1.02)},
	{ID: "cookie_master", Name: "Cookie Master", Condition: lifetime(1e6), Reward: global(1.05)},
	{ID: "cookie_grandmaster", Name: "Cookie Grandmaster", Condition: lifetime(1e9), Reward: global(1.10)},

	{ID: "click_beginner", Name: "Click Beginner",
		Condition: progression.Condition{Metric: progression.MetricTotalClicks, Threshold: 100}, Reward: click(1.1)},
	{ID: "click_enthusiast", Name: "Click Enthusiast",
		Condition: progression.Condition{Metric: progression.MetricTotalClicks, Threshold: 1000}, Reward: click(1.2)},
	{ID: "click_master", Name: "Click Master",
		Condition: progression.Condition{Metric: progression.MetricTotalClicks, Threshold: 10000}, Reward: click(1.5)},

	{ID: "cursor_collector", Name: "Cursor Collector", Condition: owns("cursor", 10),
		Reward: modifier.Spec{Target: modifier.ProducerTarget("cursor"), Factor: 1.5}},
	{ID: "grandma_gang", Name: "Grandma Gang", Condition: owns("grandma", 10),
		Reward: modifier.Spec{Target: modifier.ProducerTarget("grandma"), Factor: 1.5}},
	{ID: "farm_fanatic", Name: "Farm Fanatic", Condition: owns("farm", 10),
		Reward: modifier.Spec{Target: modifier.ProducerTarget("farm"), Factor: 1.5}},

	{ID: "golden_cookie_hunter", Name: "Golden Cookie Hunter",
		Condition: progression.Condition{Metric: progression.MetricGoldenClicks, Threshold: 10},
		Reward:    modifier.Spec{Target: modifier.TargetGoldenFrequency, Factor: 1.1}},
	{ID: "speed_baker", Name: "Speed Baker",
		Condition: progression.Condition{Metric: progression.MetricPeakRate, Threshold: 100}, Reward: global(1.05)},
	{ID: "quantum_baker", Name: "Quantum Baker",
		Condition: progression.Condition{Metric: progression.MetricResearchCompleted, Threshold: 3}, Reward: click(1.05)},

	{ID: "ascended", Name: "Ascended",
		Condition: progression.Condition{Metric: progression.MetricTotalResets, Threshold: 1}, Reward: global(1.1)},
	{ID: "transcended", Name: "Transcended",
		Condition: progression.Condition{Metric: progression.MetricTotalResets, Threshold: 10}, Reward: global(1.2)},
}

var defaultResearch = []progression.ResearchDef{
	{ID: "betterDough", Name: "Better Dough", Cost: 100, Duration: 60 * time.Second, Reward: global(1.5)},
	{ID: "cookieChemistry", Name: "Cookie Chemistry", Cost: 500, Duration: 180 * time.Second,
		Prerequisites: []string{"betterDough"}, Reward: click(2)},
	{ID: "quantumBaking", Name: "Quantum Baking", Cost: 1000, Duration: 300 * time.Second,
		Prerequisites: []string{"cookieChemistry"}, Reward: global(2)},
	{ID: "quantumTunneling", Name: "Quantum Tunneling", Cost: 5000, Duration: 600 * time.Second,
		Prerequisites: []string{"quantumBaking"}, Reward: click(3)},
	{ID: "timeCompression", Name: "Time Compression", Cost: 10000, Duration: 900 * time.Second,
		Prerequisites: []string{"quantumTunneling"}, Reward: global(2)},
	{ID: "temporalLoop", Name: "Temporal Loop", Cost: 50000, Duration: 1800 * time.Second,
		Prerequisites: []string{"timeCompression"}, Reward: global(3)},
	{ID: "dimensionalRift", Name: "Dimensional Rift", Cost: 100000, Duration: 3600 * time.Second,
		Prerequisites: []string{"temporalLoop"},
		Reward:        modifier.Spec{Target: modifier.TargetGoldenFrequency, Factor: 1.5}},
	{ID: "multiverse", Name: "Cookie Multiverse", Cost: 500000, Duration: 7200 * time.Second,
		Prerequisites: []string{"dimensionalRift"}, Reward: global(10)},
}

func boost(id string, f float64) progression.UpgradeEffect {
	return progression.UpgradeEffect{Kind: progression.ProducerBoost, Producer: id, Factor: f}
}

var defaultUpgrades = []progression.UpgradeDef{
	{ID: "reinforcedClicking", Name: "Reinforced Index Finger", Cost: 100, Requirement: owns("cursor", 1), Effect: boost("cursor", 2)},
	{ID: "carpalTunnel", Name: "Carpal Tunnel Prevention Cream", Cost: 500, Requirement: owns("cursor", 10), Effect: boost("cursor", 2)},
	{ID: "ambidextrous", Name: "Ambidextrous", Cost: 10000, Requirement: owns("cursor", 25), Effect: boost("cursor", 2)},

	{ID: "forwardsFromGrandma", Name: "Forwards from Grandma", Cost: 1000, Requirement: owns("grandma", 5), Effect: boost("grandma", 2)},
	{ID: "steelPlatedRollingPins", Name: "Steel-plated Rolling Pins", Cost: 5000, Requirement: owns("grandma", 15), Effect: boost("grandma", 2)},
	{ID: "lubricatedDentures", Name: "Lubricated Dentures", Cost: 50000, Requirement: owns("grandma", 25), Effect: boost("grandma", 2)},

	{ID: "cheaperHoes", Name: "Cheaper Hoes", Cost: 11000, Requirement: owns("farm", 5), Effect: boost("farm", 2)},
	{ID: "cookieTrees", Name: "Cookie Trees", Cost: 55000, Requirement: owns("farm", 15), Effect: boost("farm", 2)},
	{ID: "geneticallyModifiedCookies", Name: "Genetically Modified Cookies", Cost: 550000, Requirement: owns("farm", 25), Effect: boost("farm", 2)},

	{ID: "plasticMouse", Name: "Plastic Mouse", Cost: 50000, Requirement: lifetime(1e4),
		Effect: progression.UpgradeEffect{Kind: progression.ClickBoost, Factor: 2}},
	{ID: "ironMouse", Name: "Iron Mouse", Cost: 500000, Requirement: lifetime(1e5),
		Effect: progression.UpgradeEffect{Kind: progression.ClickBoost, Factor: 2}},
	{ID: "titaniumMouse", Name: "Titanium Mouse", Cost: 5e6, Requirement: lifetime(1e6),
		Effect: progression.UpgradeEffect{Kind: progression.ClickBoost, Factor: 2}},

	{ID: "overdrive", Name: "Overdrive", Cost: 1e6, Requirement: lifetime(5e5),
		Effect: progression.UpgradeEffect{Kind: progression.GlobalBoost, Factor: 2}},
	{ID: "ultimateOverdrive", Name: "Ultimate Overdrive", Cost: 1e7, Requirement: lifetime(5e6),
		Effect: progression.UpgradeEffect{Kind: progression.GlobalBoost, Factor: 3}},
	{ID: "quantumOverdrive", Name: "Quantum Overdrive", Cost: 1e8, Requirement: lifetime(5e7),
		Effect: progression.UpgradeEffect{Kind: progression.GlobalBoost, Factor: 5}},

	{ID: "luckyDay", Name: "Lucky Day", Cost: 777777, Requirement: progression.Condition{Metric: progression.MetricGoldenClicks, Threshold: 7},
		Effect: progression.UpgradeEffect{Kind: progression.FrequencyBoost, Factor: 2}},
}

var defaultHeavenly = []progression.HeavenlyDef{
	{ID: "heavenly_cookies", Name: "Heavenly Cookies", Cost: 1, Kind: progression.GlobalBoost, PerLevel: 0.01},
	{ID: "divine_bakery", Name: "Divine Bakery", Cost: 10, Kind: progression.GlobalBoost, PerLevel: 0.05},
	{ID: "cosmic_ovens", Name: "Cosmic Ovens", Cost: 50, Kind: progression.GlobalBoost, PerLevel: 0.10},
	{ID: "heavenly_fingers", Name: "Heavenly Fingers", Cost: 2, Kind: progression.ClickBoost, PerLevel: 0.01},
	{ID: "angel_clicks", Name: "Angel Clicks", Cost: 20, Kind: progression.ClickBoost, PerLevel: 0.05},
	{ID: "golden_wings", Name: "Golden Wings", Cost: 5, Kind: progression.FrequencyBoost, PerLevel: 0.05},
	{ID: "heavenly_inheritance", Name: "Heavenly Inheritance", Cost: 30, Kind: progression.StartingBonus, Share: 0.01},
}

var defaultGolden = []GoldenOutcome{
	{Name: "frenzy", Weight: 0.4, Kind: effect.KindFrenzy, Target: modifier.TargetGlobalProduction, Factor: 7, Duration: 77 * time.Second},
	{Name: "click_frenzy", Weight: 0.3, Kind: effect.KindClickFrenzy, Target: modifier.TargetClickPower, Factor: 777, Duration: 13 * time.Second},
	{Name: "cookie_storm", Weight: 0.2, LumpSeconds: 30},
	{Name: "dragon_harvest", Weight: 0.1, Kind: effect.KindDragonHarvest, Target: modifier.TargetGlobalProduction, Factor: 15, Duration: 60 * time.Second},
}
