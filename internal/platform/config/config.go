// Package config holds engine, server and storage tuning, with presets for
// development, production and load testing. Any field can be overridden from
// a YAML file.
package config

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full process configuration.
type Config struct {
	Engine  Engine  `yaml:"engine"`
	Server  Server  `yaml:"server"`
	Storage Storage `yaml:"storage"`
}

// Engine tunes the simulation.
type Engine struct {
	TickInterval     time.Duration `yaml:"tick_interval"`
	AutosaveInterval time.Duration `yaml:"autosave_interval"`

	// Producers
	GrowthBase        float64 `yaml:"growth_base"`
	Milestones        []int   `yaml:"milestones"`
	MilestoneStep     float64 `yaml:"milestone_step"`
	UpgradeMultiplier float64 `yaml:"upgrade_multiplier"`
	UpgradeCostBase   float64 `yaml:"upgrade_cost_base"`

	// Clicking
	BaseClickValue float64 `yaml:"base_click_value"`
	CritChance     float64 `yaml:"crit_chance"`
	CritMultiplier float64 `yaml:"crit_multiplier"`

	// Offline catch-up
	OfflineEfficiency float64 `yaml:"offline_efficiency"`

	// Prestige
	PrestigeThreshold float64 `yaml:"prestige_threshold"`
	PrestigeExponent  float64 `yaml:"prestige_exponent"`
	ChipBonusPerUnit  float64 `yaml:"chip_bonus_per_unit"`

	// Golden cookies
	GoldenEnabled     bool          `yaml:"golden_enabled"`
	GoldenMinInterval time.Duration `yaml:"golden_min_interval"`
	GoldenMaxInterval time.Duration `yaml:"golden_max_interval"`
	GoldenLifetime    time.Duration `yaml:"golden_lifetime"`

	// Random events: every RandomEventCheck one fires with RandomEventChance.
	RandomEventsEnabled bool          `yaml:"random_events_enabled"`
	RandomEventCheck    time.Duration `yaml:"random_event_check"`
	RandomEventChance   float64       `yaml:"random_event_chance"`

	// Research
	ResearchPointsPerBuilding float64 `yaml:"research_points_per_building"`
}

// Server tunes the websocket/HTTP surface.
type Server struct {
	Addr                 string  `yaml:"addr"`
	ClientSendBuffer     int     `yaml:"client_send_buffer"`
	BroadcastBuffer      int     `yaml:"broadcast_buffer"`
	MaxMessagesPerSecond float64 `yaml:"max_messages_per_second"`
	MessageBurst         int     `yaml:"message_burst"`
	MaxClients           int     `yaml:"max_clients"`
	EventRetention       int     `yaml:"event_retention"`
}

// Storage selects where saves and events go.
type Storage struct {
	SQLitePath   string `yaml:"sqlite_path"`
	Slot         string `yaml:"slot"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// DefaultEngine returns the classic game tuning.
func DefaultEngine() Engine {
	return Engine{
		TickInterval:     50 * time.Millisecond,
		AutosaveInterval: 30 * time.Second,

		GrowthBase:        1.15,
		Milestones:        []int{10, 25, 50, 100, 150, 200, 250, 300},
		MilestoneStep:     0.1,
		UpgradeMultiplier: 2,
		UpgradeCostBase:   10,

		BaseClickValue: 1,
		CritChance:     0.01,
		CritMultiplier: 10,

		OfflineEfficiency: 0.5,

		PrestigeThreshold: 1e12,
		PrestigeExponent:  0.5,
		ChipBonusPerUnit:  0.02,

		GoldenEnabled:     true,
		GoldenMinInterval: 120 * time.Second,
		GoldenMaxInterval: 300 * time.Second,
		GoldenLifetime:    13 * time.Second,

		RandomEventsEnabled: true,
		RandomEventCheck:    10 * time.Second,
		RandomEventChance:   0.01,

		ResearchPointsPerBuilding: 0.1,
	}
}

// Default returns sensible defaults for production.
func Default() *Config {
	numCPU := runtime.NumCPU()

	return &Config{
		Engine: DefaultEngine(),
		Server: Server{
			Addr:                 ":8080",
			ClientSendBuffer:     64,  // per websocket
			BroadcastBuffer:      256, // hub fan-out
			MaxMessagesPerSecond: 20,  // per client
			MessageBurst:         40,
			MaxClients:           200,
			EventRetention:       1000,
		},
		Storage: Storage{
			SQLitePath:   "cookie.db",
			Slot:         "default",
			MaxOpenConns: numCPU * 2,
		},
	}
}

// Stress returns aggressive settings for load testing with the autoclicker.
func Stress() *Config {
	c := Default()
	c.Server.ClientSendBuffer = 128
	c.Server.BroadcastBuffer = 512
	c.Server.MaxMessagesPerSecond = 500
	c.Server.MessageBurst = 1000
	c.Server.MaxClients = 500
	c.Server.EventRetention = 5000
	c.Storage.MaxOpenConns = runtime.NumCPU() * 4
	return c
}

// LowResource returns minimal settings for development.
func LowResource() *Config {
	c := Default()
	c.Engine.TickInterval = 200 * time.Millisecond
	c.Server.ClientSendBuffer = 8
	c.Server.BroadcastBuffer = 16
	c.Server.MaxMessagesPerSecond = 10
	c.Server.MessageBurst = 10
	c.Server.MaxClients = 20
	c.Server.EventRetention = 200
	c.Storage.MaxOpenConns = 2
	return c
}

// Preset returns a named preset: "default", "stress" or "low".
func Preset(name string) (*Config, error) {
	switch name {
	case "", "default":
		return Default(), nil
	case "stress":
		return Stress(), nil
	case "low", "low-resource":
		return LowResource(), nil
	default:
		return nil, fmt.Errorf("unknown config preset %q", name)
	}
}

// Load overlays the YAML file at path onto base. Fields absent from the file
// keep base's values.
func Load(path string, base *Config) (*Config, error) {
	if base == nil {
		base = Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := *base
	cfg.Engine.Milestones = append([]int(nil), base.Engine.Milestones...)
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if err := c.Engine.Validate(); err != nil {
		return err
	}
	if c.Server.ClientSendBuffer <= 0 || c.Server.BroadcastBuffer <= 0 {
		return fmt.Errorf("config: server buffers must be positive")
	}
	if c.Server.MaxMessagesPerSecond <= 0 || c.Server.MessageBurst <= 0 {
		return fmt.Errorf("config: message rate and burst must be positive")
	}
	if c.Storage.Slot == "" {
		return fmt.Errorf("config: storage slot must be named")
	}
	return nil
}

// Validate rejects engine tunings that break the game's invariants.
func (e Engine) Validate() error {
	switch {
	case e.TickInterval <= 0:
		return fmt.Errorf("config: tick_interval must be positive")
	case e.GrowthBase <= 1:
		return fmt.Errorf("config: growth_base must exceed 1")
	case e.MilestoneStep < 0:
		return fmt.Errorf("config: milestone_step must not be negative")
	case e.UpgradeMultiplier < 1 || e.UpgradeCostBase <= 1:
		return fmt.Errorf("config: upgrade multiplier and cost base must exceed 1")
	case e.BaseClickValue <= 0:
		return fmt.Errorf("config: base_click_value must be positive")
	case e.CritChance < 0 || e.CritChance > 1 || e.CritMultiplier < 1:
		return fmt.Errorf("config: crit_chance must be in [0,1] and crit_multiplier >= 1")
	case e.OfflineEfficiency < 0 || e.OfflineEfficiency > 1:
		return fmt.Errorf("config: offline_efficiency must be in [0,1]")
	case e.PrestigeThreshold <= 0 || e.PrestigeExponent <= 0:
		return fmt.Errorf("config: prestige threshold and exponent must be positive")
	case e.ChipBonusPerUnit < 0:
		return fmt.Errorf("config: chip_bonus_per_unit must not be negative")
	case e.GoldenEnabled && (e.GoldenMinInterval <= 0 || e.GoldenMaxInterval < e.GoldenMinInterval || e.GoldenLifetime <= 0):
		return fmt.Errorf("config: golden cookie window invalid")
	case e.RandomEventsEnabled && (e.RandomEventCheck <= 0 || e.RandomEventChance <= 0 || e.RandomEventChance > 1):
		return fmt.Errorf("config: random_event_check must be positive and random_event_chance in (0,1]")
	case e.ResearchPointsPerBuilding < 0:
		return fmt.Errorf("config: research_points_per_building must not be negative")
	}
	prev := 0
	for _, m := range e.Milestones {
		if m <= prev {
			return fmt.Errorf("config: milestones must be strictly increasing positive counts")
		}
		prev = m
	}
	return nil
}
