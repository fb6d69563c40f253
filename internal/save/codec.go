// Package save is the persistence codec: a versioned JSON snapshot of the
// whole game. Decoding is tolerant of missing and unknown fields so saves
// survive additive schema changes, and strict about values that would break
// engine invariants.
package save

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/MRamiBalles/cookie-engine/internal/domain/gameerr"
	"github.com/MRamiBalles/cookie-engine/internal/domain/modifier"
)

// Version is written into every new save.
const Version = 2

// Snapshot is the persisted state layout.
type Snapshot struct {
	Version          int                 `json:"version"`
	Balance          float64             `json:"balance"`
	LifetimeProduced float64             `json:"lifetimeProduced"`
	TotalClicks      int64               `json:"totalClicks"`
	GoldenClicks     int64               `json:"goldenClicks,omitempty"`
	PeakRate         float64             `json:"peakRate,omitempty"`
	Producers        []Producer          `json:"producers"`
	Modifiers        []modifier.Modifier `json:"modifiers"`
	Achievements     []Achievement       `json:"achievements"`
	Research         Research            `json:"research"`
	Prestige         Prestige            `json:"prestige"`
	Upgrades         []string            `json:"upgrades,omitempty"`
	HeavenlyUpgrades []string            `json:"heavenlyUpgrades,omitempty"`

	// Unix milliseconds.
	LastSaveTimestamp int64 `json:"lastSaveTimestamp"`
}

// Producer is one producer's progress.
type Producer struct {
	ID                   string  `json:"id"`
	Count                int     `json:"count"`
	EfficiencyMultiplier float64 `json:"efficiencyMultiplier"`
	Level                int     `json:"level"`
	Milestones           *int    `json:"milestones,omitempty"` // absent in v1 saves
}

// Achievement is an achievement's unlock flag.
type Achievement struct {
	ID       string `json:"id"`
	Unlocked bool   `json:"unlocked"`
}

// Research is the research tree state.
type Research struct {
	Completed  []string    `json:"completed"`
	InProgress *InProgress `json:"inProgress"`
	Points     float64     `json:"points"`
}

// InProgress is the busy research slot. Progress is in seconds.
type InProgress struct {
	ID       string  `json:"id"`
	Progress float64 `json:"progress"`
}

// Prestige is the prestige state.
type Prestige struct {
	HeavenlyUnits int64 `json:"heavenlyUnits"`
	TotalResets   int64 `json:"totalResets"`
	SpentUnits    int64 `json:"spentUnits,omitempty"`
}

// SavedAt returns the save time, or the zero time when unknown.
func (s Snapshot) SavedAt() time.Time {
	if s.LastSaveTimestamp <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(s.LastSaveTimestamp)
}

// Stamp sets the save time.
func (s *Snapshot) Stamp(t time.Time) {
	s.LastSaveTimestamp = t.UnixMilli()
}

// UnlockedAchievements lists the ids flagged as unlocked.
func (s Snapshot) UnlockedAchievements() []string {
	var ids []string
	for _, a := range s.Achievements {
		if a.Unlocked {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

// Encode serializes s.
func Encode(s Snapshot) ([]byte, error) {
	if s.Version == 0 {
		s.Version = Version
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode save: %w", err)
	}
	return data, nil
}

// Decode parses and validates a save. Any failure is a CorruptSaveError; the
// caller must not use a partially decoded snapshot.
func Decode(data []byte) (Snapshot, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Snapshot{}, gameerr.Corrupt("empty save", nil)
	}
	if trimmed[0] != '{' {
		return Snapshot{}, gameerr.Corrupt("save is not a JSON object", nil)
	}
	var s Snapshot
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return Snapshot{}, gameerr.Corrupt("malformed JSON", err)
	}
	if err := Validate(s); err != nil {
		return Snapshot{}, err
	}
	if s.Version == 0 {
		s.Version = 1
	}
	return s, nil
}

// Validate checks value ranges and uniqueness constraints.
func Validate(s Snapshot) error {
	if s.Version < 0 {
		return gameerr.Corrupt(fmt.Sprintf("bad version %d", s.Version), nil)
	}
	if !nonNegative(s.Balance) || !nonNegative(s.LifetimeProduced) {
		return gameerr.Corrupt("negative or non-finite balance", nil)
	}
	if !nonNegative(s.PeakRate) {
		return gameerr.Corrupt("negative or non-finite peak rate", nil)
	}
	if s.TotalClicks < 0 || s.GoldenClicks < 0 {
		return gameerr.Corrupt("negative click totals", nil)
	}

	seen := make(map[string]bool, len(s.Producers))
	for _, p := range s.Producers {
		if p.ID == "" || seen[p.ID] {
			return gameerr.Corrupt(fmt.Sprintf("producer id %q missing or repeated", p.ID), nil)
		}
		seen[p.ID] = true
		if p.Count < 0 || p.Level < 0 || (p.Milestones != nil && *p.Milestones < 0) {
			return gameerr.Corrupt("producer "+p.ID+" has negative progress", nil)
		}
		if p.EfficiencyMultiplier != 0 && (p.EfficiencyMultiplier < 1 || !nonNegative(p.EfficiencyMultiplier)) {
			return gameerr.Corrupt("producer "+p.ID+" efficiency below 1", nil)
		}
	}

	type key struct{ target, source string }
	mods := make(map[key]bool, len(s.Modifiers))
	for _, m := range s.Modifiers {
		if !m.Target.Valid() || m.Source == "" {
			return gameerr.Corrupt(fmt.Sprintf("invalid modifier %q from %q", m.Target, m.Source), nil)
		}
		if !(m.Factor > 0) || math.IsInf(m.Factor, 0) {
			return gameerr.Corrupt("modifier "+m.Source+" has a non-positive factor", nil)
		}
		k := key{string(m.Target), m.Source}
		if mods[k] {
			return gameerr.Corrupt("modifier "+m.Source+" applied twice to "+string(m.Target), nil)
		}
		mods[k] = true
	}

	if !nonNegative(s.Research.Points) {
		return gameerr.Corrupt("negative research points", nil)
	}
	if ip := s.Research.InProgress; ip != nil && (ip.ID == "" || !nonNegative(ip.Progress)) {
		return gameerr.Corrupt("malformed research in progress", nil)
	}
	p := s.Prestige
	if p.HeavenlyUnits < 0 || p.TotalResets < 0 || p.SpentUnits < 0 || p.SpentUnits > p.HeavenlyUnits {
		return gameerr.Corrupt("prestige state out of range", nil)
	}
	return nil
}

func nonNegative(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
