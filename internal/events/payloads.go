package events

// TickPayload is the state summary carried by TICK events.
type TickPayload struct {
	Balance          float64 `json:"balance"`
	LifetimeProduced float64 `json:"lifetime_produced"`
	Rate             float64 `json:"rate"`
	Produced         float64 `json:"produced"`
	ResearchPoints   float64 `json:"research_points"`
}

// PurchasePayload describes a producer purchase or upgrade.
type PurchasePayload struct {
	Cost       float64 `json:"cost"`
	Count      int     `json:"count"`
	Level      int     `json:"level,omitempty"`
	Efficiency float64 `json:"efficiency,omitempty"`
}

// MilestonePayload describes a producer crossing an ownership threshold.
type MilestonePayload struct {
	Threshold  int     `json:"threshold"`
	Efficiency float64 `json:"efficiency"`
	Level      int     `json:"level"`
}

// EffectPayload describes a timed effect starting or ending.
type EffectPayload struct {
	Target          string  `json:"target"`
	Factor          float64 `json:"factor"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	Replaced        bool    `json:"replaced,omitempty"`
}

// PrestigePayload describes a prestige reset.
type PrestigePayload struct {
	Gain          int64   `json:"gain"`
	HeavenlyUnits int64   `json:"heavenly_units"`
	TotalResets   int64   `json:"total_resets"`
	Carried       float64 `json:"carried,omitempty"` // balance kept by starting bonuses
}

// GoldenPayload describes a golden cookie spawn, despawn or click.
type GoldenPayload struct {
	SpawnID         string  `json:"spawn_id"`
	Outcome         string  `json:"outcome,omitempty"`
	Amount          float64 `json:"amount,omitempty"`
	LifetimeSeconds float64 `json:"lifetime_seconds,omitempty"`
}

// RewardPayload describes a lump-sum credit.
type RewardPayload struct {
	Source string  `json:"source"`
	Amount float64 `json:"amount"`
}

// OfflinePayload describes the catch-up credit applied on load.
type OfflinePayload struct {
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	Credit         float64 `json:"credit"`
	Rate           float64 `json:"rate"`
}

// RandomEventPayload describes a random event starting.
type RandomEventPayload struct {
	Effect          string  `json:"effect,omitempty"`
	DurationSeconds float64 `json:"duration_seconds"`
	Contest         bool    `json:"contest,omitempty"`
}

// ContestPayload describes the end of a click contest.
type ContestPayload struct {
	Clicks int64   `json:"clicks"`
	Prize  float64 `json:"prize"`
}
