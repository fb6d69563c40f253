package config

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// Recommendations are tuning suggestions derived from observed metrics.
type Recommendations struct {
	IncreaseSendBuffer  bool
	IncreaseMessageRate bool
	IncreaseConnections bool
	SlowDownTicks       bool
	Notes               []string
}

// ReadSnapshot decodes a metrics snapshot served as JSON by /metrics.
func ReadSnapshot(r io.Reader) (map[string]interface{}, error) {
	var snap map[string]interface{}
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode metrics snapshot: %w", err)
	}
	return snap, nil
}

// number reads a counter or gauge. In-process snapshots carry int64 counters;
// decoded JSON carries float64.
func number(section map[string]interface{}, key string) (float64, bool) {
	switch v := section[key].(type) {
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

// Analyze examines a metrics snapshot (as produced by metrics.Collector, live
// or decoded by ReadSnapshot) and returns recommendations for cfg.
func Analyze(cfg *Config, snapshot map[string]interface{}) *Recommendations {
	rec := &Recommendations{
		Notes: make([]string, 0),
	}

	if tick, ok := snapshot["tick"].(map[string]interface{}); ok {
		budget := float64(cfg.Engine.TickInterval) / float64(time.Millisecond)
		if maxLat, ok := number(tick, "max_latency_ms"); ok && maxLat > budget {
			rec.SlowDownTicks = true
			rec.Notes = append(rec.Notes, "Tick latency exceeds the tick interval - raise tick_interval")
		}
	}

	if saves, ok := snapshot["saves"].(map[string]interface{}); ok {
		if errs, ok := number(saves, "errors"); ok && errs > 0 {
			rec.IncreaseConnections = true
			rec.Notes = append(rec.Notes, "Save errors detected - check the database connection pool")
		}
	}

	if events, ok := snapshot["events"].(map[string]interface{}); ok {
		if maxLat, ok := number(events, "max_write_lat_ms"); ok && maxLat > 50 {
			rec.IncreaseConnections = true
			rec.Notes = append(rec.Notes, "Event write latency exceeds 50ms - increase DB connections")
		}
	}

	if ws, ok := snapshot["websocket"].(map[string]interface{}); ok {
		if errs, ok := number(ws, "errors"); ok && errs > 0 {
			rec.IncreaseSendBuffer = true
			rec.Notes = append(rec.Notes, "WebSocket errors detected - increase client send buffer")
		}
		if limited, ok := number(ws, "rate_limited"); ok && limited > 0 {
			rec.IncreaseMessageRate = true
			rec.Notes = append(rec.Notes, "Clients hit the command rate limit")
		}
	}

	return rec
}

// ApplyRecommendations returns a copy of cfg with rec applied.
func ApplyRecommendations(cfg *Config, rec *Recommendations) *Config {
	out := *cfg
	if rec.IncreaseSendBuffer {
		out.Server.ClientSendBuffer *= 2
		out.Server.BroadcastBuffer *= 2
	}
	if rec.IncreaseMessageRate {
		out.Server.MaxMessagesPerSecond *= 1.5
		out.Server.MessageBurst *= 2
	}
	if rec.IncreaseConnections {
		out.Storage.MaxOpenConns = int(float64(out.Storage.MaxOpenConns)*1.5) + 1
	}
	if rec.SlowDownTicks {
		out.Engine.TickInterval *= 2
	}
	return &out
}
