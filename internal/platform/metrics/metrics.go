// Package metrics provides observability for the cookie server.
package metrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Collector gathers performance and gameplay counters.
type Collector struct {
	// Tick metrics
	TickCount      int64
	TickLatencySum int64 // nanoseconds
	TickLatencyMax int64
	LastTickTime   time.Time

	// Commands
	CommandsAccepted int64
	CommandsRejected int64
	CommandsFailed   int64 // corrupt state or invariant violations

	// Progression
	Unlocks           int64
	ResearchCompleted int64
	Prestiges         int64
	GoldenClicks      int64
	EffectsStarted    int64

	// Persistence
	Saves        int64
	SaveLatSum   int64
	SaveLatMax   int64
	SaveErrors   int64
	CorruptLoads int64

	// Event metrics
	EventsWritten    int64
	EventWriteLatSum int64
	EventWriteLatMax int64
	EventWriteErrors int64

	// WebSocket metrics
	WSConnectionsActive int64
	WSMessagesIn        int64
	WSMessagesOut       int64
	WSErrors            int64
	WSRateLimited       int64

	// System
	StartTime time.Time
	mu        sync.RWMutex
}

// Global collector instance
var collector = &Collector{
	StartTime: time.Now(),
}

// Get returns the global collector.
func Get() *Collector {
	return collector
}

func storeMax(addr *int64, v int64) {
	for {
		cur := atomic.LoadInt64(addr)
		if v <= cur || atomic.CompareAndSwapInt64(addr, cur, v) {
			return
		}
	}
}

// RecordTick records a tick cycle completion.
func (c *Collector) RecordTick(latency time.Duration) {
	atomic.AddInt64(&c.TickCount, 1)
	atomic.AddInt64(&c.TickLatencySum, int64(latency))
	storeMax(&c.TickLatencyMax, int64(latency))

	c.mu.Lock()
	c.LastTickTime = time.Now()
	c.mu.Unlock()
}

// RecordCommand records the outcome of a player command. rejected means the
// command was refused with state unchanged; any other error counts as failed.
func (c *Collector) RecordCommand(err error, rejected bool) {
	switch {
	case err == nil:
		atomic.AddInt64(&c.CommandsAccepted, 1)
	case rejected:
		atomic.AddInt64(&c.CommandsRejected, 1)
	default:
		atomic.AddInt64(&c.CommandsFailed, 1)
	}
}

// RecordUnlock records an achievement unlock.
func (c *Collector) RecordUnlock() { atomic.AddInt64(&c.Unlocks, 1) }

// RecordResearch records a completed research node.
func (c *Collector) RecordResearch() { atomic.AddInt64(&c.ResearchCompleted, 1) }

// RecordPrestige records a prestige reset.
func (c *Collector) RecordPrestige() { atomic.AddInt64(&c.Prestiges, 1) }

// RecordGoldenClick records a clicked golden cookie.
func (c *Collector) RecordGoldenClick() { atomic.AddInt64(&c.GoldenClicks, 1) }

// RecordEffect records a timed effect activation.
func (c *Collector) RecordEffect() { atomic.AddInt64(&c.EffectsStarted, 1) }

// RecordSave records a save to storage.
func (c *Collector) RecordSave(latency time.Duration, err error) {
	atomic.AddInt64(&c.Saves, 1)
	atomic.AddInt64(&c.SaveLatSum, int64(latency))
	storeMax(&c.SaveLatMax, int64(latency))
	if err != nil {
		atomic.AddInt64(&c.SaveErrors, 1)
	}
}

// RecordCorruptLoad records a save that fell back to a fresh start.
func (c *Collector) RecordCorruptLoad() { atomic.AddInt64(&c.CorruptLoads, 1) }

// RecordEventWrite records an event write to the database.
func (c *Collector) RecordEventWrite(latency time.Duration, err error) {
	atomic.AddInt64(&c.EventsWritten, 1)
	atomic.AddInt64(&c.EventWriteLatSum, int64(latency))
	storeMax(&c.EventWriteLatMax, int64(latency))

	if err != nil {
		atomic.AddInt64(&c.EventWriteErrors, 1)
	}
}

// RecordWSConnection records WebSocket connection changes.
func (c *Collector) RecordWSConnection(delta int64) {
	atomic.AddInt64(&c.WSConnectionsActive, delta)
}

// RecordWSMessage records WebSocket messages.
func (c *Collector) RecordWSMessage(incoming bool) {
	if incoming {
		atomic.AddInt64(&c.WSMessagesIn, 1)
	} else {
		atomic.AddInt64(&c.WSMessagesOut, 1)
	}
}

// RecordWSError records a WebSocket error.
func (c *Collector) RecordWSError() {
	atomic.AddInt64(&c.WSErrors, 1)
}

// RecordRateLimited records a command dropped by the per-client limiter.
func (c *Collector) RecordRateLimited() {
	atomic.AddInt64(&c.WSRateLimited, 1)
}

func avgMillis(sum, n int64) float64 {
	if n == 0 {
		return 0
	}
	return float64(sum) / float64(n) / 1e6
}

// Snapshot returns current metrics as a map.
func (c *Collector) Snapshot() map[string]interface{} {
	c.mu.RLock()
	lastTick := c.LastTickTime
	c.mu.RUnlock()

	tickCount := atomic.LoadInt64(&c.TickCount)
	eventsWritten := atomic.LoadInt64(&c.EventsWritten)
	saves := atomic.LoadInt64(&c.Saves)

	return map[string]interface{}{
		"uptime_seconds": time.Since(c.StartTime).Seconds(),

		"tick": map[string]interface{}{
			"count":          tickCount,
			"avg_latency_ms": avgMillis(atomic.LoadInt64(&c.TickLatencySum), tickCount),
			"max_latency_ms": float64(atomic.LoadInt64(&c.TickLatencyMax)) / 1e6,
			"last_tick":      lastTick.Format(time.RFC3339),
		},

		"commands": map[string]interface{}{
			"accepted": atomic.LoadInt64(&c.CommandsAccepted),
			"rejected": atomic.LoadInt64(&c.CommandsRejected),
			"failed":   atomic.LoadInt64(&c.CommandsFailed),
		},

		"progression": map[string]interface{}{
			"unlocks":            atomic.LoadInt64(&c.Unlocks),
			"research_completed": atomic.LoadInt64(&c.ResearchCompleted),
			"prestiges":          atomic.LoadInt64(&c.Prestiges),
			"golden_clicks":      atomic.LoadInt64(&c.GoldenClicks),
			"effects_started":    atomic.LoadInt64(&c.EffectsStarted),
		},

		"saves": map[string]interface{}{
			"count":         saves,
			"avg_lat_ms":    avgMillis(atomic.LoadInt64(&c.SaveLatSum), saves),
			"max_lat_ms":    float64(atomic.LoadInt64(&c.SaveLatMax)) / 1e6,
			"errors":        atomic.LoadInt64(&c.SaveErrors),
			"corrupt_loads": atomic.LoadInt64(&c.CorruptLoads),
		},

		"events": map[string]interface{}{
			"written":          eventsWritten,
			"avg_write_lat_ms": avgMillis(atomic.LoadInt64(&c.EventWriteLatSum), eventsWritten),
			"max_write_lat_ms": float64(atomic.LoadInt64(&c.EventWriteLatMax)) / 1e6,
			"errors":           atomic.LoadInt64(&c.EventWriteErrors),
		},

		"websocket": map[string]interface{}{
			"active_connections": atomic.LoadInt64(&c.WSConnectionsActive),
			"messages_in":        atomic.LoadInt64(&c.WSMessagesIn),
			"messages_out":       atomic.LoadInt64(&c.WSMessagesOut),
			"errors":             atomic.LoadInt64(&c.WSErrors),
			"rate_limited":       atomic.LoadInt64(&c.WSRateLimited),
		},
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")

		snapshot := collector.Snapshot()
		json.NewEncoder(w).Encode(snapshot)
	}
}

// PrometheusHandler returns metrics in Prometheus format.
func PrometheusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		c := collector
		counter := func(name, help string, v int64) {
			fmt.Fprintf(w, "# HELP cookie_%s %s\n", name, help)
			fmt.Fprintf(w, "# TYPE cookie_%s counter\n", name)
			fmt.Fprintf(w, "cookie_%s %d\n\n", name, v)
		}

		counter("tick_count", "Total tick cycles", atomic.LoadInt64(&c.TickCount))

		fmt.Fprintf(w, "# HELP cookie_tick_latency_max_ms Maximum tick latency\n")
		fmt.Fprintf(w, "# TYPE cookie_tick_latency_max_ms gauge\n")
		fmt.Fprintf(w, "cookie_tick_latency_max_ms %.2f\n\n", float64(atomic.LoadInt64(&c.TickLatencyMax))/1e6)

		fmt.Fprintf(w, "# HELP cookie_commands_total Player commands by outcome\n")
		fmt.Fprintf(w, "# TYPE cookie_commands_total counter\n")
		fmt.Fprintf(w, "cookie_commands_total{outcome=\"accepted\"} %d\n", atomic.LoadInt64(&c.CommandsAccepted))
		fmt.Fprintf(w, "cookie_commands_total{outcome=\"rejected\"} %d\n", atomic.LoadInt64(&c.CommandsRejected))
		fmt.Fprintf(w, "cookie_commands_total{outcome=\"failed\"} %d\n\n", atomic.LoadInt64(&c.CommandsFailed))

		counter("unlocks", "Achievements unlocked", atomic.LoadInt64(&c.Unlocks))
		counter("research_completed", "Research nodes completed", atomic.LoadInt64(&c.ResearchCompleted))
		counter("prestiges", "Prestige resets", atomic.LoadInt64(&c.Prestiges))
		counter("golden_clicks", "Golden cookies clicked", atomic.LoadInt64(&c.GoldenClicks))
		counter("saves", "Saves written", atomic.LoadInt64(&c.Saves))
		counter("save_errors", "Failed saves", atomic.LoadInt64(&c.SaveErrors))
		counter("events_written", "Total events written", atomic.LoadInt64(&c.EventsWritten))
		counter("event_write_errors", "Total event write errors", atomic.LoadInt64(&c.EventWriteErrors))

		fmt.Fprintf(w, "# HELP cookie_ws_connections Active WebSocket connections\n")
		fmt.Fprintf(w, "# TYPE cookie_ws_connections gauge\n")
		fmt.Fprintf(w, "cookie_ws_connections %d\n\n", atomic.LoadInt64(&c.WSConnectionsActive))

		fmt.Fprintf(w, "# HELP cookie_ws_messages_total Total WebSocket messages\n")
		fmt.Fprintf(w, "# TYPE cookie_ws_messages_total counter\n")
		fmt.Fprintf(w, "cookie_ws_messages_total{direction=\"in\"} %d\n", atomic.LoadInt64(&c.WSMessagesIn))
		fmt.Fprintf(w, "cookie_ws_messages_total{direction=\"out\"} %d\n\n", atomic.LoadInt64(&c.WSMessagesOut))

		counter("ws_rate_limited", "Commands dropped by rate limiting", atomic.LoadInt64(&c.WSRateLimited))
	}
}
