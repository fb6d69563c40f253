// Package storage - reconstructor.go
// Offline recap: what happened in a save slot since a point in time,
// rebuilt from the persisted notification log.
package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Reconstructor builds recaps from the event log.
type Reconstructor struct {
	eventRepo EventRepository
}

// NewReconstructor creates a new recap builder.
func NewReconstructor(eventRepo EventRepository) *Reconstructor {
	return &Reconstructor{eventRepo: eventRepo}
}

// RecapEvent is a simplified event for the recap screen.
type RecapEvent struct {
	Timestamp time.Time `json:"timestamp"`
	EventType string    `json:"event_type"`
	Summary   string    `json:"summary"` // Human-readable description
	Impact    string    `json:"impact"`  // "POSITIVE", "NEGATIVE", "NEUTRAL"
}

// RecapTotals aggregates a recap.
type RecapTotals struct {
	Purchases     int     `json:"purchases"`
	Unlocks       int     `json:"unlocks"`
	Research      int     `json:"research"`
	Prestiges     int     `json:"prestiges"`
	GoldenClicks  int     `json:"golden_clicks"`
	RandomEvents  int     `json:"random_events"`
	Rewarded      float64 `json:"rewarded"`
	OfflineCredit float64 `json:"offline_credit"`
}

// GenerateRecap lists the events of slot recorded after since.
func (r *Reconstructor) GenerateRecap(ctx context.Context, slot string, since time.Time) ([]RecapEvent, RecapTotals, error) {
	events, err := r.eventRepo.Since(ctx, slot, since)
	if err != nil {
		return nil, RecapTotals{}, fmt.Errorf("failed to get events for recap: %w", err)
	}

	var recap []RecapEvent
	var totals RecapTotals
	for _, e := range events {
		r.accumulate(&totals, e)
		recap = append(recap, RecapEvent{
			Timestamp: e.Timestamp,
			EventType: e.EventType,
			Summary:   r.summarizeEvent(e),
			Impact:    r.determineImpact(e),
		})
	}
	return recap, totals, nil
}

func (r *Reconstructor) accumulate(t *RecapTotals, e StoredEvent) {
	switch e.EventType {
	case "PURCHASE":
		t.Purchases++
	case "UNLOCK":
		t.Unlocks++
	case "RESEARCH_COMPLETE":
		t.Research++
	case "PRESTIGE":
		t.Prestiges++
	case "GOLDEN_CLICK":
		t.GoldenClicks++
		t.Rewarded += number(e.Payload, "amount")
	case "REWARD":
		t.Rewarded += number(e.Payload, "amount")
	case "OFFLINE_CREDIT":
		t.OfflineCredit += number(e.Payload, "credit")
	case "RANDOM_EVENT":
		t.RandomEvents++
	case "CONTEST_END":
		t.Rewarded += number(e.Payload, "prize")
	}
}

func number(payload map[string]interface{}, key string) float64 {
	if v, ok := payload[key].(float64); ok {
		return v
	}
	return 0
}

// summarizeEvent creates a human-readable summary.
func (r *Reconstructor) summarizeEvent(e StoredEvent) string {
	switch e.EventType {
	case "PURCHASE":
		return fmt.Sprintf("Bought %s for %s cookies.", e.TargetID, cookies(number(e.Payload, "cost")))
	case "UPGRADE":
		return fmt.Sprintf("Upgraded %s to level %d.", e.TargetID, int(number(e.Payload, "level")))
	case "MILESTONE":
		return fmt.Sprintf("%s reached %d owned.", e.TargetID, int(number(e.Payload, "threshold")))
	case "UNLOCK":
		return "Achievement unlocked: " + e.TargetID + "."
	case "RESEARCH_START":
		return "Research started: " + e.TargetID + "."
	case "RESEARCH_COMPLETE":
		return "Research complete: " + e.TargetID + "."
	case "PRESTIGE":
		return fmt.Sprintf("Ascended for %s heavenly units.", humanize.Comma(int64(number(e.Payload, "gain"))))
	case "EFFECT_START":
		return fmt.Sprintf("%s started (x%g).", e.TargetID, number(e.Payload, "factor"))
	case "EFFECT_END":
		return e.TargetID + " wore off."
	case "GOLDEN_CLICK":
		if amt := number(e.Payload, "amount"); amt > 0 {
			return fmt.Sprintf("Golden cookie: %s cookies.", cookies(amt))
		}
		return fmt.Sprintf("Golden cookie: %v.", e.Payload["outcome"])
	case "GOLDEN_DESPAWN":
		return "A golden cookie got away."
	case "REWARD":
		return fmt.Sprintf("%s paid %s cookies.", e.ActorID, cookies(number(e.Payload, "amount")))
	case "OFFLINE_CREDIT":
		return fmt.Sprintf("Baked %s cookies while away.", cookies(number(e.Payload, "credit")))
	case "RANDOM_EVENT":
		return fmt.Sprintf("Event: %s for %ds.", e.TargetID, int(number(e.Payload, "duration_seconds")))
	case "CONTEST_END":
		return fmt.Sprintf("Contest over: %d clicks won %s cookies.", int(number(e.Payload, "clicks")),
			cookies(number(e.Payload, "prize")))
	default:
		return e.EventType
	}
}

// determineImpact classifies the event impact.
func (r *Reconstructor) determineImpact(e StoredEvent) string {
	switch e.EventType {
	case "UNLOCK", "RESEARCH_COMPLETE", "PRESTIGE", "GOLDEN_CLICK", "REWARD", "OFFLINE_CREDIT", "MILESTONE", "CONTEST_END":
		return "POSITIVE"
	case "GOLDEN_DESPAWN", "EFFECT_END":
		return "NEGATIVE"
	default:
		return "NEUTRAL"
	}
}

// cookies renders an amount with an SI prefix, "1.5 k" or "80".
func cookies(v float64) string {
	return strings.TrimSpace(humanize.SIWithDigits(v, 2, ""))
}
