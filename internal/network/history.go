package network

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/MRamiBalles/cookie-engine/internal/events"
	"github.com/MRamiBalles/cookie-engine/internal/infra/storage"
	"github.com/MRamiBalles/cookie-engine/internal/platform/logger"
)

// Recapper rebuilds what happened in a save slot from persisted events.
type Recapper interface {
	GenerateRecap(ctx context.Context, slot string, since time.Time) ([]storage.RecapEvent, storage.RecapTotals, error)
}

// HistoryHandler serves the notification log over HTTP.
type HistoryHandler struct {
	eventLog *events.EventLog
	recap    Recapper
	slot     string
	logger   *logger.Logger
}

// NewHistoryHandler creates a handler. recap may be nil, in which case the
// recap endpoint answers 404.
func NewHistoryHandler(eventLog *events.EventLog, recap Recapper, slot string, log *logger.Logger) *HistoryHandler {
	return &HistoryHandler{eventLog: eventLog, recap: recap, slot: slot, logger: log}
}

// HistoryResponse is the body of GET /api/history.
type HistoryResponse struct {
	GeneratedAt string             `json:"generated_at"`
	LastSeq     int64              `json:"last_seq"`
	Total       int                `json:"total"`
	Events      []events.GameEvent `json:"events"`
}

// HandleHistory returns recent in-memory events.
// GET /api/history?type=PURCHASE&limit=50&since_seq=120
func (hh *HistoryHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	limit := 100
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			jsonError(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	var list []events.GameEvent
	if raw := q.Get("since_seq"); raw != "" {
		seq, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			jsonError(w, "Invalid since_seq", http.StatusBadRequest)
			return
		}
		for _, e := range hh.eventLog.Since(seq) {
			if t := q.Get("type"); t == "" || string(e.Type) == t {
				list = append(list, e)
			}
		}
		if limit > 0 && len(list) > limit {
			list = list[len(list)-limit:]
		}
	} else {
		list = hh.eventLog.ByType(events.EventType(q.Get("type")), limit)
	}
	if list == nil {
		list = []events.GameEvent{}
	}

	jsonSuccess(w, HistoryResponse{
		GeneratedAt: time.Now().Format(time.RFC3339),
		LastSeq:     hh.eventLog.LastSeq(),
		Total:       len(list),
		Events:      list,
	})
}

// HandleRecap summarizes persisted events since a point in time.
// GET /api/recap?since=2024-01-01T00:00:00Z
func (hh *HistoryHandler) HandleRecap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if hh.recap == nil {
		jsonError(w, "Recap unavailable", http.StatusNotFound)
		return
	}

	since := time.Now().Add(-24 * time.Hour)
	if raw := r.URL.Query().Get("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			jsonError(w, "Invalid since, want RFC3339", http.StatusBadRequest)
			return
		}
		since = t
	}

	recap, totals, err := hh.recap.GenerateRecap(r.Context(), hh.slot, since)
	if err != nil {
		hh.logger.Errorf("recap for slot %s: %v", hh.slot, err)
		jsonError(w, "Recap failed", http.StatusInternalServerError)
		return
	}
	if recap == nil {
		recap = []storage.RecapEvent{}
	}
	jsonSuccess(w, map[string]interface{}{
		"slot":   hh.slot,
		"since":  since.Format(time.RFC3339),
		"totals": totals,
		"events": recap,
	})
}

// RegisterRoutes sets up the history API routes.
func (hh *HistoryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/history", hh.HandleHistory)
	mux.HandleFunc("/api/recap", hh.HandleRecap)
}

// jsonError sends an error response.
func jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// jsonSuccess sends a success response.
func jsonSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(data)
}
