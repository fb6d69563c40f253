package network

import (
	"encoding/json"
	"net/http"

	"github.com/MRamiBalles/cookie-engine/internal/domain/gameerr"
	"github.com/MRamiBalles/cookie-engine/internal/platform/logger"
)

// TriggerBridge lets outside systems (minigames, scripted events, admin
// tools) push effects and rewards into the engine over HTTP.
type TriggerBridge struct {
	commander Commander
	logger    *logger.Logger
}

// NewTriggerBridge creates a new bridge.
func NewTriggerBridge(cmd Commander, log *logger.Logger) *TriggerBridge {
	return &TriggerBridge{commander: cmd, logger: log}
}

// RewardRequest grants a lump sum from a named source.
type RewardRequest struct {
	Source string  `json:"source"`
	Amount float64 `json:"amount"`
}

// RandomEventRequest starts a named random event.
type RandomEventRequest struct {
	Name string `json:"name"`
}

// HandleActivateEffect starts a timed effect.
// POST /api/effects/activate
func (tb *TriggerBridge) HandleActivateEffect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req EffectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	te, err := req.Effect()
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := tb.commander.ActivateEffect(te); err != nil {
		tb.reject(w, err)
		return
	}

	tb.logger.Event("EFFECT_TRIGGERED", "bridge", req.Kind+" on "+req.Target)
	jsonSuccess(w, map[string]interface{}{
		"success": true,
		"kind":    req.Kind,
		"effects": tb.commander.State().Effects,
	})
}

// HandleReward credits a lump sum.
// POST /api/rewards
func (tb *TriggerBridge) HandleReward(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req RewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := tb.commander.Reward(req.Source, req.Amount); err != nil {
		tb.reject(w, err)
		return
	}

	jsonSuccess(w, map[string]interface{}{
		"success": true,
		"balance": tb.commander.State().Balance,
	})
}

// HandleRandomEvent starts a random event by name.
// POST /api/events/trigger
func (tb *TriggerBridge) HandleRandomEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req RandomEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := tb.commander.TriggerRandomEvent(req.Name); err != nil {
		tb.reject(w, err)
		return
	}

	tb.logger.Event("RANDOM_EVENT_TRIGGERED", "bridge", req.Name)
	jsonSuccess(w, map[string]interface{}{
		"success": true,
		"name":    req.Name,
		"effects": tb.commander.State().Effects,
	})
}

// HandleState returns the full game state.
// GET /api/state
func (tb *TriggerBridge) HandleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	jsonSuccess(w, tb.commander.State())
}

func (tb *TriggerBridge) reject(w http.ResponseWriter, err error) {
	status := http.StatusUnprocessableEntity
	if !gameerr.IsRejected(err) {
		status = http.StatusInternalServerError
		tb.logger.Errorf("bridge command failed: %v", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error(), "code": gameerr.Code(err)})
}

// RegisterRoutes sets up the bridge API routes.
func (tb *TriggerBridge) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/effects/activate", tb.HandleActivateEffect)
	mux.HandleFunc("/api/rewards", tb.HandleReward)
	mux.HandleFunc("/api/events/trigger", tb.HandleRandomEvent)
	mux.HandleFunc("/api/state", tb.HandleState)
}
