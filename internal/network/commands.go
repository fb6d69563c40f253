package network

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MRamiBalles/cookie-engine/internal/domain/effect"
	"github.com/MRamiBalles/cookie-engine/internal/domain/gameerr"
	"github.com/MRamiBalles/cookie-engine/internal/domain/modifier"
	"github.com/MRamiBalles/cookie-engine/internal/domain/producer"
	"github.com/MRamiBalles/cookie-engine/internal/engine"
)

// Commander is the part of the engine exposed to remote players.
// *engine.Engine satisfies it.
type Commander interface {
	Click() (float64, error)
	PurchaseProducer(id string) (producer.Purchase, error)
	UpgradeProducer(id string) (float64, error)
	PurchaseUpgrade(id string) error
	PurchaseHeavenlyUpgrade(id string) error
	StartResearch(id string) error
	Prestige() (int64, error)
	ClickGolden(spawnID string) (engine.GoldenResult, error)
	ActivateEffect(te effect.TimedEffect) error
	Reward(source string, amount float64) error
	TriggerRandomEvent(name string) error
	State() engine.State
}

var _ Commander = (*engine.Engine)(nil)

// Command types accepted over the socket.
const (
	CmdClick           = "CLICK"
	CmdBuy             = "BUY"
	CmdUpgradeProducer = "UPGRADE_PRODUCER"
	CmdBuyUpgrade      = "BUY_UPGRADE"
	CmdBuyHeavenly     = "BUY_HEAVENLY"
	CmdResearch        = "RESEARCH"
	CmdPrestige        = "PRESTIGE"
	CmdGoldenClick     = "GOLDEN_CLICK"
	CmdState           = "STATE"
)

// Transport-level result codes. Engine rejections use gameerr.Code.
const (
	CodeBadRequest  = "BAD_REQUEST"
	CodeRateLimited = "RATE_LIMITED"
	CodeUnknownCmd  = "UNKNOWN_COMMAND"
)

// Command represents an incoming request from the frontend.
type Command struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"` // producer, upgrade, node or golden spawn
	RequestID string `json:"request_id,omitempty"`
}

// CommandResult answers exactly one Command.
type CommandResult struct {
	RequestID string      `json:"request_id,omitempty"`
	Type      string      `json:"type,omitempty"`
	OK        bool        `json:"ok"`
	Code      string      `json:"code,omitempty"`
	Error     string      `json:"error,omitempty"`
	Result    interface{} `json:"result,omitempty"`
}

// PurchaseResult is the wire form of a producer purchase.
type PurchaseResult struct {
	ID         string  `json:"id"`
	Cost       float64 `json:"cost"`
	Count      int     `json:"count"`
	Milestones []int   `json:"milestones,omitempty"`
}

// Dispatch routes cmd to the engine and wraps the outcome.
func Dispatch(c Commander, cmd Command) CommandResult {
	res := CommandResult{RequestID: cmd.RequestID, Type: cmd.Type}
	var (
		out interface{}
		err error
	)

	switch strings.ToUpper(cmd.Type) {
	case CmdClick:
		var v float64
		v, err = c.Click()
		out = map[string]float64{"produced": v}
	case CmdBuy:
		var p producer.Purchase
		p, err = c.PurchaseProducer(cmd.ID)
		out = PurchaseResult{ID: p.ID, Cost: p.Cost, Count: p.Count, Milestones: p.Milestones}
	case CmdUpgradeProducer:
		var cost float64
		cost, err = c.UpgradeProducer(cmd.ID)
		out = map[string]float64{"cost": cost}
	case CmdBuyUpgrade:
		err = c.PurchaseUpgrade(cmd.ID)
	case CmdBuyHeavenly:
		err = c.PurchaseHeavenlyUpgrade(cmd.ID)
	case CmdResearch:
		err = c.StartResearch(cmd.ID)
	case CmdPrestige:
		var gain int64
		gain, err = c.Prestige()
		out = map[string]int64{"gain": gain}
	case CmdGoldenClick:
		out, err = c.ClickGolden(cmd.ID)
	case CmdState:
		out = c.State()
	default:
		res.Code = CodeUnknownCmd
		res.Error = fmt.Sprintf("unknown command %q", cmd.Type)
		return res
	}

	if err != nil {
		res.Code = gameerr.Code(err)
		res.Error = err.Error()
		return res
	}
	res.OK = true
	res.Result = out
	return res
}

// EffectRequest triggers a timed effect from an external source.
type EffectRequest struct {
	Kind            string  `json:"kind"`
	Target          string  `json:"target"`
	Factor          float64 `json:"factor"`
	DurationSeconds float64 `json:"duration_seconds"`
}

var errBadEffect = errors.New("effect needs a kind, a target, a positive factor and a positive duration")

// Effect converts the request into an engine effect. Start is stamped by the
// engine.
func (r EffectRequest) Effect() (effect.TimedEffect, error) {
	if r.Kind == "" || r.Target == "" || r.Factor <= 0 || r.DurationSeconds <= 0 {
		return effect.TimedEffect{}, errBadEffect
	}
	return effect.TimedEffect{
		Kind:     effect.Kind(r.Kind),
		Target:   modifier.Target(r.Target),
		Factor:   r.Factor,
		Duration: time.Duration(r.DurationSeconds * float64(time.Second)),
	}, nil
}
