package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestPresetsValidate(t *testing.T) {
	for _, name := range []string{"default", "stress", "low"} {
		cfg, err := Preset(name)
		if err != nil {
			t.Fatalf("preset %s: %v", name, err)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("preset %s invalid: %v", name, err)
		}
	}
	if _, err := Preset("turbo"); err == nil {
		t.Error("unknown preset accepted")
	}
}

func TestLoadOverlaysYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookie.yaml")
	body := []byte(`
engine:
  tick_interval: 100ms
  offline_efficiency: 0.25
  golden_min_interval: 60s
server:
  addr: ":9090"
storage:
  slot: alice
`)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Engine.TickInterval != 100*time.Millisecond {
		t.Errorf("tick interval = %v", cfg.Engine.TickInterval)
	}
	if cfg.Engine.OfflineEfficiency != 0.25 {
		t.Errorf("offline efficiency = %v", cfg.Engine.OfflineEfficiency)
	}
	if cfg.Engine.GoldenMinInterval != time.Minute {
		t.Errorf("golden min = %v", cfg.Engine.GoldenMinInterval)
	}
	if cfg.Server.Addr != ":9090" || cfg.Storage.Slot != "alice" {
		t.Errorf("server/storage not overlaid: %+v %+v", cfg.Server, cfg.Storage)
	}
	// untouched fields keep defaults
	if cfg.Engine.GrowthBase != 1.15 || len(cfg.Engine.Milestones) != 8 {
		t.Errorf("defaults lost: %+v", cfg.Engine)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("engine:\n  offline_efficiency: 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path, nil); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestValidateMilestonesIncreasing(t *testing.T) {
	e := DefaultEngine()
	e.Milestones = []int{10, 10}
	if err := e.Validate(); err == nil {
		t.Error("duplicate milestones accepted")
	}
}

func TestAnalyzeRecommendations(t *testing.T) {
	cfg := Default()
	snap := map[string]interface{}{
		"tick":      map[string]interface{}{"max_latency_ms": 500.0},
		"websocket": map[string]interface{}{"errors": int64(3), "rate_limited": int64(0)},
	}
	rec := Analyze(cfg, snap)
	if !rec.SlowDownTicks || !rec.IncreaseSendBuffer || rec.IncreaseMessageRate {
		t.Fatalf("unexpected recommendations: %+v", rec)
	}
	tuned := ApplyRecommendations(cfg, rec)
	if tuned.Engine.TickInterval != 2*cfg.Engine.TickInterval {
		t.Errorf("tick interval = %v", tuned.Engine.TickInterval)
	}
	if tuned.Server.ClientSendBuffer != 2*cfg.Server.ClientSendBuffer {
		t.Errorf("send buffer = %d", tuned.Server.ClientSendBuffer)
	}
	if cfg.Server.ClientSendBuffer != 64 {
		t.Error("ApplyRecommendations mutated its input")
	}
}

func TestAnalyzeDecodedSnapshot(t *testing.T) {
	body := `{"tick":{"max_latency_ms":1.5},"saves":{"errors":2},` +
		`"websocket":{"errors":0,"rate_limited":7}}`
	snap, err := ReadSnapshot(strings.NewReader(body))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	cfg := Default()
	rec := Analyze(cfg, snap)
	if rec.SlowDownTicks || rec.IncreaseSendBuffer {
		t.Errorf("unexpected recommendations: %+v", rec)
	}
	if !rec.IncreaseConnections || !rec.IncreaseMessageRate || len(rec.Notes) != 2 {
		t.Fatalf("decoded counters ignored: %+v", rec)
	}
	tuned := ApplyRecommendations(cfg, rec)
	if tuned.Server.MaxMessagesPerSecond != cfg.Server.MaxMessagesPerSecond*1.5 {
		t.Errorf("message rate = %v", tuned.Server.MaxMessagesPerSecond)
	}
	if tuned.Storage.MaxOpenConns <= cfg.Storage.MaxOpenConns {
		t.Errorf("open conns = %d", tuned.Storage.MaxOpenConns)
	}

	if _, err := ReadSnapshot(strings.NewReader("{")); err == nil {
		t.Error("truncated snapshot accepted")
	}
}

func TestValidateRandomEvents(t *testing.T) {
	e := DefaultEngine()
	e.RandomEventChance = 1.5
	if err := e.Validate(); err == nil {
		t.Error("chance above one accepted")
	}
	e.RandomEventsEnabled = false
	if err := e.Validate(); err != nil {
		t.Errorf("disabled random events still validated: %v", err)
	}
}
