package metrics

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestRecordCommandOutcomes(t *testing.T) {
	c := &Collector{StartTime: time.Now()}
	c.RecordCommand(nil, false)
	c.RecordCommand(errors.New("no funds"), true)
	c.RecordCommand(errors.New("broken"), false)

	if c.CommandsAccepted != 1 || c.CommandsRejected != 1 || c.CommandsFailed != 1 {
		t.Errorf("expected one of each outcome, got %d/%d/%d", c.CommandsAccepted, c.CommandsRejected, c.CommandsFailed)
	}
}

func TestLatencyMaxIsConcurrentSafe(t *testing.T) {
	c := &Collector{StartTime: time.Now()}
	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(ms int) {
			defer wg.Done()
			c.RecordSave(time.Duration(ms)*time.Millisecond, nil)
		}(i)
	}
	wg.Wait()

	if c.Saves != 50 {
		t.Errorf("expected 50 saves, got %d", c.Saves)
	}
	if c.SaveLatMax != int64(50*time.Millisecond) {
		t.Errorf("expected max 50ms, got %v", time.Duration(c.SaveLatMax))
	}
}

func TestHandlersServeSnapshot(t *testing.T) {
	Get().RecordPrestige()

	rec := httptest.NewRecorder()
	Handler()(rec, httptest.NewRequest("GET", "/metrics", nil))
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("metrics is not JSON: %v", err)
	}
	prog, _ := body["progression"].(map[string]interface{})
	if n, _ := prog["prestiges"].(float64); n < 1 {
		t.Errorf("expected the recorded prestige in the snapshot, got %v", prog)
	}

	rec = httptest.NewRecorder()
	PrometheusHandler()(rec, httptest.NewRequest("GET", "/metrics/prometheus", nil))
	if !strings.Contains(rec.Body.String(), "# TYPE cookie_prestiges counter") {
		t.Errorf("prometheus output missing prestige counter:\n%s", rec.Body.String())
	}
}
