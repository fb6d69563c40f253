package save

import (
	"strings"
	"testing"
	"time"

	"github.com/MRamiBalles/cookie-engine/internal/domain/gameerr"
	"github.com/MRamiBalles/cookie-engine/internal/domain/modifier"
)

func TestDecodeToleratesMissingAndUnknownFields(t *testing.T) {
	data := []byte(`{
		"balance": 42.5,
		"producers": [{"id": "cursor", "count": 3}],
		"achievements": [{"id": "cookie_rookie", "unlocked": true}, {"id": "click_master"}],
		"dimension": "mirror",
		"research": {"inProgress": null}
	}`)
	s, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if s.Version != 1 {
		t.Errorf("missing version should read as 1, got %d", s.Version)
	}
	if s.Balance != 42.5 || len(s.Producers) != 1 || s.Producers[0].Milestones != nil {
		t.Errorf("decoded %+v", s)
	}
	if ids := s.UnlockedAchievements(); len(ids) != 1 || ids[0] != "cookie_rookie" {
		t.Errorf("unlocked = %v", ids)
	}
	if !s.SavedAt().IsZero() {
		t.Error("missing timestamp should be zero time")
	}
}

func TestDecodeRejectsCorruptData(t *testing.T) {
	cases := map[string]string{
		"empty":          ``,
		"not an object":  `[1,2,3]`,
		"truncated":      `{"balance": 10, "producers": [`,
		"negative":       `{"balance": -1}`,
		"bad producer":   `{"producers": [{"id": "a", "count": -2}]}`,
		"dup producer":   `{"producers": [{"id": "a"}, {"id": "a"}]}`,
		"zero factor":    `{"modifiers": [{"target": "CLICK_POWER", "factor": 0, "source": "upgrade:x"}]}`,
		"unknown target": `{"modifiers": [{"target": "MOON", "factor": 2, "source": "upgrade:x"}]}`,
		"dup modifier":   `{"modifiers": [{"target": "CLICK_POWER", "factor": 2, "source": "upgrade:x"}, {"target": "CLICK_POWER", "factor": 2, "source": "upgrade:x"}]}`,
		"overspent":      `{"prestige": {"heavenlyUnits": 1, "spentUnits": 3}}`,
		"wrong type":     `{"balance": "lots"}`,
	}
	for name, body := range cases {
		if _, err := Decode([]byte(body)); !gameerr.IsCorrupt(err) {
			t.Errorf("%s: expected CorruptSaveError, got %v", name, err)
		}
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	milestones := 1
	in := Snapshot{
		Balance:          1234.5,
		LifetimeProduced: 99999,
		TotalClicks:      17,
		Producers: []Producer{
			{ID: "cursor", Count: 12, EfficiencyMultiplier: 1.1, Level: 2, Milestones: &milestones},
		},
		Modifiers: []modifier.Modifier{
			{Target: modifier.TargetGlobalProduction, Factor: 1.01, Source: "achievement:cookie_rookie"},
		},
		Achievements: []Achievement{{ID: "cookie_rookie", Unlocked: true}},
		Research: Research{
			Completed:  []string{"betterDough"},
			InProgress: &InProgress{ID: "cookieChemistry", Progress: 12.5},
			Points:     3,
		},
		Prestige: Prestige{HeavenlyUnits: 5, TotalResets: 1, SpentUnits: 2},
	}
	in.Stamp(time.UnixMilli(1700000000123))

	data, err := Encode(in)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"lifetimeProduced":99999`) {
		t.Errorf("unexpected field naming: %s", data)
	}
	out, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out.Version != Version {
		t.Errorf("version = %d", out.Version)
	}
	if out.Producers[0].Count != 12 || *out.Producers[0].Milestones != 1 {
		t.Errorf("producer = %+v", out.Producers[0])
	}
	if out.Research.InProgress == nil || out.Research.InProgress.Progress != 12.5 {
		t.Errorf("research = %+v", out.Research)
	}
	if !out.SavedAt().Equal(time.UnixMilli(1700000000123)) {
		t.Errorf("saved at = %v", out.SavedAt())
	}
}
