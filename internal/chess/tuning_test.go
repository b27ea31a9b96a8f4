package chess

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultTuningIsValid(t *testing.T) {
	if err := ValidateTuning(DefaultTuning()); err != nil {
		t.Fatalf("default tuning invalid: %v", err)
	}
	if got := DefaultTuning().SearchTimeout(); got != 5*time.Second {
		t.Fatalf("expected 5s search timeout, got %v", got)
	}
}

func TestParseTuningOverlay(t *testing.T) {
	raw := []byte(`
free_capture_net: 200
search_timeout_ms: 1500
tiers:
  - name: strict
    min_ratio: 0.5
    mate_guard: true
    hang_threshold: 50
    free_captures: true
  - name: loose
    min_ratio: 0
    mate_guard: false
    hang_threshold: 900
`)
	tuning, err := ParseTuning(raw)
	if err != nil {
		t.Fatalf("ParseTuning: %v", err)
	}
	if tuning.FreeCaptureNet != 200 || tuning.ExchangeUpNet != defaultExchangeUpNet {
		t.Fatalf("unexpected overlay %+v", tuning)
	}
	if tuning.SearchTimeout() != 1500*time.Millisecond {
		t.Fatalf("unexpected timeout %v", tuning.SearchTimeout())
	}
	if tuning.Tiers[0].Name != "loose" || tuning.Tiers[1].Name != "strict" {
		t.Fatalf("tiers must be sorted by min_ratio, got %+v", tuning.Tiers)
	}
	if len(tuning.Opening.Rules) != len(DefaultOpeningBook().Rules) {
		t.Fatalf("opening defaults must survive the overlay")
	}
}

func TestParseTuningRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"exchange above free": "exchange_up_net: 400\n",
		"tier gap":            "tiers:\n  - name: a\n    min_ratio: 0.2\n    hang_threshold: 100\n",
		"illegal opening":     "opening:\n  max_ply: 2\n  rules:\n    - name: bad\n      replies:\n        - move: e2e5\n          weight: 1\n",
		"bad yaml":            "tiers: [",
	}
	for name, raw := range cases {
		if _, err := ParseTuning([]byte(raw)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoadTuning(t *testing.T) {
	tuning, err := LoadTuning("")
	if err != nil || tuning.FreeCaptureNet != defaultFreeCaptureNet {
		t.Fatalf("empty path must return defaults, got %+v err=%v", tuning, err)
	}
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte("min_search_depth: 8\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	tuning, err = LoadTuning(path)
	if err != nil || tuning.MinSearchDepth != 8 {
		t.Fatalf("expected overlay from file, got %+v err=%v", tuning, err)
	}
	if _, err := LoadTuning(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestTierFor(t *testing.T) {
	tuning := DefaultTuning()
	cases := []struct {
		level int
		want  string
	}{
		{1, "careless"},
		{10, "careless"},
		{11, "casual"},
		{20, "casual"},
		{21, "solid"},
		{30, "solid"},
	}
	for _, tc := range cases {
		d := Difficulty{Scale: "level", Value: tc.level}
		if got := tuning.TierFor(d).Name; got != tc.want {
			t.Fatalf("level %d: expected %s, got %s", tc.level, tc.want, got)
		}
	}
}

func TestSearchDepth(t *testing.T) {
	tuning := DefaultTuning()
	cases := []struct {
		d    Difficulty
		want int
	}{
		{Difficulty{Scale: "level", Value: 30}, 25},
		{Difficulty{Scale: "level", Value: 20}, 18},
		{Difficulty{Scale: "level", Value: 1}, 6},
		{Difficulty{Scale: "skill", Value: 20}, 25},
		{Difficulty{Scale: "elo", Value: 0}, 6},
	}
	for _, tc := range cases {
		if got := tuning.SearchDepth(tc.d); got != tc.want {
			t.Fatalf("%s: expected depth %d, got %d", tc.d, tc.want, got)
		}
	}
}

func TestFormatBudget(t *testing.T) {
	if got := FormatBudget(SearchRequest{Depth: 12}); got != "depth 12" {
		t.Fatalf("unexpected budget %q", got)
	}
	if got := FormatBudget(SearchRequest{}); got != "unbounded" {
		t.Fatalf("unexpected budget %q", got)
	}
}

func TestDifficultyAndPresets(t *testing.T) {
	if _, err := NewDifficulty("level", 0); err == nil {
		t.Fatalf("level 0 must be rejected")
	}
	if _, err := NewDifficulty("stars", 3); err == nil {
		t.Fatalf("unknown scale must be rejected")
	}
	d, err := NewDifficulty("", 15)
	if err != nil || d.Scale != "level" || d.Probability() != 0.5 {
		t.Fatalf("unexpected difficulty %+v err=%v", d, err)
	}
	if p := (Difficulty{Scale: "elo", Value: 1500}).Probability(); p != 0.5 {
		t.Fatalf("unexpected elo probability %v", p)
	}

	for alias, want := range map[string]int{"beginner": 3, "casual": 8, "intermediate": 15, "advanced": 24, "master": 30, "Level7": 7} {
		p, err := GetPreset(alias)
		if err != nil || p.Difficulty.Value != want {
			t.Fatalf("GetPreset(%s) = %+v err=%v", alias, p, err)
		}
		if err := ValidatePreset(p); err != nil {
			t.Fatalf("ValidatePreset(%s): %v", alias, err)
		}
	}
	if _, err := GetPreset("level31"); err == nil {
		t.Fatalf("level31 must not exist")
	}
	if PresetName(Difficulty{Scale: "level", Value: 12}) != "level12" || PresetName(Difficulty{Scale: "skill", Value: 12}) != "" {
		t.Fatalf("unexpected preset names")
	}
}

func TestOpeningBookPick(t *testing.T) {
	book := DefaultOpeningBook()
	if err := ValidateOpeningBook(book); err != nil {
		t.Fatalf("default book invalid: %v", err)
	}

	counts := make(map[string]int)
	r := rand.New(rand.NewSource(11))
	pos := mustReplay(t, "e2e4")
	for i := 0; i < 2000; i++ {
		m, rule, ok := book.Pick(pos, []string{"e2e4"}, r)
		if !ok || rule.Name != "king-pawn-replies" {
			t.Fatalf("expected king pawn rule, got %v ok=%v", rule.Name, ok)
		}
		counts[m.UCI]++
	}
	if counts["e7e5"] < 850 || counts["e7e5"] > 1150 {
		t.Fatalf("e7e5 weight off: %v", counts)
	}
	if counts["e7e6"] == 0 || counts["c7c6"] == 0 || counts["c7c5"] == 0 {
		t.Fatalf("every reply must be reachable: %v", counts)
	}

	if _, _, ok := book.Pick(mustReplay(t, "e2e4", "e7e5"), []string{"e2e4", "e7e5"}, r); ok {
		t.Fatalf("book must stop at max ply")
	}
	if _, _, ok := book.Pick(mustReplay(t, "c2c4"), []string{"c2c4"}, r); ok {
		t.Fatalf("unknown history must not match")
	}
}

func TestOpeningBookSkipsIllegalReplies(t *testing.T) {
	book := OpeningBook{MaxPly: 2, Rules: []OpeningRule{{
		Name:    "mixed",
		Replies: []WeightedMove{{Move: "e2e5", Weight: 99}, {Move: "g1f3", Weight: 1}},
	}}}
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		m, _, ok := book.Pick(mustReplay(t), nil, r)
		if !ok || m.UCI != "g1f3" {
			t.Fatalf("expected only the legal reply, got %s ok=%v", m.UCI, ok)
		}
	}
	if err := ValidateOpeningBook(book); err == nil {
		t.Fatalf("validation must reject the illegal reply")
	}
}
