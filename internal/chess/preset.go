package chess

import (
	"fmt"
	"strconv"
	"strings"
)

// Scale is a difficulty axis. Probability is value/Max.
type Scale struct {
	Name string
	Min  int
	Max  int
}

var (
	LevelScale = Scale{Name: "level", Min: 1, Max: 30}
	SkillScale = Scale{Name: "skill", Min: 0, Max: 20}
	EloScale   = Scale{Name: "elo", Min: 0, Max: 3000}
)

var scales = map[string]Scale{
	LevelScale.Name: LevelScale,
	SkillScale.Name: SkillScale,
	EloScale.Name:   EloScale,
}

// ScaleByName resolves a scale; the empty name selects LevelScale.
func ScaleByName(name string) (Scale, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return LevelScale, nil
	}
	s, ok := scales[key]
	if !ok {
		return Scale{}, fmt.Errorf("unknown difficulty scale: %s", name)
	}
	return s, nil
}

// Difficulty is a value on one of the scales.
type Difficulty struct {
	Scale string `json:"scale"`
	Value int    `json:"value"`
}

// NewDifficulty range-checks value against the named scale.
func NewDifficulty(scale string, value int) (Difficulty, error) {
	s, err := ScaleByName(scale)
	if err != nil {
		return Difficulty{}, err
	}
	if value < s.Min || value > s.Max {
		return Difficulty{}, fmt.Errorf("%s %d out of range %d-%d", s.Name, value, s.Min, s.Max)
	}
	return Difficulty{Scale: s.Name, Value: value}, nil
}

func (d Difficulty) scale() Scale {
	s, err := ScaleByName(d.Scale)
	if err != nil {
		return LevelScale
	}
	return s
}

// Probability is the chance the recommended move is played outright.
func (d Difficulty) Probability() float64 {
	s := d.scale()
	if s.Max <= 0 {
		return 0
	}
	p := float64(d.Value) / float64(s.Max)
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}

// Max is the top of the difficulty's scale.
func (d Difficulty) Max() int { return d.scale().Max }

func (d Difficulty) String() string {
	s := d.scale()
	return fmt.Sprintf("%s %d/%d", s.Name, d.Value, s.Max)
}

// DifficultyPreset binds a name to a difficulty.
type DifficultyPreset struct {
	Name       string
	Difficulty Difficulty
}

const presetPrefix = "level"

var DefaultPresets = buildLevelPresets()

func buildLevelPresets() map[string]DifficultyPreset {
	out := make(map[string]DifficultyPreset, LevelScale.Max)
	for lv := LevelScale.Min; lv <= LevelScale.Max; lv++ {
		name := presetPrefix + strconv.Itoa(lv)
		out[name] = DifficultyPreset{
			Name:       name,
			Difficulty: Difficulty{Scale: LevelScale.Name, Value: lv},
		}
	}
	return out
}

func GetPreset(name string) (DifficultyPreset, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	switch key {
	case "beginner":
		key = "level3"
	case "casual":
		key = "level8"
	case "intermediate":
		key = "level15"
	case "advanced":
		key = "level24"
	case "master":
		key = "level30"
	}
	if p, ok := DefaultPresets[key]; ok {
		return p, nil
	}
	return DifficultyPreset{}, fmt.Errorf("unknown chess preset: %s", name)
}

func ValidatePreset(p DifficultyPreset) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("preset name required")
	}
	if _, err := NewDifficulty(p.Difficulty.Scale, p.Difficulty.Value); err != nil {
		return fmt.Errorf("preset %s: %w", p.Name, err)
	}
	return nil
}

// PresetName returns the level preset name for d when d sits on the level scale.
func PresetName(d Difficulty) string {
	if d.scale().Name != LevelScale.Name {
		return ""
	}
	return presetPrefix + strconv.Itoa(d.Value)
}
