package chess

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// Tier holds the safety filters active for a band of difficulty.
type Tier struct {
	Name          string  `yaml:"name"`
	MinRatio      float64 `yaml:"min_ratio"`
	MateGuard     bool    `yaml:"mate_guard"`
	HangThreshold int     `yaml:"hang_threshold"`
	FreeCaptures  bool    `yaml:"free_captures"`
}

// Tuning collects every selector and engine constant that may be overridden from YAML.
type Tuning struct {
	FreeCaptureNet      int         `yaml:"free_capture_net"`
	ExchangeUpNet       int         `yaml:"exchange_up_net"`
	SearchTimeoutMillis int         `yaml:"search_timeout_ms"`
	MinSearchDepth      int         `yaml:"min_search_depth"`
	Tiers               []Tier      `yaml:"tiers"`
	Opening             OpeningBook `yaml:"opening"`
}

const (
	defaultFreeCaptureNet      = 150
	defaultExchangeUpNet       = 50
	defaultSearchTimeoutMillis = 5000
	defaultMinSearchDepth      = 6
)

func defaultTiers() []Tier {
	return []Tier{
		{Name: "careless", MinRatio: 0, MateGuard: true, HangThreshold: 300, FreeCaptures: true},
		{Name: "casual", MinRatio: 0.34, MateGuard: true, HangThreshold: 200, FreeCaptures: true},
		{Name: "solid", MinRatio: 0.67, MateGuard: true, HangThreshold: 100, FreeCaptures: true},
	}
}

func DefaultTuning() Tuning {
	return Tuning{
		FreeCaptureNet:      defaultFreeCaptureNet,
		ExchangeUpNet:       defaultExchangeUpNet,
		SearchTimeoutMillis: defaultSearchTimeoutMillis,
		MinSearchDepth:      defaultMinSearchDepth,
		Tiers:               defaultTiers(),
		Opening:             DefaultOpeningBook(),
	}
}

// SearchTimeout bounds a single engine query.
func (t Tuning) SearchTimeout() time.Duration {
	if t.SearchTimeoutMillis <= 0 {
		return defaultSearchTimeoutMillis * time.Millisecond
	}
	return time.Duration(t.SearchTimeoutMillis) * time.Millisecond
}

// TierFor returns the highest tier whose MinRatio does not exceed d's probability.
func (t Tuning) TierFor(d Difficulty) Tier {
	tiers := t.Tiers
	if len(tiers) == 0 {
		tiers = defaultTiers()
	}
	ratio := d.Probability()
	chosen := tiers[0]
	for _, tier := range tiers {
		if tier.MinRatio <= ratio {
			chosen = tier
		}
	}
	return chosen
}

func ValidateTuning(t Tuning) error {
	if t.FreeCaptureNet <= 0 {
		return fmt.Errorf("free_capture_net must be > 0: %d", t.FreeCaptureNet)
	}
	if t.ExchangeUpNet <= 0 || t.ExchangeUpNet > t.FreeCaptureNet {
		return fmt.Errorf("exchange_up_net must be in 1-%d: %d", t.FreeCaptureNet, t.ExchangeUpNet)
	}
	if t.SearchTimeoutMillis <= 0 {
		return fmt.Errorf("search_timeout_ms must be > 0: %d", t.SearchTimeoutMillis)
	}
	if t.MinSearchDepth <= 0 {
		return fmt.Errorf("min_search_depth must be > 0: %d", t.MinSearchDepth)
	}
	if len(t.Tiers) == 0 {
		return errors.New("at least one tier required")
	}
	if t.Tiers[0].MinRatio != 0 {
		return fmt.Errorf("first tier %q must start at min_ratio 0", t.Tiers[0].Name)
	}
	seen := make(map[string]struct{}, len(t.Tiers))
	for i, tier := range t.Tiers {
		name := strings.TrimSpace(tier.Name)
		if name == "" {
			return fmt.Errorf("tier %d name required", i)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("duplicate tier %q", name)
		}
		seen[name] = struct{}{}
		if tier.MinRatio < 0 || tier.MinRatio > 1 {
			return fmt.Errorf("tier %q min_ratio out of range 0-1: %v", name, tier.MinRatio)
		}
		if tier.HangThreshold <= 0 {
			return fmt.Errorf("tier %q hang_threshold must be > 0", name)
		}
		if i > 0 && tier.MinRatio <= t.Tiers[i-1].MinRatio {
			return fmt.Errorf("tier %q must have a larger min_ratio than %q", name, t.Tiers[i-1].Name)
		}
	}
	return ValidateOpeningBook(t.Opening)
}

// LoadTuning overlays the YAML file at path on DefaultTuning. An empty path returns the defaults.
func LoadTuning(path string) (Tuning, error) {
	t := DefaultTuning()
	if strings.TrimSpace(path) == "" {
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Tuning{}, fmt.Errorf("read tuning file %q: %w", path, err)
	}
	return ParseTuning(raw)
}

// ParseTuning overlays raw YAML on DefaultTuning.
func ParseTuning(raw []byte) (Tuning, error) {
	t := DefaultTuning()
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return Tuning{}, fmt.Errorf("decode tuning: %w", err)
	}
	sort.SliceStable(t.Tiers, func(i, j int) bool { return t.Tiers[i].MinRatio < t.Tiers[j].MinRatio })
	if err := ValidateTuning(t); err != nil {
		return Tuning{}, err
	}
	return t, nil
}
