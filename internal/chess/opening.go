package chess

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/park285/cheese-sparring/internal/chess/rules"
)

type WeightedMove struct {
	Move   string  `yaml:"move"`
	Weight float64 `yaml:"weight"`
}

// OpeningRule matches an exact move history and proposes weighted replies.
type OpeningRule struct {
	Name    string         `yaml:"name"`
	After   []string       `yaml:"after"`
	Replies []WeightedMove `yaml:"replies"`
}

type OpeningBook struct {
	MaxPly         int           `yaml:"max_ply"`
	PolyglotMaxPly int           `yaml:"polyglot_max_ply"`
	Rules          []OpeningRule `yaml:"rules"`
}

const (
	defaultBookMaxPly     = 2
	defaultPolyglotMaxPly = 12
)

func DefaultOpeningBook() OpeningBook {
	return OpeningBook{
		MaxPly:         defaultBookMaxPly,
		PolyglotMaxPly: defaultPolyglotMaxPly,
		Rules: []OpeningRule{
			{
				Name: "white-first-move",
				Replies: []WeightedMove{
					{Move: "e2e4", Weight: 50},
					{Move: "d2d4", Weight: 30},
					{Move: "c2c4", Weight: 10},
					{Move: "g1f3", Weight: 10},
				},
			},
			{
				Name:  "king-pawn-replies",
				After: []string{"e2e4"},
				Replies: []WeightedMove{
					{Move: "e7e5", Weight: 50},
					{Move: "c7c5", Weight: 25},
					{Move: "e7e6", Weight: 12.5},
					{Move: "c7c6", Weight: 12.5},
				},
			},
			{
				Name:  "queen-pawn-replies",
				After: []string{"d2d4"},
				Replies: []WeightedMove{
					{Move: "d7d5", Weight: 50},
					{Move: "g8f6", Weight: 50},
				},
			},
		},
	}
}

func ValidateOpeningBook(b OpeningBook) error {
	if b.MaxPly < 0 || b.PolyglotMaxPly < 0 {
		return fmt.Errorf("opening ply limits must be >= 0")
	}
	seen := make(map[string]string, len(b.Rules))
	for i, rule := range b.Rules {
		name := strings.TrimSpace(rule.Name)
		if name == "" {
			return fmt.Errorf("opening rule %d name required", i)
		}
		key := historyKey(rule.After)
		if prev, dup := seen[key]; dup {
			return fmt.Errorf("opening rules %q and %q share history [%s]", prev, name, key)
		}
		seen[key] = name
		if len(rule.Replies) == 0 {
			return fmt.Errorf("opening rule %q has no replies", name)
		}
		game, err := rules.Replay("", rule.After)
		if err != nil {
			return fmt.Errorf("opening rule %q: %w", name, err)
		}
		pos := game.Position()
		for _, reply := range rule.Replies {
			if reply.Weight <= 0 {
				return fmt.Errorf("opening rule %q reply %s weight must be > 0", name, reply.Move)
			}
			if _, ok := pos.Legal(reply.Move); !ok {
				return fmt.Errorf("opening rule %q reply %s is illegal", name, reply.Move)
			}
		}
	}
	return nil
}

// Pick draws a weighted reply for history. Illegal entries are skipped.
func (b OpeningBook) Pick(pos *rules.Position, history []string, r *rand.Rand) (rules.Move, OpeningRule, bool) {
	if pos == nil || r == nil || len(history) >= b.MaxPly {
		return rules.Move{}, OpeningRule{}, false
	}
	rule, ok := b.match(history)
	if !ok {
		return rules.Move{}, OpeningRule{}, false
	}

	type option struct {
		move   rules.Move
		weight float64
	}
	options := make([]option, 0, len(rule.Replies))
	total := 0.0
	for _, reply := range rule.Replies {
		m, legal := pos.Legal(reply.Move)
		if !legal || reply.Weight <= 0 {
			continue
		}
		options = append(options, option{move: m, weight: reply.Weight})
		total += reply.Weight
	}
	if len(options) == 0 {
		return rules.Move{}, OpeningRule{}, false
	}

	roll := r.Float64() * total
	for _, opt := range options {
		roll -= opt.weight
		if roll < 0 {
			return opt.move, rule, true
		}
	}
	return options[len(options)-1].move, rule, true
}

func (b OpeningBook) match(history []string) (OpeningRule, bool) {
	key := historyKey(history)
	for _, rule := range b.Rules {
		if historyKey(rule.After) == key {
			return rule, true
		}
	}
	return OpeningRule{}, false
}

func historyKey(moves []string) string {
	norm := make([]string, 0, len(moves))
	for _, m := range moves {
		norm = append(norm, strings.ToLower(strings.TrimSpace(m)))
	}
	return strings.Join(norm, " ")
}
