package chess

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoBestMove        = errors.New("engine reported no best move")
	ErrSearchTimeout     = errors.New("engine search timeout")
	ErrSearchUnavailable = errors.New("engine search unavailable")
)

type ScoreKind int

const (
	ScoreNone ScoreKind = iota
	ScoreCentipawns
	ScoreMate
)

// Score is the engine evaluation from the side to move's point of view.
// For ScoreMate, Value is the signed distance to mate in moves.
type Score struct {
	Kind  ScoreKind
	Value int
}

func CentipawnScore(cp int) Score { return Score{Kind: ScoreCentipawns, Value: cp} }
func MateScore(n int) Score       { return Score{Kind: ScoreMate, Value: n} }

// IsMateIn reports a forced mate for the side to move in exactly n moves.
func (s Score) IsMateIn(n int) bool { return s.Kind == ScoreMate && s.Value == n }

// Losing reports a negative evaluation. ScoreNone is never losing.
func (s Score) Losing() bool {
	switch s.Kind {
	case ScoreNone:
		return false
	case ScoreCentipawns, ScoreMate:
		return s.Value < 0
	}
	return false
}

func (s Score) String() string {
	switch s.Kind {
	case ScoreCentipawns:
		return fmt.Sprintf("cp %d", s.Value)
	case ScoreMate:
		return fmt.Sprintf("mate %d", s.Value)
	default:
		return "none"
	}
}

// Recommendation is the engine's best move for a position. Move is UCI.
type Recommendation struct {
	Move   string
	Score  Score
	Depth  int
	Source string
}

type SearchRequest struct {
	FEN            string
	Moves          []string
	Depth          int
	MoveTimeMillis int
}

// Searcher asks an external engine for its best move.
type Searcher interface {
	Search(ctx context.Context, req SearchRequest) (Recommendation, error)
}

// IsNoMove reports the engine's "no move" sentinels.
func IsNoMove(move string) bool {
	m := strings.ToLower(strings.TrimSpace(move))
	return m == "" || m == "(none)" || m == "0000"
}

// ClassifySearchError folds transport failures into ErrSearchTimeout or ErrSearchUnavailable.
func ClassifySearchError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrSearchTimeout), errors.Is(err, ErrSearchUnavailable), errors.Is(err, ErrNoBestMove):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled), timeoutMessage(err):
		return fmt.Errorf("%w: %v", ErrSearchTimeout, err)
	default:
		return fmt.Errorf("%w: %v", ErrSearchUnavailable, err)
	}
}

func timeoutMessage(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "timeout")
}
