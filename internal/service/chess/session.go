package chess

import (
	"errors"
	"fmt"
	"strings"
	"time"

	nchess "github.com/corentings/chess/v2"
	corechess "github.com/park285/cheese-sparring/internal/chess"
	"github.com/park285/cheese-sparring/internal/chess/rules"
)

var errNilSession = errors.New("cannot save nil sparring session")

const (
	ColorWhite  = "white"
	ColorBlack  = "black"
	ColorRandom = "random"
)

// Session is the persisted state of one game against the engine.
type Session struct {
	ID            string               `json:"id"`
	PlayerID      string               `json:"player_id"`
	PlayerColor   string               `json:"player_color"`
	Difficulty    corechess.Difficulty `json:"difficulty"`
	StartFEN      string               `json:"start_fen,omitempty"`
	Moves         []string             `json:"moves"`
	EngineMoves   int                  `json:"engine_moves"`
	BookMoves     int                  `json:"book_moves"`
	DegradedMoves int                  `json:"degraded_moves"`
	FallbackMoves int                  `json:"fallback_moves"`
	// EngineLatencyMS is the summed engine decision time.
	EngineLatencyMS int64     `json:"engine_latency_ms"`
	LastNotice      string    `json:"last_notice,omitempty"`
	StartedAt       time.Time `json:"started_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (s Session) clone() Session {
	s.Moves = append([]string(nil), s.Moves...)
	return s
}

func (s *Session) playerColor() nchess.Color {
	if s.PlayerColor == ColorBlack {
		return nchess.Black
	}
	return nchess.White
}

func (s *Session) engineLatency() time.Duration {
	return time.Duration(s.EngineLatencyMS) * time.Millisecond
}

func replaySession(sess *Session) (*rules.Game, error) {
	game, err := rules.Replay(sess.StartFEN, sess.Moves)
	if err != nil {
		return nil, fmt.Errorf("replay session %s: %w", sess.ID, err)
	}
	return game, nil
}

func normalizeColor(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "w", ColorWhite:
		return ColorWhite, nil
	case "b", ColorBlack:
		return ColorBlack, nil
	case ColorRandom:
		return ColorRandom, nil
	default:
		return "", fmt.Errorf("%w: unknown color %q", ErrInvalidRequest, raw)
	}
}

func colorName(c nchess.Color) string {
	if c == nchess.Black {
		return ColorBlack
	}
	return ColorWhite
}

// SessionState is the view of a session returned to callers.
type SessionState struct {
	ID            string
	PlayerID      string
	PlayerColor   string
	Difficulty    corechess.Difficulty
	Preset        string
	StartFEN      string
	FEN           string
	Moves         []string
	MovesSAN      []string
	Turn          string
	PlayerToMove  bool
	InCheck       bool
	Finished      bool
	Outcome       string
	Method        string
	Status        string
	Notice        string
	Thinking      bool
	MoveCount     int
	Opening       string
	Material      MaterialScore
	Captured      CapturedPieces
	EngineMoves   int
	BookMoves     int
	DegradedMoves int
	FallbackMoves int
	EngineLatency time.Duration
	StartedAt     time.Time
	UpdatedAt     time.Time
}

func (s *Service) stateFromGame(sess *Session, game *rules.Game) *SessionState {
	turn := game.Turn()
	state := &SessionState{
		ID:            sess.ID,
		PlayerID:      sess.PlayerID,
		PlayerColor:   sess.PlayerColor,
		Difficulty:    sess.Difficulty,
		Preset:        corechess.PresetName(sess.Difficulty),
		StartFEN:      sess.StartFEN,
		FEN:           game.FEN(),
		Moves:         append([]string(nil), sess.Moves...),
		MovesSAN:      game.SANHistory(),
		Turn:          colorName(turn),
		PlayerToMove:  turn == sess.playerColor() && !game.IsGameOver(),
		InCheck:       game.InCheck(),
		Finished:      game.IsGameOver(),
		Outcome:       game.Outcome().String(),
		Method:        methodFromOutcome(game.Method()),
		Notice:        sess.LastNotice,
		MoveCount:     game.Ply(),
		EngineMoves:   sess.EngineMoves,
		BookMoves:     sess.BookMoves,
		DegradedMoves: sess.DegradedMoves,
		FallbackMoves: sess.FallbackMoves,
		EngineLatency: sess.engineLatency(),
		StartedAt:     sess.StartedAt,
		UpdatedAt:     sess.UpdatedAt,
	}
	state.Status = s.statusText(game)
	if sess.StartFEN == "" {
		state.Opening, _ = s.classify(game)
	}
	state.Material, state.Captured = computeMaterial(game)
	return state
}
