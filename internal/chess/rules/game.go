package rules

import (
	"fmt"
	"regexp"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

var coordinateMove = regexp.MustCompile(`^[a-h][1-8][a-h][1-8][qrbn]?$`)

// Game is the authoritative, mutable game record.
type Game struct {
	g       *nchess.Game
	history []string
	san     []string
}

// NewGame starts from fen, or the standard position when fen is empty or "startpos".
func NewGame(fen string) (*Game, error) {
	trimmed := strings.TrimSpace(fen)
	if trimmed == "" || trimmed == "startpos" {
		return &Game{g: nchess.NewGame()}, nil
	}
	opt, err := nchess.FEN(NormalizeFEN(trimmed))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFEN, err)
	}
	return &Game{g: nchess.NewGame(opt)}, nil
}

// Replay rebuilds a game from a start FEN and a UCI move history.
func Replay(fen string, moves []string) (*Game, error) {
	game, err := NewGame(fen)
	if err != nil {
		return nil, err
	}
	for i, mv := range moves {
		if _, err := game.Play(mv); err != nil {
			return nil, fmt.Errorf("replay move %d (%s): %w", i+1, mv, err)
		}
	}
	return game, nil
}

// Position returns an immutable snapshot of the current position.
func (g *Game) Position() *Position { return wrap(g.g.Position()) }

// Play applies a UCI move.
func (g *Game) Play(uci string) (Move, error) {
	pos := g.Position()
	m, ok := pos.Legal(uci)
	if !ok {
		return Move{}, fmt.Errorf("%w: %s", ErrIllegalMove, uci)
	}
	return m, g.commit(pos, m)
}

// PlaySAN applies a move given in SAN or coordinate notation.
// Coordinate input is resolved first; the SAN decoder reads "g1f3" as the pawn push f2f3.
func (g *Game) PlaySAN(text string) (Move, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Move{}, ErrIllegalMove
	}
	if lower := strings.ToLower(trimmed); coordinateMove.MatchString(lower) {
		return g.Play(lower)
	}
	pos := g.Position()
	decoded, err := nchess.AlgebraicNotation{}.Decode(pos.pos, trimmed)
	if err != nil {
		return g.Play(strings.ToLower(trimmed))
	}
	return g.Play(strings.ToLower(decoded.String()))
}

func (g *Game) commit(pos *Position, m Move) error {
	san := pos.SAN(m)
	raw := m.raw
	if err := g.g.Move(&raw, nil); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrIllegalMove, m.UCI, err)
	}
	g.history = append(g.history, m.UCI)
	g.san = append(g.san, san)
	return nil
}

// Resign ends the game with color resigning.
func (g *Game) Resign(color nchess.Color) { g.g.Resign(color) }

func (g *Game) FEN() string             { return g.g.FEN() }
func (g *Game) Turn() nchess.Color      { return g.g.Position().Turn() }
func (g *Game) Outcome() nchess.Outcome { return g.g.Outcome() }
func (g *Game) Method() nchess.Method   { return g.g.Method() }
func (g *Game) IsGameOver() bool        { return g.g.Outcome() != nchess.NoOutcome }
func (g *Game) IsDraw() bool            { return g.g.Outcome() == nchess.Draw }
func (g *Game) IsCheckmate() bool       { return g.g.Method() == nchess.Checkmate }
func (g *Game) InCheck() bool           { return g.Position().InCheck() }
func (g *Game) PGN() string             { return g.g.String() }
func (g *Game) Ply() int                { return len(g.history) }
func (g *Game) Raw() *nchess.Game       { return g.g }
func (g *Game) History() []string       { return append([]string(nil), g.history...) }
func (g *Game) SANHistory() []string    { return append([]string(nil), g.san...) }
