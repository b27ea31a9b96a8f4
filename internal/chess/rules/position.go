// Package rules adapts github.com/corentings/chess/v2 to the narrow surface the
// move selector and the game service need: legal move enumeration, trial
// application on immutable snapshots, and check / mate detection.
package rules

import (
	"errors"
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

var (
	ErrIllegalMove = errors.New("illegal move")
	ErrInvalidFEN  = errors.New("invalid fen")
)

// Move is a legal move of a specific position.
type Move struct {
	From      nchess.Square
	To        nchess.Square
	Promotion nchess.PieceType
	Captured  nchess.PieceType
	UCI       string

	raw nchess.Move
}

// IsCapture reports whether the move removes an opposing piece, en passant included.
func (m Move) IsCapture() bool { return m.Captured != nchess.NoPieceType }

// Position is an immutable board snapshot. Apply never mutates the receiver.
type Position struct {
	pos *nchess.Position
}

// NewPosition returns the standard starting position.
func NewPosition() *Position {
	return &Position{pos: nchess.StartingPosition()}
}

// FromFEN parses a FEN string. Four-field FENs are padded with "0 1".
func FromFEN(fen string) (*Position, error) {
	opt, err := nchess.FEN(NormalizeFEN(fen))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFEN, err)
	}
	g := nchess.NewGame(opt)
	return &Position{pos: g.Position()}, nil
}

// NormalizeFEN pads a FEN lacking the move counters so strict parsers accept it.
func NormalizeFEN(fen string) string {
	fields := strings.Fields(fen)
	switch {
	case len(fields) == 4:
		return strings.Join(fields, " ") + " 0 1"
	case len(fields) == 5:
		return strings.Join(fields, " ") + " 1"
	default:
		return strings.Join(fields, " ")
	}
}

func wrap(pos *nchess.Position) *Position { return &Position{pos: pos} }

// FEN returns the position in Forsyth-Edwards notation.
func (p *Position) FEN() string { return p.pos.String() }

// Turn returns the side to move.
func (p *Position) Turn() nchess.Color { return p.pos.Turn() }

// LegalMoves enumerates every legal move for the side to move.
func (p *Position) LegalMoves() []Move {
	valid := p.pos.ValidMoves()
	board := p.pos.Board()
	out := make([]Move, 0, len(valid))
	for _, m := range valid {
		out = append(out, newMove(board, m))
	}
	return out
}

// LegalMovesFrom enumerates the legal moves of the piece standing on sq.
func (p *Position) LegalMovesFrom(sq nchess.Square) []Move {
	var out []Move
	for _, m := range p.LegalMoves() {
		if m.From == sq {
			out = append(out, m)
		}
	}
	return out
}

// HasLegalMoves reports whether the side to move can move at all.
func (p *Position) HasLegalMoves() bool { return len(p.pos.ValidMoves()) > 0 }

// Legal resolves a UCI string against the legal move list.
func (p *Position) Legal(uci string) (Move, bool) {
	want := strings.ToLower(strings.TrimSpace(uci))
	if want == "" {
		return Move{}, false
	}
	for _, m := range p.LegalMoves() {
		if m.UCI == want {
			return m, true
		}
	}
	return Move{}, false
}

// Apply plays m on a copy. m must come from p.LegalMoves.
func (p *Position) Apply(m Move) *Position {
	raw := m.raw
	return wrap(p.pos.Update(&raw))
}

// ApplyUCI validates uci and plays it on a copy.
func (p *Position) ApplyUCI(uci string) (*Position, error) {
	m, ok := p.Legal(uci)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrIllegalMove, uci)
	}
	return p.Apply(m), nil
}

// SAN encodes m in standard algebraic notation.
func (p *Position) SAN(m Move) string {
	raw := m.raw
	return nchess.AlgebraicNotation{}.Encode(p.pos, &raw)
}

// InCheck reports whether the side to move is in check. It scans attacks on the
// board instead of trusting the Check tag, which corentings drops on some underpromotions.
func (p *Position) InCheck() bool {
	turn := p.pos.Turn()
	king, ok := findKing(p.pos.Board(), turn)
	if !ok {
		return false
	}
	return attacked(p.pos.Board(), king, turn.Other())
}

// IsCheckmate reports whether the side to move is mated.
func (p *Position) IsCheckmate() bool { return p.pos.Status() == nchess.Checkmate }

// IsStalemate reports whether the side to move has no moves and is not in check.
func (p *Position) IsStalemate() bool { return p.pos.Status() == nchess.Stalemate }

func newMove(board *nchess.Board, m nchess.Move) Move {
	captured := nchess.NoPieceType
	if m.HasTag(nchess.EnPassant) {
		captured = nchess.Pawn
	} else if victim := board.Piece(m.S2()); victim != nchess.NoPiece {
		captured = victim.Type()
	}
	return Move{
		From:      m.S1(),
		To:        m.S2(),
		Promotion: m.Promo(),
		Captured:  captured,
		UCI:       strings.ToLower(m.String()),
		raw:       m,
	}
}
