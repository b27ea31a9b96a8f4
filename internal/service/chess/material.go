package chess

import (
	nchess "github.com/corentings/chess/v2"
	corechess "github.com/park285/cheese-sparring/internal/chess"
	"github.com/park285/cheese-sparring/internal/chess/rules"
)

// MaterialScore is the material on board per side, in pawns.
type MaterialScore struct {
	White int
	Black int
}

func (m MaterialScore) Diff() int {
	return m.White - m.Black
}

// CapturedPieces lists what each side has taken, in capture order.
type CapturedPieces struct {
	White []nchess.PieceType
	Black []nchess.PieceType
}

func (c CapturedPieces) IsEmpty() bool {
	return len(c.White) == 0 && len(c.Black) == 0
}

func pawnUnits(pt nchess.PieceType) int {
	return corechess.PieceValue(pt) / 100
}

func computeMaterial(game *rules.Game) (MaterialScore, CapturedPieces) {
	var (
		score    MaterialScore
		captured CapturedPieces
	)
	if game == nil {
		return score, captured
	}
	raw := game.Raw()

	board := raw.Position().Board()
	for sq := nchess.A1; sq <= nchess.H8; sq++ {
		piece := board.Piece(sq)
		if piece == nchess.NoPiece {
			continue
		}
		switch piece.Color() {
		case nchess.White:
			score.White += pawnUnits(piece.Type())
		case nchess.Black:
			score.Black += pawnUnits(piece.Type())
		}
	}

	moves := raw.Moves()
	positions := raw.Positions()
	for i, mv := range moves {
		if i >= len(positions) {
			break
		}
		if !mv.HasTag(nchess.Capture) && !mv.HasTag(nchess.EnPassant) {
			continue
		}
		pos := positions[i]
		target := mv.S2()
		if mv.HasTag(nchess.EnPassant) {
			if pos.Turn() == nchess.White {
				target = nchess.NewSquare(target.File(), target.Rank()-1)
			} else {
				target = nchess.NewSquare(target.File(), target.Rank()+1)
			}
		}
		pt := pos.Board().Piece(target).Type()
		if pt == nchess.NoPieceType || pt == nchess.King {
			continue
		}
		if pos.Turn() == nchess.White {
			captured.White = append(captured.White, pt)
		} else {
			captured.Black = append(captured.Black, pt)
		}
	}
	return score, captured
}
