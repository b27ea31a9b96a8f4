package rules

import nchess "github.com/corentings/chess/v2"

var (
	knightSteps   = [8][2]int{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
	kingSteps     = [8][2]int{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}}
	rookRays      = [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	bishopRays    = [4][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
	whitePawnFrom = [2][2]int{{-1, -1}, {1, -1}}
	blackPawnFrom = [2][2]int{{-1, 1}, {1, 1}}
)

func squareAt(file, rank int) (nchess.Square, bool) {
	if file < 0 || file > 7 || rank < 0 || rank > 7 {
		return nchess.NoSquare, false
	}
	return nchess.NewSquare(nchess.File(file), nchess.Rank(rank)), true
}

func findKing(board *nchess.Board, color nchess.Color) (nchess.Square, bool) {
	for f := 0; f < 8; f++ {
		for r := 0; r < 8; r++ {
			sq, _ := squareAt(f, r)
			pc := board.Piece(sq)
			if pc != nchess.NoPiece && pc.Type() == nchess.King && pc.Color() == color {
				return sq, true
			}
		}
	}
	return nchess.NoSquare, false
}

// attacked reports whether any piece of color by attacks target.
func attacked(board *nchess.Board, target nchess.Square, by nchess.Color) bool {
	tf, tr := int(target.File()), int(target.Rank())

	is := func(f, r int, kinds ...nchess.PieceType) bool {
		sq, ok := squareAt(f, r)
		if !ok {
			return false
		}
		pc := board.Piece(sq)
		if pc == nchess.NoPiece || pc.Color() != by {
			return false
		}
		for _, k := range kinds {
			if pc.Type() == k {
				return true
			}
		}
		return false
	}

	pawnFrom := whitePawnFrom
	if by == nchess.Black {
		pawnFrom = blackPawnFrom
	}
	for _, d := range pawnFrom {
		if is(tf+d[0], tr+d[1], nchess.Pawn) {
			return true
		}
	}
	for _, d := range knightSteps {
		if is(tf+d[0], tr+d[1], nchess.Knight) {
			return true
		}
	}
	for _, d := range kingSteps {
		if is(tf+d[0], tr+d[1], nchess.King) {
			return true
		}
	}

	slide := func(rays [4][2]int, kinds ...nchess.PieceType) bool {
		for _, d := range rays {
			f, r := tf+d[0], tr+d[1]
			for {
				sq, ok := squareAt(f, r)
				if !ok {
					break
				}
				if board.Piece(sq) != nchess.NoPiece {
					if is(f, r, kinds...) {
						return true
					}
					break
				}
				f += d[0]
				r += d[1]
			}
		}
		return false
	}

	return slide(rookRays, nchess.Rook, nchess.Queen) || slide(bishopRays, nchess.Bishop, nchess.Queen)
}
