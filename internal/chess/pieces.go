package chess

import nchess "github.com/corentings/chess/v2"

// pieceValues in centipawns. The king is never counted as material.
var pieceValues = map[nchess.PieceType]int{
	nchess.Pawn:   100,
	nchess.Knight: 300,
	nchess.Bishop: 300,
	nchess.Rook:   500,
	nchess.Queen:  900,
	nchess.King:   0,
}

// PieceValue returns the material value of pt; unknown kinds are worth nothing.
func PieceValue(pt nchess.PieceType) int {
	return pieceValues[pt]
}
