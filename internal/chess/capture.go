package chess

import "github.com/park285/cheese-sparring/internal/chess/rules"

// assessment is the one-ply material outlook of a candidate move.
type assessment struct {
	move       rules.Move
	gain       int
	worstReply int
	allowsMate bool
}

// net is captured value minus the worst immediate recapture.
func (a assessment) net() int { return a.gain - a.worstReply }

// loss is the material the opponent can win back beyond what the move took.
func (a assessment) loss() int { return a.worstReply - a.gain }

// assessor memoizes assessments for a single position.
type assessor struct {
	pos   *rules.Position
	cache map[string]assessment
}

func newAssessor(pos *rules.Position) *assessor {
	return &assessor{pos: pos, cache: make(map[string]assessment)}
}

func (as *assessor) assess(m rules.Move) assessment {
	if a, ok := as.cache[m.UCI]; ok {
		return a
	}
	after := as.pos.Apply(m)
	a := assessment{move: m, gain: PieceValue(m.Captured)}
	for _, reply := range after.LegalMoves() {
		if v := PieceValue(reply.Captured); v > a.worstReply {
			a.worstReply = v
		}
		if !a.allowsMate && after.Apply(reply).IsCheckmate() {
			a.allowsMate = true
		}
	}
	as.cache[m.UCI] = a
	return a
}

func (as *assessor) hangs(m rules.Move, threshold int) bool {
	return as.assess(m).loss() >= threshold
}

func (as *assessor) allowsMate(m rules.Move) bool {
	return as.assess(m).allowsMate
}
