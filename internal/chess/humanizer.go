package chess

import (
	"errors"
	"math/rand"

	"github.com/park285/cheese-sparring/internal/chess/rules"
)

var ErrNoLegalMoves = errors.New("no legal moves")

type Reason string

const (
	ReasonForcedCheck   Reason = "forced_check"
	ReasonForcedMate    Reason = "forced_mate"
	ReasonFreeCapture   Reason = "free_capture"
	ReasonRecommended   Reason = "recommended"
	ReasonPoolFree      Reason = "pool_free_capture"
	ReasonPoolExchange  Reason = "pool_exchange_up"
	ReasonPoolSafe      Reason = "pool_safe"
	ReasonPoolExhausted Reason = "pool_exhausted"
	ReasonNoMateRandom  Reason = "random_no_mate"
	ReasonRandom        Reason = "random"
	ReasonBook          Reason = "opening_book"
)

type SelectRequest struct {
	Position *rules.Position
	// Recommendation is nil when the engine failed or had no move.
	Recommendation *Recommendation
	Probability    float64
	InCheck        bool
	Tier           Tier
}

// Selection is the move to play plus the ordered fallbacks to try if applying it fails.
type Selection struct {
	Move         rules.Move
	Reason       Reason
	Alternatives []rules.Move
	PoolSize     int
	Degraded     bool
}

// Selector blends the engine recommendation with filtered random play.
type Selector struct {
	freeCaptureNet int
	exchangeUpNet  int
}

func NewSelector(t Tuning) *Selector {
	s := &Selector{freeCaptureNet: t.FreeCaptureNet, exchangeUpNet: t.ExchangeUpNet}
	if s.freeCaptureNet <= 0 {
		s.freeCaptureNet = defaultFreeCaptureNet
	}
	if s.exchangeUpNet <= 0 {
		s.exchangeUpNet = defaultExchangeUpNet
	}
	return s
}

func (s *Selector) Select(req SelectRequest, r *rand.Rand) (Selection, error) {
	if req.Position == nil {
		return Selection{}, errors.New("position required")
	}
	legal := req.Position.LegalMoves()
	if len(legal) == 0 {
		return Selection{}, ErrNoLegalMoves
	}

	var rec *rules.Move
	if req.Recommendation != nil && !IsNoMove(req.Recommendation.Move) {
		if m, ok := req.Position.Legal(req.Recommendation.Move); ok {
			rec = &m
		}
	}
	as := newAssessor(req.Position)

	if rec == nil {
		return s.selectUnassisted(as, legal, req.Tier, r), nil
	}

	if req.InCheck {
		return Selection{Move: *rec, Reason: ReasonForcedCheck}, nil
	}
	if req.Recommendation.Score.IsMateIn(1) {
		return Selection{Move: *rec, Reason: ReasonForcedMate}, nil
	}

	if req.Tier.FreeCaptures {
		if m, ok := s.bestFreeCapture(as, legal, *rec, req.Tier); ok {
			return Selection{
				Move:         m,
				Reason:       ReasonFreeCapture,
				Alternatives: alternativesWith(nil, *rec, m),
				Degraded:     m.UCI != rec.UCI,
			}, nil
		}
	}

	if r.Float64() < req.Probability && !s.blunders(as, *rec, req.Recommendation.Score, req.Tier) {
		return Selection{Move: *rec, Reason: ReasonRecommended}, nil
	}

	candidates := make([]rules.Move, 0, len(legal)-1)
	for _, m := range legal {
		if m.UCI != rec.UCI {
			candidates = append(candidates, m)
		}
	}
	pool := s.safePool(as, candidates, req.Tier)
	if len(pool) == 0 {
		return Selection{Move: *rec, Reason: ReasonPoolExhausted}, nil
	}
	sel := s.pickTiered(as, pool, r)
	sel.Alternatives = append(sel.Alternatives, *rec)
	sel.Degraded = true
	return sel, nil
}

// blunders reports a non-forced recommendation the tier's filters reject: one that
// allows mate in one, or one the engine scores as losing that also hangs material.
func (s *Selector) blunders(as *assessor, rec rules.Move, score Score, tier Tier) bool {
	if tier.MateGuard && as.allowsMate(rec) {
		return true
	}
	return score.Losing() && tier.HangThreshold > 0 && as.hangs(rec, tier.HangThreshold)
}

// selectUnassisted runs the degraded path over every legal move.
func (s *Selector) selectUnassisted(as *assessor, legal []rules.Move, tier Tier, r *rand.Rand) Selection {
	if pool := s.safePool(as, legal, tier); len(pool) > 0 {
		return s.pickTiered(as, pool, r)
	}
	noMate := make([]rules.Move, 0, len(legal))
	for _, m := range legal {
		if !as.allowsMate(m) {
			noMate = append(noMate, m)
		}
	}
	if len(noMate) > 0 {
		return pickUniform(noMate, ReasonNoMateRandom, r)
	}
	return pickUniform(legal, ReasonRandom, r)
}

// bestFreeCapture returns the highest-value capture whose net gain clears the free threshold.
// Ties prefer the recommendation, then the larger net, then UCI order.
func (s *Selector) bestFreeCapture(as *assessor, legal []rules.Move, rec rules.Move, tier Tier) (rules.Move, bool) {
	var (
		best  assessment
		found bool
	)
	for _, m := range legal {
		if !m.IsCapture() {
			continue
		}
		a := as.assess(m)
		if a.net() < s.freeCaptureNet {
			continue
		}
		if tier.MateGuard && a.allowsMate {
			continue
		}
		if !found || betterCapture(a, best, rec.UCI) {
			best, found = a, true
		}
	}
	return best.move, found
}

func betterCapture(a, b assessment, recUCI string) bool {
	if a.gain != b.gain {
		return a.gain > b.gain
	}
	if (a.move.UCI == recUCI) != (b.move.UCI == recUCI) {
		return a.move.UCI == recUCI
	}
	if a.net() != b.net() {
		return a.net() > b.net()
	}
	return a.move.UCI < b.move.UCI
}

// safePool drops moves that allow mate in one (when guarded) or hang material past the tier threshold.
func (s *Selector) safePool(as *assessor, candidates []rules.Move, tier Tier) []rules.Move {
	pool := make([]rules.Move, 0, len(candidates))
	for _, m := range candidates {
		if tier.MateGuard && as.allowsMate(m) {
			continue
		}
		if tier.HangThreshold > 0 && as.hangs(m, tier.HangThreshold) {
			continue
		}
		pool = append(pool, m)
	}
	return pool
}

// pickTiered picks uniformly within the best non-empty tier: free captures, exchange-up captures, any.
func (s *Selector) pickTiered(as *assessor, pool []rules.Move, r *rand.Rand) Selection {
	var free, exchange, rest []rules.Move
	for _, m := range pool {
		a := as.assess(m)
		switch {
		case m.IsCapture() && a.net() >= s.freeCaptureNet:
			free = append(free, m)
		case m.IsCapture() && a.net() >= s.exchangeUpNet:
			exchange = append(exchange, m)
		default:
			rest = append(rest, m)
		}
	}

	tiers := []struct {
		moves  []rules.Move
		reason Reason
	}{
		{free, ReasonPoolFree},
		{exchange, ReasonPoolExchange},
		{rest, ReasonPoolSafe},
	}
	for i, tier := range tiers {
		if len(tier.moves) == 0 {
			continue
		}
		sel := pickUniform(tier.moves, tier.reason, r)
		for _, lower := range tiers[i+1:] {
			sel.Alternatives = append(sel.Alternatives, lower.moves...)
		}
		sel.PoolSize = len(pool)
		return sel
	}
	return Selection{}
}

func pickUniform(moves []rules.Move, reason Reason, r *rand.Rand) Selection {
	idx := r.Intn(len(moves))
	alts := make([]rules.Move, 0, len(moves)-1)
	alts = append(alts, moves[:idx]...)
	alts = append(alts, moves[idx+1:]...)
	return Selection{Move: moves[idx], Reason: reason, Alternatives: alts, PoolSize: len(moves)}
}

func alternativesWith(alts []rules.Move, rec, chosen rules.Move) []rules.Move {
	if rec.UCI == chosen.UCI {
		return alts
	}
	return append(alts, rec)
}
