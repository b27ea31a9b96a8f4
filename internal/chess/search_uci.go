package chess

import (
	"context"
	"strings"

	"github.com/park285/cheese-sparring/internal/chess/uci"
)

const SourceUCI = "uci"

// UCISearcher asks pooled local Stockfish processes for their best move.
type UCISearcher struct {
	pool    *uci.Pool
	options uci.Options
}

func NewUCISearcher(pool *uci.Pool, opt uci.Options) *UCISearcher {
	return &UCISearcher{pool: pool, options: opt}
}

func (s *UCISearcher) Search(ctx context.Context, req SearchRequest) (Recommendation, error) {
	session, err := s.pool.Acquire(ctx, s.options)
	if err != nil {
		return Recommendation{}, ClassifySearchError(err)
	}
	var releaseErr error
	defer func() {
		s.pool.Release(session, releaseErr)
	}()

	if err := session.NewGame(ctx); err != nil {
		releaseErr = err
		return Recommendation{}, ClassifySearchError(err)
	}

	resp, err := session.Search(ctx, uci.SearchRequest{
		FEN:   req.FEN,
		Moves: req.Moves,
		Limits: uci.Limits{
			Depth:          req.Depth,
			MoveTimeMillis: req.MoveTimeMillis,
		},
	})
	if err != nil {
		releaseErr = err
		return Recommendation{}, ClassifySearchError(err)
	}
	if IsNoMove(resp.BestMove) {
		return Recommendation{Source: SourceUCI}, ErrNoBestMove
	}

	rec := Recommendation{Move: strings.ToLower(resp.BestMove), Depth: req.Depth, Source: SourceUCI}
	if best, ok := resp.Best(); ok {
		rec.Score = scoreFromCandidate(best)
		if best.Depth > 0 {
			rec.Depth = best.Depth
		}
	}
	return rec, nil
}

func (s *UCISearcher) Close() error { return s.pool.Close() }

func scoreFromCandidate(c uci.Candidate) Score {
	switch c.Kind {
	case uci.ScoreMate:
		return MateScore(c.Score)
	case uci.ScoreCP:
		return CentipawnScore(c.Score)
	default:
		return Score{}
	}
}
