package chess

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/park285/cheese-sparring/internal/chess/stockfishapi"
)

const SourceAPI = "stockfish_api"

// APISearcher queries a hosted Stockfish endpoint.
type APISearcher struct {
	client *stockfishapi.Client
}

func NewAPISearcher(client *stockfishapi.Client) *APISearcher {
	return &APISearcher{client: client}
}

func (s *APISearcher) Search(ctx context.Context, req SearchRequest) (Recommendation, error) {
	res, err := s.client.BestMove(ctx, req.FEN, req.Depth)
	switch {
	case err == nil:
	case errors.Is(err, stockfishapi.ErrNoMove):
		return Recommendation{Source: SourceAPI}, ErrNoBestMove
	case errors.Is(err, stockfishapi.ErrTimeout):
		return Recommendation{}, fmt.Errorf("%w: %v", ErrSearchTimeout, err)
	default:
		return Recommendation{}, ClassifySearchError(err)
	}

	rec := Recommendation{Move: res.BestMove, Depth: res.Depth, Source: SourceAPI}
	switch {
	case res.Mate != nil:
		rec.Score = MateScore(*res.Mate)
	case res.Evaluation != nil:
		rec.Score = CentipawnScore(int(math.Round(*res.Evaluation * 100)))
	}
	return rec, nil
}
