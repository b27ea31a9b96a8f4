package chess

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/cheese-sparring/internal/chess/openingbook"
	"github.com/park285/cheese-sparring/internal/chess/rules"
)

var ErrIllegalBestMove = errors.New("engine best move is illegal")

// Source tells where the played move came from.
type Source string

const (
	SourceBook     Source = "book"
	SourcePolyglot Source = "polyglot"
	SourceEngine   Source = "engine"
)

// Engine plays one side: opening table, then Polyglot, then search plus selector.
type Engine struct {
	searcher Searcher
	selector *Selector
	tuning   Tuning
	polyglot *openingbook.Book
	logger   *zap.Logger

	randMu sync.Mutex
	rand   *rand.Rand
}

type Option func(*Engine)

// WithPolyglot enables a Polyglot book after the opening table.
func WithPolyglot(b *openingbook.Book) Option {
	return func(e *Engine) { e.polyglot = b }
}

func WithSeed(seed int64) Option {
	return func(e *Engine) { e.rand = rand.New(rand.NewSource(seed)) }
}

// NewEngine builds an Engine. A nil searcher makes every turn take the no-recommendation path.
func NewEngine(searcher Searcher, tuning Tuning, logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		searcher: searcher,
		selector: NewSelector(tuning),
		tuning:   tuning,
		logger:   logger,
		rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Tuning() Tuning { return e.tuning }

type TurnRequest struct {
	Position *rules.Position
	// History is the UCI move list from StartFEN; the opening table only applies from the standard start.
	History    []string
	StartFEN   string
	Difficulty Difficulty
}

type TurnResult struct {
	Selection      Selection
	Recommendation *Recommendation
	Source         Source
	// SearchErr is the non-fatal search failure that forced the degraded path.
	SearchErr error
	Depth     int
	Tier      Tier
	Duration  time.Duration
}

// ChooseMove decides the automated side's move for req.Position.
func (e *Engine) ChooseMove(ctx context.Context, req TurnRequest) (TurnResult, error) {
	start := time.Now()
	pos := req.Position
	if pos == nil {
		return TurnResult{}, errors.New("position required")
	}
	if !pos.HasLegalMoves() {
		return TurnResult{}, ErrNoLegalMoves
	}

	r := e.random()
	tier := e.tuning.TierFor(req.Difficulty)

	if res, ok := e.bookMove(req, r); ok {
		res.Tier = tier
		res.Duration = time.Since(start)
		return res, nil
	}

	depth := e.tuning.SearchDepth(req.Difficulty)
	result := TurnResult{Source: SourceEngine, Depth: depth, Tier: tier}

	budget := SearchRequest{FEN: pos.FEN(), Depth: depth}
	rec, err := e.search(ctx, pos, budget)
	if err != nil {
		if ctx.Err() != nil {
			return TurnResult{}, ctx.Err()
		}
		result.SearchErr = err
		e.logger.Warn("engine_search_failed",
			zap.String("fen", budget.FEN),
			zap.String("budget", FormatBudget(budget)),
			zap.Error(err),
		)
	} else {
		result.Recommendation = &rec
	}

	sel, err := e.selector.Select(SelectRequest{
		Position:       pos,
		Recommendation: result.Recommendation,
		Probability:    req.Difficulty.Probability(),
		InCheck:        pos.InCheck(),
		Tier:           tier,
	}, r)
	if err != nil {
		return TurnResult{}, err
	}
	result.Selection = sel
	result.Duration = time.Since(start)

	e.logger.Debug("engine_move_selected",
		zap.String("move", sel.Move.UCI),
		zap.String("reason", string(sel.Reason)),
		zap.Bool("degraded", sel.Degraded),
		zap.Int("pool", sel.PoolSize),
		zap.String("tier", tier.Name),
		zap.String("difficulty", req.Difficulty.String()),
		zap.String("budget", FormatBudget(budget)),
		zap.Duration("took", result.Duration),
	)
	return result, nil
}

func (e *Engine) search(ctx context.Context, pos *rules.Position, req SearchRequest) (Recommendation, error) {
	if e.searcher == nil {
		return Recommendation{}, ErrSearchUnavailable
	}
	searchCtx, cancel := context.WithTimeout(ctx, e.tuning.SearchTimeout())
	defer cancel()

	rec, err := e.searcher.Search(searchCtx, req)
	if err != nil {
		return Recommendation{}, ClassifySearchError(err)
	}
	if IsNoMove(rec.Move) {
		return Recommendation{}, ErrNoBestMove
	}
	if _, ok := pos.Legal(rec.Move); !ok {
		return Recommendation{}, fmt.Errorf("%w: %s", ErrIllegalBestMove, rec.Move)
	}
	return rec, nil
}

func (e *Engine) bookMove(req TurnRequest, r *rand.Rand) (TurnResult, bool) {
	pos := req.Position
	if isStandardStart(req.StartFEN) {
		if m, rule, ok := e.tuning.Opening.Pick(pos, req.History, r); ok {
			e.logger.Debug("opening_table_move", zap.String("rule", rule.Name), zap.String("move", m.UCI))
			return TurnResult{
				Selection: Selection{Move: m, Reason: ReasonBook},
				Source:    SourceBook,
			}, true
		}
	}

	if e.polyglot == nil || len(req.History) >= e.polyglotMaxPly() {
		return TurnResult{}, false
	}
	legal := func(uci string) bool {
		_, ok := pos.Legal(uci)
		return ok
	}
	res, ok, err := e.polyglot.Pick(pos.FEN(), legal, r)
	if err != nil {
		e.logger.Warn("polyglot_lookup_failed", zap.Error(err))
		return TurnResult{}, false
	}
	if !ok {
		return TurnResult{}, false
	}
	m, _ := pos.Legal(res.Move)
	return TurnResult{
		Selection: Selection{Move: m, Reason: ReasonBook},
		Source:    SourcePolyglot,
	}, true
}

func (e *Engine) polyglotMaxPly() int {
	if e.tuning.Opening.PolyglotMaxPly > 0 {
		return e.tuning.Opening.PolyglotMaxPly
	}
	return defaultPolyglotMaxPly
}

func isStandardStart(fen string) bool {
	if fen == "" || fen == "startpos" {
		return true
	}
	return rules.NormalizeFEN(fen) == rules.NewPosition().FEN()
}

func (e *Engine) random() *rand.Rand {
	e.randMu.Lock()
	seed := e.rand.Int63()
	e.randMu.Unlock()
	return rand.New(rand.NewSource(seed))
}

func (e *Engine) SetRandomSeed(seed int64) {
	e.randMu.Lock()
	e.rand = rand.New(rand.NewSource(seed))
	e.randMu.Unlock()
}

// Close releases the searcher when it owns resources.
func (e *Engine) Close() error {
	if c, ok := e.searcher.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
