package chess

import (
	"errors"
	"strings"

	nchess "github.com/corentings/chess/v2"
	corechess "github.com/park285/cheese-sparring/internal/chess"
	"github.com/park285/cheese-sparring/internal/chess/openingbook"
	"github.com/park285/cheese-sparring/internal/chess/rules"
	"go.uber.org/zap"
)

// Texts renders user-facing message templates by key.
type Texts interface {
	Render(key string, data any) (string, error)
}

const (
	msgSideWhite         = "chess.side.white"
	msgSideBlack         = "chess.side.black"
	msgStatusTurn        = "chess.status.turn"
	msgStatusCheck       = "chess.status.check"
	msgStatusCheckmate   = "chess.status.checkmate"
	msgStatusDraw        = "chess.status.draw"
	msgStatusResigned    = "chess.status.resigned"
	msgEngineThinking    = "chess.engine.thinking"
	msgEngineMoved       = "chess.engine.moved"
	msgEngineFallback    = "chess.engine.fallback"
	msgEngineTimeout     = "chess.engine.timeout"
	msgEngineNoMove      = "chess.engine.no_move"
	msgEngineUnavailable = "chess.engine.unavailable"
	msgEngineApplyFailed = "chess.engine.apply_failed"
)

func (s *Service) text(key string, data map[string]any) string {
	out, err := s.texts.Render(key, data)
	if err != nil {
		s.logger.Warn("message_render_failed", zap.String("key", key), zap.Error(err))
		return key
	}
	return out
}

func (s *Service) sideName(c nchess.Color) string {
	if c == nchess.Black {
		return s.text(msgSideBlack, nil)
	}
	return s.text(msgSideWhite, nil)
}

func (s *Service) statusText(game *rules.Game) string {
	turn := game.Turn()
	switch {
	case game.IsCheckmate():
		return s.text(msgStatusCheckmate, map[string]any{"Winner": s.sideName(turn.Other())})
	case game.Method() == nchess.Resignation:
		winner := nchess.White
		if game.Outcome() == nchess.BlackWon {
			winner = nchess.Black
		}
		return s.text(msgStatusResigned, map[string]any{
			"Winner": s.sideName(winner),
			"Loser":  s.sideName(winner.Other()),
		})
	case game.IsDraw():
		return s.text(msgStatusDraw, nil)
	case game.InCheck():
		return s.text(msgStatusCheck, map[string]any{"Side": s.sideName(turn)})
	default:
		return s.text(msgStatusTurn, map[string]any{"Side": s.sideName(turn)})
	}
}

func (s *Service) thinkingText(sess *Session) string {
	return s.text(msgEngineThinking, map[string]any{
		"Level": sess.Difficulty.Value,
		"Depth": s.depthFor(sess.Difficulty),
	})
}

// engineNotice describes how the engine reached its move.
func (s *Service) engineNotice(res corechess.TurnResult, san string, forced bool) string {
	switch {
	case forced:
		return s.text(msgEngineFallback, map[string]any{"Move": san})
	case res.SearchErr == nil:
		return s.text(msgEngineMoved, map[string]any{"Move": san})
	case errors.Is(res.SearchErr, corechess.ErrSearchTimeout):
		return s.text(msgEngineTimeout, nil)
	case errors.Is(res.SearchErr, corechess.ErrNoBestMove), errors.Is(res.SearchErr, corechess.ErrIllegalBestMove):
		return s.text(msgEngineNoMove, nil)
	case errors.Is(res.SearchErr, corechess.ErrSearchUnavailable) && s.searchConfigured:
		return s.text(msgEngineUnavailable, nil)
	default:
		return s.text(msgEngineMoved, map[string]any{"Move": san})
	}
}

func (s *Service) classify(game *rules.Game) (string, bool) {
	eco, ok := openingbook.Classify(game.Raw())
	if !ok {
		return "", false
	}
	return strings.TrimSpace(eco.Code + " " + eco.Title), true
}

func (s *Service) logOpeningLabel(sess *Session, game *rules.Game, res corechess.TurnResult, moveUCI string) {
	var code, title string
	if sess.StartFEN == "" {
		if eco, ok := openingbook.Classify(game.Raw()); ok {
			code, title = eco.Code, eco.Title
		}
	}
	s.logger.Info("sparring_opening_label",
		zap.String("session_id", sess.ID),
		zap.String("eco_code", code),
		zap.String("eco_title", title),
		zap.String("source", string(res.Source)),
		zap.String("reason", string(res.Selection.Reason)),
		zap.String("difficulty", sess.Difficulty.String()),
		zap.Int("ply", game.Ply()),
		zap.String("move_uci", moveUCI),
	)
}
