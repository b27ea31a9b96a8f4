package chess

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	corechess "github.com/park285/cheese-sparring/internal/chess"
	"github.com/park285/cheese-sparring/internal/chess/rules"
	"github.com/park285/cheese-sparring/internal/domain"
	"github.com/park285/cheese-sparring/internal/msgcat"
	"go.uber.org/zap"
)

var (
	ErrSessionNotFound   = errors.New("sparring session not found")
	ErrSessionInProgress = errors.New("sparring session already in progress")
	ErrInvalidMove       = errors.New("invalid chess move")
	ErrInvalidRequest    = errors.New("invalid sparring request")
	ErrNotPlayerTurn     = errors.New("not the player's turn")
	ErrGameOver          = errors.New("sparring game already finished")
	ErrEngineBusy        = errors.New("engine is thinking")
	ErrGameNotFound      = errors.New("sparring game not found")
	ErrProfileNotFound   = errors.New("sparring profile not found")
	ErrEngineUnavailable = errors.New("chess engine unavailable")
	ErrEngineTimeout     = errors.New("chess engine timeout")
)

const (
	defaultSessionTTL   = 24 * time.Hour
	defaultLockTTL      = 30 * time.Second
	defaultHistoryLimit = 10
	maxHistoryLimit     = 50
)

// Mover decides the engine's move for a position.
type Mover interface {
	ChooseMove(ctx context.Context, req corechess.TurnRequest) (corechess.TurnResult, error)
}

type EventType string

const (
	EventState    EventType = "state"
	EventThinking EventType = "thinking"
	EventFinished EventType = "finished"
)

// Event is a session change pushed to live watchers.
type Event struct {
	Type      EventType
	SessionID string
	State     *SessionState
	Summary   *MoveSummary
}

// Publisher fans session events out to watchers. Publish must not block.
type Publisher interface {
	Publish(ev Event)
}

type Config struct {
	DefaultPreset string
	SessionTTL    time.Duration
	// LockTTL bounds how long a crashed engine turn can keep a session busy.
	LockTTL      time.Duration
	HistoryLimit int
	// SearchEnabled is false when no search backend is wired; unassisted play is then silent.
	SearchEnabled bool
}

type Option func(*Service)

func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithColorPicker replaces the coin flip behind the "random" color.
func WithColorPicker(pick func() string) Option {
	return func(s *Service) { s.pickColor = pick }
}

type Service struct {
	mover            Mover
	store            SessionStore
	repo             Repository
	texts            Texts
	publisher        Publisher
	tuning           corechess.Tuning
	cfg              Config
	defaultPreset    corechess.DifficultyPreset
	searchConfigured bool
	now              func() time.Time
	pickColor        func() string
	logger           *zap.Logger
}

type DifficultyRequest struct {
	Preset string
	Scale  string
	Value  *int
}

func (r DifficultyRequest) empty() bool {
	return strings.TrimSpace(r.Preset) == "" && r.Value == nil
}

type StartRequest struct {
	PlayerID   string
	Color      string
	Difficulty DifficultyRequest
	// FEN starts from a custom position; empty means the standard start.
	FEN string
}

// EngineReply describes the engine's half of a turn.
type EngineReply struct {
	UCI         string
	SAN         string
	Source      string
	Reason      string
	Degraded    bool
	Forced      bool
	SearchError string
	Notice      string
	Depth       int
	Duration    time.Duration
}

type MoveSummary struct {
	State       *SessionState
	PlayerUCI   string
	PlayerSAN   string
	Engine      *EngineReply
	Skipped     bool
	Finished    bool
	Result      string
	GameID      int64
	Profile     *domain.SparringProfile
	RatingDelta int
}

func NewService(mover Mover, store SessionStore, repo Repository, texts Texts, cfg Config, logger *zap.Logger, opts ...Option) (*Service, error) {
	if mover == nil {
		return nil, fmt.Errorf("chess mover is required")
	}
	if store == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if repo == nil {
		return nil, fmt.Errorf("sparring repository is required")
	}
	if texts == nil {
		catalog, err := msgcat.New("")
		if err != nil {
			return nil, fmt.Errorf("load default messages: %w", err)
		}
		texts = catalog
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = defaultSessionTTL
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = defaultLockTTL
	}
	if cfg.HistoryLimit <= 0 || cfg.HistoryLimit > maxHistoryLimit {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	cfg.DefaultPreset = strings.ToLower(strings.TrimSpace(cfg.DefaultPreset))
	if cfg.DefaultPreset == "" {
		cfg.DefaultPreset = "level15"
	}
	preset, err := corechess.GetPreset(cfg.DefaultPreset)
	if err != nil {
		return nil, fmt.Errorf("default preset validation failed: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	tuning := corechess.DefaultTuning()
	if t, ok := mover.(interface{ Tuning() corechess.Tuning }); ok {
		tuning = t.Tuning()
	}

	s := &Service{
		mover:            mover,
		store:            store,
		repo:             repo,
		texts:            texts,
		tuning:           tuning,
		cfg:              cfg,
		defaultPreset:    preset,
		searchConfigured: cfg.SearchEnabled,
		now:              time.Now,
		pickColor:        coinFlipColor,
		logger:           logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func coinFlipColor() string {
	if rand.Intn(2) == 0 {
		return ColorWhite
	}
	return ColorBlack
}

func (s *Service) depthFor(d corechess.Difficulty) int {
	return s.tuning.SearchDepth(d)
}

// StartGame opens a session. When the player takes black the engine moves first.
func (s *Service) StartGame(ctx context.Context, req StartRequest) (*MoveSummary, error) {
	playerID := strings.TrimSpace(req.PlayerID)
	if playerID == "" {
		return nil, fmt.Errorf("%w: player id required", ErrInvalidRequest)
	}

	existing, err := s.store.FindByPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		game, err := replaySession(existing)
		if err != nil {
			return nil, err
		}
		return &MoveSummary{State: s.stateFromGame(existing, game)}, ErrSessionInProgress
	}

	color, err := normalizeColor(req.Color)
	if err != nil {
		return nil, err
	}
	if color == ColorRandom {
		color = s.pickColor()
	}

	startFEN := ""
	if fen := strings.TrimSpace(req.FEN); fen != "" && fen != "startpos" {
		startFEN = rules.NormalizeFEN(fen)
	}
	game, err := rules.NewGame(startFEN)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if !game.Position().HasLegalMoves() {
		return nil, fmt.Errorf("%w: start position has no legal moves", ErrInvalidRequest)
	}

	profile, err := s.repo.GetProfile(ctx, playerID)
	if err != nil {
		s.logger.Warn("sparring_profile_load_failed", zap.String("player_id", playerID), zap.Error(err))
		profile = nil
	}
	difficulty, err := s.resolveDifficulty(req.Difficulty, profile)
	if err != nil {
		return nil, err
	}

	now := s.now()
	sess := &Session{
		ID:          uuid.NewString(),
		PlayerID:    playerID,
		PlayerColor: color,
		Difficulty:  difficulty,
		StartFEN:    startFEN,
		Moves:       []string{},
		StartedAt:   now,
		UpdatedAt:   now,
	}

	token, err := s.store.TryLock(ctx, sess.ID, s.cfg.LockTTL)
	if err != nil {
		return nil, err
	}
	defer s.unlock(sess.ID, token)

	if err := s.saveSession(ctx, sess); err != nil {
		return nil, err
	}
	s.logger.Info("sparring_session_started",
		zap.String("session_id", sess.ID),
		zap.String("player_id", playerID),
		zap.String("color", color),
		zap.String("difficulty", difficulty.String()),
		zap.Bool("custom_start", startFEN != ""),
	)

	summary := &MoveSummary{}
	if game.Turn() != sess.playerColor() {
		reply, err := s.engineTurn(ctx, sess, game)
		if err != nil {
			summary.State = s.stateFromGame(sess, game)
			return summary, err
		}
		summary.Engine = reply
	}
	if err := s.settle(ctx, sess, game, summary); err != nil {
		return nil, err
	}
	return summary, nil
}

// PlayMove applies the player's move (SAN or UCI) and then runs the engine reply.
func (s *Service) PlayMove(ctx context.Context, sessionID, moveInput string) (*MoveSummary, error) {
	moveText := strings.TrimSpace(moveInput)
	if moveText == "" {
		return nil, ErrInvalidMove
	}

	token, err := s.store.TryLock(ctx, sessionID, s.cfg.LockTTL)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, ErrEngineBusy
	}
	defer s.unlock(sessionID, token)

	sess, game, err := s.loadGame(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if game.IsGameOver() {
		return nil, ErrGameOver
	}
	if game.Turn() != sess.playerColor() {
		return nil, ErrNotPlayerTurn
	}

	move, err := game.PlaySAN(moveText)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidMove, moveText)
	}
	sess.Moves = append(sess.Moves, move.UCI)
	sess.LastNotice = ""

	summary := &MoveSummary{PlayerUCI: move.UCI}
	if san := game.SANHistory(); len(san) > 0 {
		summary.PlayerSAN = san[len(san)-1]
	}

	if !game.IsGameOver() {
		if err := s.saveSession(ctx, sess); err != nil {
			return nil, err
		}
		s.publish(EventState, sess, game, nil)

		reply, err := s.engineTurn(ctx, sess, game)
		if err != nil {
			summary.State = s.stateFromGame(sess, game)
			return summary, err
		}
		summary.Engine = reply
	}

	if err := s.settle(ctx, sess, game, summary); err != nil {
		return nil, err
	}
	return summary, nil
}

// EngineMove triggers the engine's turn. It is a no-op when the engine is already
// thinking or it is not the engine's turn.
func (s *Service) EngineMove(ctx context.Context, sessionID string) (*MoveSummary, error) {
	token, err := s.store.TryLock(ctx, sessionID, s.cfg.LockTTL)
	if err != nil {
		return nil, err
	}
	if token == "" {
		state, err := s.Status(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		s.logger.Debug("engine_turn_skipped", zap.String("session_id", sessionID), zap.String("reason", "busy"))
		return &MoveSummary{State: state, Skipped: true}, nil
	}
	defer s.unlock(sessionID, token)

	sess, game, err := s.loadGame(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if game.IsGameOver() || game.Turn() == sess.playerColor() {
		s.logger.Debug("engine_turn_skipped", zap.String("session_id", sessionID), zap.String("reason", "not_engine_turn"))
		return &MoveSummary{State: s.stateFromGame(sess, game), Skipped: true}, nil
	}

	reply, err := s.engineTurn(ctx, sess, game)
	if err != nil {
		return &MoveSummary{State: s.stateFromGame(sess, game)}, err
	}
	summary := &MoveSummary{Engine: reply}
	if err := s.settle(ctx, sess, game, summary); err != nil {
		return nil, err
	}
	return summary, nil
}

// SetDifficulty changes the engine strength of a live session.
func (s *Service) SetDifficulty(ctx context.Context, sessionID string, req DifficultyRequest) (*SessionState, error) {
	if req.empty() {
		return nil, fmt.Errorf("%w: preset or value required", ErrInvalidRequest)
	}
	difficulty, err := s.resolveDifficulty(req, nil)
	if err != nil {
		return nil, err
	}

	token, err := s.store.TryLock(ctx, sessionID, s.cfg.LockTTL)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, ErrEngineBusy
	}
	defer s.unlock(sessionID, token)

	sess, game, err := s.loadGame(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if game.IsGameOver() {
		return nil, ErrGameOver
	}
	sess.Difficulty = difficulty
	if err := s.saveSession(ctx, sess); err != nil {
		return nil, err
	}
	s.rememberPreset(ctx, sess.PlayerID, difficulty)

	state := s.stateFromGame(sess, game)
	s.publishState(EventState, state, nil)
	return state, nil
}

// Status returns the live state of a session.
func (s *Service) Status(ctx context.Context, sessionID string) (*SessionState, error) {
	sess, game, err := s.loadGame(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	state := s.stateFromGame(sess, game)
	busy, err := s.store.Locked(ctx, sessionID)
	if err != nil {
		s.logger.Warn("session_lock_check_failed", zap.String("session_id", sessionID), zap.Error(err))
	}
	if busy && !state.PlayerToMove && !state.Finished {
		state.Thinking = true
		state.Notice = s.thinkingText(sess)
	}
	return state, nil
}

// Resign ends the game as a loss for the player.
func (s *Service) Resign(ctx context.Context, sessionID string) (*MoveSummary, error) {
	token, err := s.store.TryLock(ctx, sessionID, s.cfg.LockTTL)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, ErrEngineBusy
	}
	defer s.unlock(sessionID, token)

	sess, game, err := s.loadGame(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if game.IsGameOver() {
		return nil, ErrGameOver
	}
	game.Resign(sess.playerColor())
	sess.LastNotice = ""

	summary := &MoveSummary{}
	if err := s.settle(ctx, sess, game, summary); err != nil {
		return nil, err
	}
	return summary, nil
}

func (s *Service) History(ctx context.Context, playerID string, limit int) ([]*domain.SparringGame, error) {
	if limit <= 0 || limit > s.cfg.HistoryLimit {
		limit = s.cfg.HistoryLimit
	}
	return s.repo.GetRecentGames(ctx, strings.TrimSpace(playerID), limit)
}

func (s *Service) Game(ctx context.Context, playerID string, id int64) (*domain.SparringGame, error) {
	game, err := s.repo.GetGame(ctx, id, strings.TrimSpace(playerID))
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, ErrGameNotFound
	}
	return game, nil
}

func (s *Service) Profile(ctx context.Context, playerID string) (*domain.SparringProfile, error) {
	profile, err := s.repo.GetProfile(ctx, strings.TrimSpace(playerID))
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrProfileNotFound
	}
	return profile, nil
}

func (s *Service) resolveDifficulty(req DifficultyRequest, profile *domain.SparringProfile) (corechess.Difficulty, error) {
	if name := strings.TrimSpace(req.Preset); name != "" {
		p, err := corechess.GetPreset(name)
		if err != nil {
			return corechess.Difficulty{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		return p.Difficulty, nil
	}
	if req.Value != nil {
		d, err := corechess.NewDifficulty(req.Scale, *req.Value)
		if err != nil {
			return corechess.Difficulty{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		return d, nil
	}
	if profile != nil && profile.PreferredPreset != "" {
		if p, err := corechess.GetPreset(profile.PreferredPreset); err == nil {
			return p.Difficulty, nil
		}
	}
	return s.defaultPreset.Difficulty, nil
}

func (s *Service) rememberPreset(ctx context.Context, playerID string, d corechess.Difficulty) {
	name := corechess.PresetName(d)
	if name == "" {
		return
	}
	profile, err := s.repo.GetProfile(ctx, playerID)
	if err != nil {
		s.logger.Warn("sparring_profile_load_failed", zap.String("player_id", playerID), zap.Error(err))
		return
	}
	if profile == nil {
		profile = newProfile(playerID, s.now())
	}
	profile.PreferredPreset = name
	profile.UpdatedAt = s.now()
	if err := s.repo.UpsertProfile(ctx, profile); err != nil {
		s.logger.Warn("sparring_profile_save_failed", zap.String("player_id", playerID), zap.Error(err))
	}
}

// engineTurn asks the mover for a move and applies it to game, updating sess counters.
func (s *Service) engineTurn(ctx context.Context, sess *Session, game *rules.Game) (*EngineReply, error) {
	thinking := s.stateFromGame(sess, game)
	thinking.Thinking = true
	thinking.Notice = s.thinkingText(sess)
	s.publishState(EventThinking, thinking, nil)

	res, err := s.mover.ChooseMove(ctx, corechess.TurnRequest{
		Position:   game.Position(),
		History:    append([]string(nil), sess.Moves...),
		StartFEN:   sess.StartFEN,
		Difficulty: sess.Difficulty,
	})
	if err != nil {
		s.logger.Warn("engine_turn_failed",
			zap.String("session_id", sess.ID),
			zap.String("difficulty", sess.Difficulty.String()),
			zap.Int("move_count", len(sess.Moves)),
			zap.Error(err),
		)
		return nil, mapEngineError(err)
	}

	uci, forced, err := s.applySelection(sess, game, res.Selection)
	if err != nil {
		sess.LastNotice = s.text(msgEngineApplyFailed, map[string]any{"Move": res.Selection.Move.UCI})
		return nil, mapEngineError(err)
	}
	sess.Moves = append(sess.Moves, uci)

	reply := &EngineReply{
		UCI:      uci,
		Source:   string(res.Source),
		Reason:   string(res.Selection.Reason),
		Degraded: res.Selection.Degraded,
		Forced:   forced,
		Depth:    res.Depth,
		Duration: res.Duration,
	}
	if san := game.SANHistory(); len(san) > 0 {
		reply.SAN = san[len(san)-1]
	}
	if res.SearchErr != nil && s.searchConfigured {
		reply.SearchError = res.SearchErr.Error()
	}

	sess.EngineMoves++
	sess.EngineLatencyMS += res.Duration.Milliseconds()
	if res.Source == corechess.SourceBook || res.Source == corechess.SourcePolyglot {
		sess.BookMoves++
	}
	if res.Selection.Degraded {
		sess.DegradedMoves++
	}
	if forced || (res.SearchErr != nil && s.searchConfigured) {
		sess.FallbackMoves++
	}
	reply.Notice = s.engineNotice(res, reply.SAN, forced)
	sess.LastNotice = reply.Notice

	s.logOpeningLabel(sess, game, res, uci)
	return reply, nil
}

// applySelection plays the selected move, then its alternatives, then any legal move.
func (s *Service) applySelection(sess *Session, game *rules.Game, sel corechess.Selection) (string, bool, error) {
	candidates := append([]rules.Move{sel.Move}, sel.Alternatives...)
	for i, m := range candidates {
		if m.UCI == "" {
			continue
		}
		if _, err := game.Play(m.UCI); err != nil {
			s.logger.Warn("engine_move_apply_failed",
				zap.String("session_id", sess.ID),
				zap.String("move", m.UCI),
				zap.Int("attempt", i+1),
				zap.Error(err),
			)
			continue
		}
		return m.UCI, i > 0, nil
	}
	for _, m := range game.Position().LegalMoves() {
		if _, err := game.Play(m.UCI); err == nil {
			s.logger.Warn("engine_move_forced_legal",
				zap.String("session_id", sess.ID),
				zap.String("move", m.UCI),
			)
			return m.UCI, true, nil
		}
	}
	return "", false, corechess.ErrNoLegalMoves
}

// settle persists the session, archiving it when the game has ended, and publishes the result.
func (s *Service) settle(ctx context.Context, sess *Session, game *rules.Game, summary *MoveSummary) error {
	if !game.IsGameOver() {
		if err := s.saveSession(ctx, sess); err != nil {
			return err
		}
		summary.State = s.stateFromGame(sess, game)
		s.publishState(EventState, summary.State, summary)
		return nil
	}

	summary.Finished = true
	summary.Result = resultFor(game.Outcome(), sess.playerColor())
	summary.State = s.stateFromGame(sess, game)

	gameID, profile, delta, err := s.persistFinishedGame(ctx, sess, game, summary.Result)
	if err != nil {
		return err
	}
	summary.GameID = gameID
	summary.Profile = profile
	summary.RatingDelta = delta

	if err := s.store.Delete(ctx, sess); err != nil {
		s.logger.Warn("failed to delete finished sparring session", zap.String("session_id", sess.ID), zap.Error(err))
	}
	s.logger.Info("sparring_game_finished",
		zap.String("session_id", sess.ID),
		zap.String("result", summary.Result),
		zap.String("method", summary.State.Method),
		zap.Int("plies", game.Ply()),
		zap.Int64("game_id", gameID),
	)
	s.publishState(EventFinished, summary.State, summary)
	return nil
}

func (s *Service) persistFinishedGame(ctx context.Context, sess *Session, game *rules.Game, result string) (int64, *domain.SparringProfile, int, error) {
	now := s.now()
	record := &domain.SparringGame{
		SessionID:       sess.ID,
		PlayerID:        sess.PlayerID,
		PlayerColor:     sess.PlayerColor,
		DifficultyScale: sess.Difficulty.Scale,
		DifficultyValue: sess.Difficulty.Value,
		Preset:          corechess.PresetName(sess.Difficulty),
		Result:          result,
		ResultMethod:    methodFromOutcome(game.Method()),
		MovesUCI:        append([]string(nil), sess.Moves...),
		MovesSAN:        game.SANHistory(),
		PGN:             game.PGN(),
		StartFEN:        sess.StartFEN,
		FinalFEN:        game.FEN(),
		StartedAt:       sess.StartedAt,
		EndedAt:         now,
		Duration:        now.Sub(sess.StartedAt),
		EngineMoves:     sess.EngineMoves,
		BookMoves:       sess.BookMoves,
		DegradedMoves:   sess.DegradedMoves,
		FallbackMoves:   sess.FallbackMoves,
		EngineLatency:   sess.engineLatency(),
	}

	gameID, err := s.repo.InsertGame(ctx, record)
	if err != nil {
		if errors.Is(err, ErrDuplicateGame) {
			existing, fetchErr := s.repo.GetGameBySession(ctx, sess.ID, sess.PlayerID)
			if fetchErr != nil || existing == nil {
				return 0, nil, 0, err
			}
			profile, profErr := s.repo.GetProfile(ctx, sess.PlayerID)
			return existing.ID, profile, 0, profErr
		}
		return 0, nil, 0, err
	}

	profile, err := s.repo.GetProfile(ctx, sess.PlayerID)
	if err != nil {
		return gameID, nil, 0, err
	}
	profile, delta := applyGameResult(profile, sess.PlayerID, sess.Difficulty, result, now)
	if err := s.repo.UpsertProfile(ctx, profile); err != nil {
		return gameID, nil, 0, err
	}
	return gameID, profile, delta, nil
}

func mapEngineError(err error) error {
	switch {
	case err == nil:
		return ErrEngineUnavailable
	case errors.Is(err, corechess.ErrNoLegalMoves):
		return ErrGameOver
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled), errors.Is(err, corechess.ErrSearchTimeout):
		return fmt.Errorf("%w: %v", ErrEngineTimeout, err)
	default:
		return fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}
}

func (s *Service) loadGame(ctx context.Context, sessionID string) (*Session, *rules.Game, error) {
	sess, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if sess == nil {
		return nil, nil, ErrSessionNotFound
	}
	game, err := replaySession(sess)
	if err != nil {
		return nil, nil, err
	}
	return sess, game, nil
}

func (s *Service) saveSession(ctx context.Context, sess *Session) error {
	sess.UpdatedAt = s.now()
	return s.store.Save(ctx, sess, s.cfg.SessionTTL)
}

func (s *Service) unlock(sessionID, token string) {
	if token == "" {
		return
	}
	// the caller's context may already be cancelled
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.store.Unlock(ctx, sessionID, token); err != nil {
		s.logger.Warn("session_unlock_failed", zap.String("session_id", sessionID), zap.Error(err))
	}
}

func (s *Service) publish(t EventType, sess *Session, game *rules.Game, summary *MoveSummary) {
	if s.publisher == nil {
		return
	}
	s.publishState(t, s.stateFromGame(sess, game), summary)
}

func (s *Service) publishState(t EventType, state *SessionState, summary *MoveSummary) {
	if s.publisher == nil || state == nil {
		return
	}
	s.publisher.Publish(Event{Type: t, SessionID: state.ID, State: state, Summary: summary})
}
