package chess

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	corechess "github.com/park285/cheese-sparring/internal/chess"
	"github.com/park285/cheese-sparring/internal/chess/rules"
	"github.com/redis/go-redis/v9"
)

type scriptedMover struct {
	mu     sync.Mutex
	result func(req corechess.TurnRequest) (corechess.TurnResult, error)
	calls  int
}

func (m *scriptedMover) ChooseMove(ctx context.Context, req corechess.TurnRequest) (corechess.TurnResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.result(req)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(ev Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) types() []EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]EventType, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

func newTestService(t *testing.T, mover Mover, opts ...Option) (*Service, SessionStore, Repository) {
	t.Helper()
	if mover == nil {
		mover = corechess.NewEngine(nil, corechess.DefaultTuning(), nil, corechess.WithSeed(7))
	}
	store := NewMemoryStore()
	repo := NewMemoryRepository()
	svc, err := NewService(mover, store, repo, nil, Config{DefaultPreset: "level10"}, nil, opts...)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, store, repo
}

func failingMover(err error) *scriptedMover {
	return &scriptedMover{result: func(corechess.TurnRequest) (corechess.TurnResult, error) {
		return corechess.TurnResult{}, err
	}}
}

func TestNewServiceValidatesDeps(t *testing.T) {
	if _, err := NewService(nil, NewMemoryStore(), NewMemoryRepository(), nil, Config{}, nil); err == nil {
		t.Fatalf("expected error for nil mover")
	}
	mover := failingMover(nil)
	if _, err := NewService(mover, nil, NewMemoryRepository(), nil, Config{}, nil); err == nil {
		t.Fatalf("expected error for nil store")
	}
	if _, err := NewService(mover, NewMemoryStore(), NewMemoryRepository(), nil, Config{DefaultPreset: "level99"}, nil); err == nil {
		t.Fatalf("expected error for unknown default preset")
	}
}

func TestStartGameAsWhite(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	summary, err := svc.StartGame(context.Background(), StartRequest{PlayerID: "p1", Color: "white"})
	if err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	st := summary.State
	if summary.Engine != nil || !st.PlayerToMove || st.Turn != ColorWhite || st.MoveCount != 0 {
		t.Fatalf("unexpected start state %+v", st)
	}
	if st.Status != "백 차례입니다." {
		t.Fatalf("unexpected status %q", st.Status)
	}
	if st.Difficulty.Value != 10 || st.Preset != "level10" {
		t.Fatalf("expected default preset, got %+v", st.Difficulty)
	}
}

func TestStartGameAsBlackEngineMovesFirst(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	summary, err := svc.StartGame(context.Background(), StartRequest{
		PlayerID:   "p1",
		Color:      "black",
		Difficulty: DifficultyRequest{Preset: "master"},
	})
	if err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	if summary.Engine == nil || summary.Engine.Source != string(corechess.SourceBook) {
		t.Fatalf("expected an opening table move, got %+v", summary.Engine)
	}
	st := summary.State
	if len(st.Moves) != 1 || !st.PlayerToMove || st.Turn != ColorBlack || st.BookMoves != 1 || st.EngineMoves != 1 {
		t.Fatalf("unexpected state after engine opening %+v", st)
	}
	if !strings.Contains(st.Notice, summary.Engine.SAN) {
		t.Fatalf("notice must name the engine move: %q / %q", st.Notice, summary.Engine.SAN)
	}
}

func TestStartGameInProgress(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()
	first, err := svc.StartGame(ctx, StartRequest{PlayerID: "p1"})
	if err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	second, err := svc.StartGame(ctx, StartRequest{PlayerID: "p1"})
	if !errors.Is(err, ErrSessionInProgress) {
		t.Fatalf("expected ErrSessionInProgress, got %v", err)
	}
	if second == nil || second.State.ID != first.State.ID {
		t.Fatalf("expected the existing session back")
	}
}

func TestStartGameRejectsBadInput(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()
	cases := []StartRequest{
		{},
		{PlayerID: "p1", Color: "purple"},
		{PlayerID: "p1", Difficulty: DifficultyRequest{Preset: "level40"}},
		{PlayerID: "p1", FEN: "not a fen"},
		{PlayerID: "p1", FEN: "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1"},
	}
	for i, req := range cases {
		if _, err := svc.StartGame(ctx, req); !errors.Is(err, ErrInvalidRequest) {
			t.Fatalf("case %d: expected ErrInvalidRequest, got %v", i, err)
		}
	}
}

func TestStartGameRandomColor(t *testing.T) {
	svc, _, _ := newTestService(t, nil, WithColorPicker(func() string { return ColorBlack }))
	summary, err := svc.StartGame(context.Background(), StartRequest{PlayerID: "p1", Color: "random"})
	if err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	if summary.State.PlayerColor != ColorBlack || summary.Engine == nil {
		t.Fatalf("expected black with an engine first move, got %+v", summary.State)
	}
}

func TestPlayMoveRunsEngineReply(t *testing.T) {
	pub := &recordingPublisher{}
	svc, _, _ := newTestService(t, nil, WithPublisher(pub))
	ctx := context.Background()
	start, err := svc.StartGame(ctx, StartRequest{PlayerID: "p1"})
	if err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	id := start.State.ID
	before := len(pub.types())

	summary, err := svc.PlayMove(ctx, id, "e4")
	if err != nil {
		t.Fatalf("PlayMove: %v", err)
	}
	if summary.PlayerUCI != "e2e4" || summary.PlayerSAN != "e4" || summary.Engine == nil {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if len(summary.State.Moves) != 2 || !summary.State.PlayerToMove {
		t.Fatalf("expected the engine to reply, got %+v", summary.State)
	}

	summary, err = svc.PlayMove(ctx, id, "g1f3")
	if err != nil {
		t.Fatalf("PlayMove uci: %v", err)
	}
	if summary.PlayerSAN != "Nf3" || len(summary.State.MovesSAN) != 4 {
		t.Fatalf("unexpected summary %+v", summary.State)
	}

	types := pub.types()[before:]
	if len(types) < 3 || types[0] != EventState || types[1] != EventThinking || types[2] != EventState {
		t.Fatalf("unexpected event order %v", types)
	}
}

func TestPlayMoveRejections(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()
	start, err := svc.StartGame(ctx, StartRequest{PlayerID: "p1"})
	if err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	id := start.State.ID

	if _, err := svc.PlayMove(ctx, id, ""); !errors.Is(err, ErrInvalidMove) {
		t.Fatalf("expected ErrInvalidMove for empty input, got %v", err)
	}
	if _, err := svc.PlayMove(ctx, id, "e5"); !errors.Is(err, ErrInvalidMove) {
		t.Fatalf("expected ErrInvalidMove, got %v", err)
	}
	if _, err := svc.PlayMove(ctx, "missing", "e4"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestEngineFailureKeepsPlayerMoveAndRetries(t *testing.T) {
	mover := failingMover(errors.New("engine exploded"))
	svc, _, _ := newTestService(t, mover)
	ctx := context.Background()
	start, err := svc.StartGame(ctx, StartRequest{PlayerID: "p1"})
	if err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	id := start.State.ID

	summary, err := svc.PlayMove(ctx, id, "d4")
	if !errors.Is(err, ErrEngineUnavailable) {
		t.Fatalf("expected ErrEngineUnavailable, got %v", err)
	}
	if summary == nil || summary.State.PlayerToMove || len(summary.State.Moves) != 1 {
		t.Fatalf("player move must survive the failure, got %+v", summary)
	}
	if _, err := svc.PlayMove(ctx, id, "e4"); !errors.Is(err, ErrNotPlayerTurn) {
		t.Fatalf("expected ErrNotPlayerTurn, got %v", err)
	}

	mover.mu.Lock()
	mover.result = func(req corechess.TurnRequest) (corechess.TurnResult, error) {
		m, _ := req.Position.Legal("d7d5")
		return corechess.TurnResult{Selection: corechess.Selection{Move: m, Reason: corechess.ReasonRecommended}, Source: corechess.SourceEngine}, nil
	}
	mover.mu.Unlock()

	retry, err := svc.EngineMove(ctx, id)
	if err != nil {
		t.Fatalf("EngineMove: %v", err)
	}
	if retry.Skipped || retry.Engine == nil || retry.Engine.UCI != "d7d5" || !retry.State.PlayerToMove {
		t.Fatalf("unexpected retry %+v", retry)
	}
}

func TestEngineTimeoutMapsToTimeout(t *testing.T) {
	svc, _, _ := newTestService(t, failingMover(context.DeadlineExceeded))
	_, err := svc.StartGame(context.Background(), StartRequest{PlayerID: "p1", Color: "black"})
	if !errors.Is(err, ErrEngineTimeout) {
		t.Fatalf("expected ErrEngineTimeout, got %v", err)
	}
}

func TestEngineMoveSkips(t *testing.T) {
	svc, store, _ := newTestService(t, nil)
	ctx := context.Background()
	start, err := svc.StartGame(ctx, StartRequest{PlayerID: "p1"})
	if err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	id := start.State.ID

	summary, err := svc.EngineMove(ctx, id)
	if err != nil || !summary.Skipped || summary.Engine != nil {
		t.Fatalf("expected a skip on the player's turn, got %+v err=%v", summary, err)
	}

	token, err := store.TryLock(ctx, id, time.Minute)
	if err != nil || token == "" {
		t.Fatalf("TryLock: token=%q err=%v", token, err)
	}
	summary, err = svc.EngineMove(ctx, id)
	if err != nil || !summary.Skipped {
		t.Fatalf("expected a skip while busy, got %+v err=%v", summary, err)
	}
	if _, err := svc.PlayMove(ctx, id, "e4"); !errors.Is(err, ErrEngineBusy) {
		t.Fatalf("expected ErrEngineBusy, got %v", err)
	}
	if err := store.Unlock(ctx, id, token); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if _, err := svc.PlayMove(ctx, id, "e4"); err != nil {
		t.Fatalf("PlayMove after unlock: %v", err)
	}
}

func TestStatusReportsThinking(t *testing.T) {
	svc, store, _ := newTestService(t, failingMover(errors.New("down")))
	ctx := context.Background()
	start, _ := svc.StartGame(ctx, StartRequest{PlayerID: "p1", Color: "black"})
	if start == nil {
		t.Fatalf("expected state despite engine failure")
	}
	id := start.State.ID
	if _, err := store.TryLock(ctx, id, time.Minute); err != nil {
		t.Fatalf("TryLock: %v", err)
	}
	st, err := svc.Status(ctx, id)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !st.Thinking || !strings.Contains(st.Notice, "컴퓨터가 생각 중입니다") {
		t.Fatalf("expected thinking state, got %+v", st)
	}
}

func TestCheckmateArchivesGame(t *testing.T) {
	svc, _, repo := newTestService(t, nil)
	ctx := context.Background()
	start, err := svc.StartGame(ctx, StartRequest{PlayerID: "p1", FEN: "7k/8/6K1/8/8/8/8/Q7 w - - 0 1"})
	if err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	id := start.State.ID

	summary, err := svc.PlayMove(ctx, id, "Qa8")
	if err != nil {
		t.Fatalf("PlayMove: %v", err)
	}
	if !summary.Finished || summary.Result != resultWin || summary.Engine != nil {
		t.Fatalf("expected a finished win, got %+v", summary)
	}
	if summary.State.Status != "체크메이트! 백 승리" || summary.State.Method != "checkmate" {
		t.Fatalf("unexpected final state %+v", summary.State)
	}
	if summary.GameID == 0 || summary.Profile == nil || summary.RatingDelta <= 0 {
		t.Fatalf("expected archive and rating update, got %+v", summary)
	}

	if _, err := svc.Status(ctx, id); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("finished session must be deleted, got %v", err)
	}
	games, err := svc.History(ctx, "p1", 0)
	if err != nil || len(games) != 1 {
		t.Fatalf("History: %v (%d)", err, len(games))
	}
	g := games[0]
	if g.SessionID != id || g.StartFEN == "" || g.MovesSAN[0] != "Qa8#" || g.Result != resultWin {
		t.Fatalf("unexpected archived game %+v", g)
	}
	if _, err := svc.Game(ctx, "p2", g.ID); !errors.Is(err, ErrGameNotFound) {
		t.Fatalf("other players must not see the game, got %v", err)
	}
	if p, err := repo.GetProfile(ctx, "p1"); err != nil || p.Wins != 1 || p.StreakType != resultWin {
		t.Fatalf("unexpected profile %+v err=%v", p, err)
	}

	if _, err := svc.StartGame(ctx, StartRequest{PlayerID: "p1"}); err != nil {
		t.Fatalf("a new game must be allowed after the finish: %v", err)
	}
}

func TestResignRecordsLoss(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()
	start, err := svc.StartGame(ctx, StartRequest{PlayerID: "p1", Color: "black"})
	if err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	summary, err := svc.Resign(ctx, start.State.ID)
	if err != nil {
		t.Fatalf("Resign: %v", err)
	}
	if !summary.Finished || summary.Result != resultLoss || summary.RatingDelta >= 0 {
		t.Fatalf("unexpected resign summary %+v", summary)
	}
	if summary.State.Status != "흑 기권, 백 승리" {
		t.Fatalf("unexpected status %q", summary.State.Status)
	}
	games, _ := svc.History(ctx, "p1", 5)
	if len(games) != 1 || games[0].EngineMoves != 1 || games[0].BookMoves != 1 {
		t.Fatalf("unexpected archive %+v", games)
	}
}

func TestSetDifficulty(t *testing.T) {
	svc, _, repo := newTestService(t, nil)
	ctx := context.Background()
	start, err := svc.StartGame(ctx, StartRequest{PlayerID: "p1"})
	if err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	id := start.State.ID

	if _, err := svc.SetDifficulty(ctx, id, DifficultyRequest{}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	skill := 25
	if _, err := svc.SetDifficulty(ctx, id, DifficultyRequest{Scale: "skill", Value: &skill}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected out of range error, got %v", err)
	}

	st, err := svc.SetDifficulty(ctx, id, DifficultyRequest{Preset: "level5"})
	if err != nil {
		t.Fatalf("SetDifficulty: %v", err)
	}
	if st.Difficulty.Value != 5 || st.Preset != "level5" {
		t.Fatalf("unexpected difficulty %+v", st.Difficulty)
	}
	p, err := repo.GetProfile(ctx, "p1")
	if err != nil || p == nil || p.PreferredPreset != "level5" {
		t.Fatalf("preferred preset not remembered: %+v err=%v", p, err)
	}

	elo := 1800
	st, err = svc.SetDifficulty(ctx, id, DifficultyRequest{Scale: "elo", Value: &elo})
	if err != nil || st.Difficulty.Scale != "elo" || st.Preset != "" {
		t.Fatalf("unexpected elo difficulty %+v err=%v", st, err)
	}
}

func TestPreferredPresetUsedOnStart(t *testing.T) {
	svc, _, repo := newTestService(t, nil)
	ctx := context.Background()
	if err := repo.UpsertProfile(ctx, newProfile("p1", time.Now())); err != nil {
		t.Fatalf("UpsertProfile: %v", err)
	}
	p, _ := repo.GetProfile(ctx, "p1")
	p.PreferredPreset = "level22"
	if err := repo.UpsertProfile(ctx, p); err != nil {
		t.Fatalf("UpsertProfile: %v", err)
	}
	summary, err := svc.StartGame(ctx, StartRequest{PlayerID: "p1"})
	if err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	if summary.State.Difficulty.Value != 22 {
		t.Fatalf("expected preferred preset, got %+v", summary.State.Difficulty)
	}
}

func TestSelectionFallsBackToAlternatives(t *testing.T) {
	mover := &scriptedMover{result: func(req corechess.TurnRequest) (corechess.TurnResult, error) {
		alt, _ := req.Position.Legal("g8f6")
		return corechess.TurnResult{
			Selection: corechess.Selection{
				Move:         rules.Move{UCI: "a1a8"},
				Reason:       corechess.ReasonPoolSafe,
				Alternatives: []rules.Move{alt},
			},
			Source: corechess.SourceEngine,
		}, nil
	}}
	svc, _, _ := newTestService(t, mover)
	ctx := context.Background()
	start, err := svc.StartGame(ctx, StartRequest{PlayerID: "p1"})
	if err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	summary, err := svc.PlayMove(ctx, start.State.ID, "c4")
	if err != nil {
		t.Fatalf("PlayMove: %v", err)
	}
	if summary.Engine.UCI != "g8f6" || !summary.Engine.Forced || summary.State.FallbackMoves != 1 {
		t.Fatalf("expected alternative g8f6, got %+v", summary.Engine)
	}
	if !strings.Contains(summary.Engine.Notice, "유효한 수(Nf6)") {
		t.Fatalf("unexpected notice %q", summary.Engine.Notice)
	}
}

func TestSelectionFallsBackToAnyLegalMove(t *testing.T) {
	mover := &scriptedMover{result: func(req corechess.TurnRequest) (corechess.TurnResult, error) {
		return corechess.TurnResult{Selection: corechess.Selection{Move: rules.Move{UCI: "h8h1"}}}, nil
	}}
	svc, _, _ := newTestService(t, mover)
	ctx := context.Background()
	start, _ := svc.StartGame(ctx, StartRequest{PlayerID: "p1"})
	summary, err := svc.PlayMove(ctx, start.State.ID, "e4")
	if err != nil {
		t.Fatalf("PlayMove: %v", err)
	}
	if summary.Engine == nil || !summary.Engine.Forced || len(summary.State.Moves) != 2 {
		t.Fatalf("expected a forced legal move, got %+v", summary.Engine)
	}
}

func TestSearchFailureNotice(t *testing.T) {
	mover := &scriptedMover{result: func(req corechess.TurnRequest) (corechess.TurnResult, error) {
		m := req.Position.LegalMoves()[0]
		return corechess.TurnResult{
			Selection: corechess.Selection{Move: m, Reason: corechess.ReasonPoolSafe},
			Source:    corechess.SourceEngine,
			SearchErr: corechess.ErrSearchTimeout,
		}, nil
	}}
	store := NewMemoryStore()
	svc, err := NewService(mover, store, NewMemoryRepository(), nil, Config{SearchEnabled: true}, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	ctx := context.Background()
	start, err := svc.StartGame(ctx, StartRequest{PlayerID: "p1", Color: "black"})
	if err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	if start.Engine.SearchError == "" || start.State.FallbackMoves != 1 {
		t.Fatalf("expected a recorded search failure, got %+v", start.Engine)
	}
	if !strings.Contains(start.State.Notice, "API 타임아웃") {
		t.Fatalf("unexpected notice %q", start.State.Notice)
	}
}

func TestServiceWithRedisStore(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	engine := corechess.NewEngine(nil, corechess.DefaultTuning(), nil, corechess.WithSeed(3))
	svc, err := NewService(engine, NewRedisStore(rdb), NewMemoryRepository(), nil, Config{SessionTTL: time.Hour}, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	ctx := context.Background()
	start, err := svc.StartGame(ctx, StartRequest{PlayerID: "p1"})
	if err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	id := start.State.ID
	if _, err := svc.PlayMove(ctx, id, "e4"); err != nil {
		t.Fatalf("PlayMove: %v", err)
	}
	st, err := svc.Status(ctx, id)
	if err != nil || len(st.Moves) != 2 || st.Thinking {
		t.Fatalf("unexpected status %+v err=%v", st, err)
	}
	if mr.Exists("sparring:lock:" + id) {
		t.Fatalf("lock must be released after the turn")
	}
	if ttl := mr.TTL("sparring:session:" + id); ttl <= 0 || ttl > time.Hour {
		t.Fatalf("unexpected session ttl %v", ttl)
	}
}
