package uci

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"
)

const fakeEngineEnv = "UCI_FAKE_ENGINE"

// TestMain doubles as a scripted engine when the test binary is spawned by NewSession.
func TestMain(m *testing.M) {
	if os.Getenv(fakeEngineEnv) == "1" {
		runFakeEngine()
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func runFakeEngine() {
	in := bufio.NewScanner(os.Stdin)
	var position string
	for in.Scan() {
		line := strings.TrimSpace(in.Text())
		switch {
		case line == "uci":
			fmt.Println("id name fake")
			fmt.Println("uciok")
		case line == "isready":
			fmt.Println("readyok")
		case strings.HasPrefix(line, "position"):
			position = line
		case strings.HasPrefix(line, "go"):
			switch {
			case strings.HasSuffix(position, "g2g4"):
				fmt.Println("info depth 1 seldepth 1 score mate 1 nodes 20 pv d8h4")
				fmt.Println("bestmove d8h4")
			case strings.Contains(position, "fen 7k/5Q2"):
				fmt.Println("info depth 0 score cp 0")
				fmt.Println("bestmove (none)")
			default:
				fmt.Println("info string NNUE evaluation using nn.nnue")
				fmt.Println("info depth 2 score cp 12 pv d2d4")
				fmt.Println("info depth 3 seldepth 4 multipv 1 score cp 35 nodes 400 pv e2e4 e7e5")
				fmt.Println("bestmove e2e4 ponder e7e5")
			}
		case line == "quit":
			return
		}
	}
}

func newFakeSession(t *testing.T) *Session {
	t.Helper()
	t.Setenv(fakeEngineEnv, "1")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	s, err := NewSession(ctx, os.Args[0], DefaultOptions(), nil)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestParseInfo(t *testing.T) {
	info, ok := parseInfo("info depth 18 seldepth 24 multipv 2 score cp -41 nodes 1 pv g8f6 c2c4")
	if !ok || info.slot != 2 {
		t.Fatalf("expected slot 2, got %d ok=%v", info.slot, ok)
	}
	if info.Kind != ScoreCP || info.Score != -41 || info.Depth != 18 || info.Move != "g8f6" {
		t.Fatalf("unexpected candidate %+v", info.Candidate)
	}
	if len(info.Principal) != 2 || info.Principal[1] != "c2c4" {
		t.Fatalf("unexpected pv %v", info.Principal)
	}

	mate, ok := parseInfo("info depth 5 score mate -3 pv e1e2 d8h4")
	if !ok || mate.Kind != ScoreMate || mate.Score != -3 {
		t.Fatalf("mate distance must be preserved, got %+v", mate)
	}

	for _, line := range []string{
		"info string NNUE evaluation",
		"info depth 3 score cp 10 pv",
		"bestmove e2e4",
	} {
		if _, ok := parseInfo(line); ok {
			t.Fatalf("%q must be ignored", line)
		}
	}
	if got := parseBestMove("bestmove (none)"); got != "(none)" {
		t.Fatalf("unexpected bestmove %q", got)
	}
}

func TestBuildCommands(t *testing.T) {
	if got := positionCommand("startpos", []string{"e2e4", "e7e5"}); got != "position startpos moves e2e4 e7e5" {
		t.Fatalf("unexpected position command %q", got)
	}
	if got := positionCommand("8/8/8/8/8/8/8/K6k w - - 0 1", nil); got != "position fen 8/8/8/8/8/8/8/K6k w - - 0 1" {
		t.Fatalf("unexpected fen command %q", got)
	}
	cmd, err := Limits{Depth: 14, MoveTimeMillis: 200}.goCommand()
	if err != nil {
		t.Fatalf("goCommand: %v", err)
	}
	if cmd != "go depth 14 movetime 200" {
		t.Fatalf("unexpected go command %q", cmd)
	}
	if _, err := (Limits{}).goCommand(); err == nil {
		t.Fatalf("expected error without limits")
	}
}

func TestSearchDeadlineBounds(t *testing.T) {
	if got := (Limits{Depth: 1}).deadline(); got != 6*time.Second {
		t.Fatalf("expected 6s floor, got %v", got)
	}
	if got := (Limits{Depth: 200}).deadline(); got != 20*time.Second {
		t.Fatalf("expected 20s cap, got %v", got)
	}
	if got := (Limits{MoveTimeMillis: 1000}).deadline(); got != 9*time.Second {
		t.Fatalf("expected 9s for movetime 1000, got %v", got)
	}
}

func TestValidateOptions(t *testing.T) {
	if err := DefaultOptions().validate(); err != nil {
		t.Fatalf("default options invalid: %v", err)
	}
	bad := DefaultOptions()
	bad.SkillLevel = 21
	if err := bad.validate(); err == nil {
		t.Fatalf("expected skill level error")
	}
	if DefaultOptions().key() == bad.key() {
		t.Fatalf("distinct options must have distinct keys")
	}
}

func TestSessionSearch(t *testing.T) {
	s := newFakeSession(t)
	ctx := context.Background()
	if err := s.NewGame(ctx); err != nil {
		t.Fatalf("NewGame: %v", err)
	}

	resp, err := s.Search(ctx, SearchRequest{FEN: "startpos", Limits: Limits{Depth: 3}})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if resp.BestMove != "e2e4" {
		t.Fatalf("expected e2e4, got %q", resp.BestMove)
	}
	best, ok := resp.Best()
	if !ok || best.Score != 35 || best.Depth != 3 {
		t.Fatalf("expected last info line to win, got %+v", best)
	}

	resp, err = s.Search(ctx, SearchRequest{Moves: []string{"f2f3", "e7e5", "g2g4"}, Limits: Limits{Depth: 3}})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if best, _ := resp.Best(); best.Kind != ScoreMate || best.Score != 1 {
		t.Fatalf("expected mate 1, got %+v", best)
	}

	resp, err = s.Search(ctx, SearchRequest{FEN: "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1", Limits: Limits{Depth: 3}})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if resp.BestMove != "(none)" || len(resp.Candidates) != 0 {
		t.Fatalf("expected no move, got %+v", resp)
	}
}

func TestPoolReusesSessions(t *testing.T) {
	t.Setenv(fakeEngineEnv, "1")
	pool, err := NewPool(PoolConfig{BinaryPath: os.Args[0], PerOptionCapacity: 1})
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	t.Cleanup(func() { _ = pool.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	first, err := pool.Acquire(ctx, DefaultOptions())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	pool.Release(first, nil)

	second, err := pool.Acquire(ctx, DefaultOptions())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if first != second {
		t.Fatalf("expected the idle session to be reused")
	}
	pool.Release(second, nil)

	stats := pool.Stats()[DefaultOptions().key()]
	if stats[0] != 1 || stats[1] != 1 {
		t.Fatalf("expected one live idle session, got %v", stats)
	}
}

func TestNewPoolRequiresBinary(t *testing.T) {
	if _, err := NewPool(PoolConfig{}); err == nil {
		t.Fatalf("expected error without binary path")
	}
	if _, err := NewPool(PoolConfig{BinaryPath: "/nonexistent/stockfish"}); err == nil {
		t.Fatalf("expected error for missing binary")
	}
}

func TestPoolDropsFailedSessions(t *testing.T) {
	t.Setenv(fakeEngineEnv, "1")
	pool, err := NewPool(PoolConfig{BinaryPath: os.Args[0], PerOptionCapacity: 1})
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	first, err := pool.Acquire(ctx, DefaultOptions())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	pool.Release(first, context.DeadlineExceeded)
	if stats := pool.Stats()[DefaultOptions().key()]; stats != [2]int{0, 0} {
		t.Fatalf("failed session must not be kept, got %v", stats)
	}

	second, err := pool.Acquire(ctx, DefaultOptions())
	if err != nil {
		t.Fatalf("Acquire after drop: %v", err)
	}
	if second == first {
		t.Fatalf("expected a fresh session")
	}
	pool.Release(second, nil)

	if err := pool.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := pool.Acquire(ctx, DefaultOptions()); err == nil {
		t.Fatalf("expected error from a closed pool")
	}
}
