package chess

import (
	"context"
	"errors"
	"testing"
	"time"

	nchess "github.com/corentings/chess/v2"
	corechess "github.com/park285/cheese-sparring/internal/chess"
	"github.com/park285/cheese-sparring/internal/domain"
)

func TestResultFor(t *testing.T) {
	cases := []struct {
		outcome nchess.Outcome
		player  nchess.Color
		want    string
	}{
		{nchess.WhiteWon, nchess.White, resultWin},
		{nchess.WhiteWon, nchess.Black, resultLoss},
		{nchess.BlackWon, nchess.Black, resultWin},
		{nchess.BlackWon, nchess.White, resultLoss},
		{nchess.Draw, nchess.Black, resultDraw},
		{nchess.NoOutcome, nchess.White, resultUnknown},
	}
	for _, tc := range cases {
		if got := resultFor(tc.outcome, tc.player); got != tc.want {
			t.Fatalf("resultFor(%s, %s) = %s, want %s", tc.outcome, tc.player, got, tc.want)
		}
	}
}

func TestEngineRating(t *testing.T) {
	if got := engineRating(corechess.Difficulty{Scale: "level", Value: 30}); got != maxEngineRating {
		t.Fatalf("level30 should be the ceiling, got %d", got)
	}
	if got := engineRating(corechess.Difficulty{Scale: "level", Value: 1}); got < minEngineRating || got > 700 {
		t.Fatalf("level1 out of band: %d", got)
	}
	if got := engineRating(corechess.Difficulty{Scale: "elo", Value: 1850}); got != 1850 {
		t.Fatalf("elo scale must pass through, got %d", got)
	}
	if got := engineRating(corechess.Difficulty{Scale: "elo", Value: 100}); got != minEngineRating {
		t.Fatalf("elo must be clamped, got %d", got)
	}
}

func TestApplyGameResultStreaks(t *testing.T) {
	now := time.Now()
	d := corechess.Difficulty{Scale: "level", Value: 15}

	profile, delta := applyGameResult(nil, "p1", d, resultWin, now)
	if profile.Rating != defaultPlayerRating+delta || delta <= 0 || profile.Streak != 1 || profile.LastPreset != "level15" {
		t.Fatalf("unexpected first result %+v delta=%d", profile, delta)
	}
	profile, _ = applyGameResult(profile, "p1", d, resultWin, now)
	if profile.Streak != 2 || profile.Wins != 2 {
		t.Fatalf("expected a two game streak %+v", profile)
	}
	profile, delta = applyGameResult(profile, "p1", d, resultLoss, now)
	if profile.Streak != 1 || profile.StreakType != resultLoss || delta >= 0 {
		t.Fatalf("loss must reset the streak %+v delta=%d", profile, delta)
	}
	profile, _ = applyGameResult(profile, "p1", d, resultUnknown, now)
	if profile.Draws != 1 || profile.GamesPlayed != 4 {
		t.Fatalf("unknown counts as draw %+v", profile)
	}
}

func TestMemoryRepository(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	base := time.Now()
	for i, sid := range []string{"s1", "s2", "s3"} {
		id, err := repo.InsertGame(ctx, &domain.SparringGame{
			SessionID: sid,
			PlayerID:  "p1",
			MovesUCI:  []string{"e2e4"},
			EndedAt:   base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil || id != int64(i+1) {
			t.Fatalf("InsertGame %s: id=%d err=%v", sid, id, err)
		}
	}
	if _, err := repo.InsertGame(ctx, &domain.SparringGame{SessionID: "s1", PlayerID: "p1"}); !errors.Is(err, ErrDuplicateGame) {
		t.Fatalf("expected ErrDuplicateGame, got %v", err)
	}

	games, err := repo.GetRecentGames(ctx, "p1", 2)
	if err != nil || len(games) != 2 || games[0].SessionID != "s3" || games[1].SessionID != "s2" {
		t.Fatalf("unexpected recent games %+v err=%v", games, err)
	}
	games[0].MovesUCI[0] = "mutated"
	fresh, _ := repo.GetGame(ctx, 3, "p1")
	if fresh.MovesUCI[0] != "e2e4" {
		t.Fatalf("returned games must be copies")
	}
	if g, _ := repo.GetGame(ctx, 3, "p2"); g != nil {
		t.Fatalf("games are scoped to their player")
	}
	if g, _ := repo.GetGameBySession(ctx, "s2", "p1"); g == nil || g.ID != 2 {
		t.Fatalf("GetGameBySession: %+v", g)
	}
}
