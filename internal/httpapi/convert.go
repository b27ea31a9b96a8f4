package httpapi

import (
	"strconv"

	nchess "github.com/corentings/chess/v2"
	"github.com/park285/cheese-sparring/internal/domain"
	svcchess "github.com/park285/cheese-sparring/internal/service/chess"
	"github.com/park285/cheese-sparring/pkg/chessdto"
)

func toStateDTO(st *svcchess.SessionState) *chessdto.SessionState {
	if st == nil {
		return nil
	}
	out := &chessdto.SessionState{
		SessionID:   st.ID,
		PlayerID:    st.PlayerID,
		PlayerColor: st.PlayerColor,
		Orientation: st.PlayerColor,
		Difficulty: chessdto.Difficulty{
			Scale: st.Difficulty.Scale,
			Value: st.Difficulty.Value,
			Max:   st.Difficulty.Max(),
		},
		Preset:        st.Preset,
		StartFEN:      st.StartFEN,
		FEN:           st.FEN,
		MovesUCI:      append([]string{}, st.Moves...),
		MovesSAN:      append([]string{}, st.MovesSAN...),
		Turn:          st.Turn,
		PlayerToMove:  st.PlayerToMove,
		InCheck:       st.InCheck,
		Finished:      st.Finished,
		Status:        st.Status,
		Notice:        st.Notice,
		Thinking:      st.Thinking,
		MoveCount:     st.MoveCount,
		Opening:       st.Opening,
		Material:      chessdto.MaterialScore{White: st.Material.White, Black: st.Material.Black, Diff: st.Material.Diff()},
		Captured:      chessdto.CapturedPieces{White: pieceNames(st.Captured.White), Black: pieceNames(st.Captured.Black)},
		EngineMoves:   st.EngineMoves,
		BookMoves:     st.BookMoves,
		DegradedMoves: st.DegradedMoves,
		FallbackMoves: st.FallbackMoves,
		StartedAt:     st.StartedAt,
		UpdatedAt:     st.UpdatedAt,
	}
	if st.Finished {
		out.Outcome = st.Outcome
		out.OutcomeMeta = st.Method
	}
	return out
}

func pieceNames(pieces []nchess.PieceType) []string {
	out := make([]string, 0, len(pieces))
	for _, p := range pieces {
		out = append(out, p.String())
	}
	return out
}

func toSummaryDTO(s *svcchess.MoveSummary) *chessdto.MoveSummary {
	if s == nil {
		return nil
	}
	out := &chessdto.MoveSummary{
		State:       toStateDTO(s.State),
		PlayerUCI:   s.PlayerUCI,
		PlayerSAN:   s.PlayerSAN,
		Skipped:     s.Skipped,
		Finished:    s.Finished,
		Result:      s.Result,
		GameID:      s.GameID,
		Profile:     toProfileDTO(s.Profile),
		RatingDelta: s.RatingDelta,
	}
	if e := s.Engine; e != nil {
		out.Engine = &chessdto.EngineReply{
			MoveUCI:     e.UCI,
			MoveSAN:     e.SAN,
			Source:      e.Source,
			Reason:      e.Reason,
			Degraded:    e.Degraded,
			Forced:      e.Forced,
			SearchError: e.SearchError,
			Depth:       e.Depth,
			DurationMS:  e.Duration.Milliseconds(),
		}
	}
	return out
}

func toGameDTO(g *domain.SparringGame) *chessdto.Game {
	if g == nil {
		return nil
	}
	return &chessdto.Game{
		ID:              g.ID,
		SessionID:       g.SessionID,
		PlayerColor:     g.PlayerColor,
		Difficulty:      g.DifficultyScale + " " + strconv.Itoa(g.DifficultyValue),
		Preset:          g.Preset,
		Result:          g.Result,
		ResultMethod:    g.ResultMethod,
		MovesUCI:        append([]string{}, g.MovesUCI...),
		MovesSAN:        append([]string{}, g.MovesSAN...),
		PGN:             g.PGN,
		StartFEN:        g.StartFEN,
		FinalFEN:        g.FinalFEN,
		StartedAt:       g.StartedAt,
		EndedAt:         g.EndedAt,
		DurationMS:      g.Duration.Milliseconds(),
		EngineMoves:     g.EngineMoves,
		BookMoves:       g.BookMoves,
		DegradedMoves:   g.DegradedMoves,
		FallbackMoves:   g.FallbackMoves,
		EngineLatencyMS: g.EngineLatency.Milliseconds(),
	}
}

func toGamesDTO(games []*domain.SparringGame) []*chessdto.Game {
	out := make([]*chessdto.Game, 0, len(games))
	for _, g := range games {
		out = append(out, toGameDTO(g))
	}
	return out
}

func toProfileDTO(p *domain.SparringProfile) *chessdto.Profile {
	if p == nil {
		return nil
	}
	return &chessdto.Profile{
		PlayerID:        p.PlayerID,
		PreferredPreset: p.PreferredPreset,
		Rating:          p.Rating,
		GamesPlayed:     p.GamesPlayed,
		Wins:            p.Wins,
		Losses:          p.Losses,
		Draws:           p.Draws,
		Streak:          p.Streak,
		StreakType:      p.StreakType,
		LastPreset:      p.LastPreset,
		LastPlayedAt:    p.LastPlayedAt,
		UpdatedAt:       p.UpdatedAt,
		CreatedAt:       p.CreatedAt,
	}
}

func toEventDTO(ev svcchess.Event) chessdto.Event {
	return chessdto.Event{
		Type:      string(ev.Type),
		SessionID: ev.SessionID,
		State:     toStateDTO(ev.State),
		Summary:   toSummaryDTO(ev.Summary),
	}
}

func toDifficultyRequest(r chessdto.DifficultyRequest) svcchess.DifficultyRequest {
	return svcchess.DifficultyRequest{Preset: r.Preset, Scale: r.Scale, Value: r.Value}
}
