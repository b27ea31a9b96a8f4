package chessdto

import "time"

type Game struct {
	ID              int64     `json:"id"`
	SessionID       string    `json:"session_id"`
	PlayerColor     string    `json:"player_color"`
	Difficulty      string    `json:"difficulty"`
	Preset          string    `json:"preset,omitempty"`
	Result          string    `json:"result"`
	ResultMethod    string    `json:"result_method"`
	MovesUCI        []string  `json:"moves_uci"`
	MovesSAN        []string  `json:"moves_san"`
	PGN             string    `json:"pgn"`
	StartFEN        string    `json:"start_fen,omitempty"`
	FinalFEN        string    `json:"final_fen"`
	StartedAt       time.Time `json:"started_at"`
	EndedAt         time.Time `json:"ended_at"`
	DurationMS      int64     `json:"duration_ms"`
	EngineMoves     int       `json:"engine_moves"`
	BookMoves       int       `json:"book_moves"`
	DegradedMoves   int       `json:"degraded_moves"`
	FallbackMoves   int       `json:"fallback_moves"`
	EngineLatencyMS int64     `json:"engine_latency_ms"`
}
