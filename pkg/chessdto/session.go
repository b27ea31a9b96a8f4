package chessdto

import "time"

type Difficulty struct {
	Scale string `json:"scale"`
	Value int    `json:"value"`
	Max   int    `json:"max"`
}

type MaterialScore struct {
	White int `json:"white"`
	Black int `json:"black"`
	Diff  int `json:"diff"`
}

type CapturedPieces struct {
	White []string `json:"white"`
	Black []string `json:"black"`
}

// SessionState is the board as a client renders it; Orientation follows the player's color.
type SessionState struct {
	SessionID     string         `json:"session_id"`
	PlayerID      string         `json:"player_id"`
	PlayerColor   string         `json:"player_color"`
	Orientation   string         `json:"orientation"`
	Difficulty    Difficulty     `json:"difficulty"`
	Preset        string         `json:"preset,omitempty"`
	StartFEN      string         `json:"start_fen,omitempty"`
	FEN           string         `json:"fen"`
	MovesUCI      []string       `json:"moves_uci"`
	MovesSAN      []string       `json:"moves_san"`
	Turn          string         `json:"turn"`
	PlayerToMove  bool           `json:"player_to_move"`
	InCheck       bool           `json:"in_check"`
	Finished      bool           `json:"finished"`
	Outcome       string         `json:"outcome,omitempty"`
	OutcomeMeta   string         `json:"outcome_meta,omitempty"`
	Status        string         `json:"status"`
	Notice        string         `json:"notice,omitempty"`
	Thinking      bool           `json:"thinking"`
	MoveCount     int            `json:"move_count"`
	Opening       string         `json:"opening,omitempty"`
	Material      MaterialScore  `json:"material"`
	Captured      CapturedPieces `json:"captured"`
	EngineMoves   int            `json:"engine_moves"`
	BookMoves     int            `json:"book_moves"`
	DegradedMoves int            `json:"degraded_moves"`
	FallbackMoves int            `json:"fallback_moves"`
	StartedAt     time.Time      `json:"started_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}
