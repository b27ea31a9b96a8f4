package chessdto

// EngineReply is the engine's half of a turn.
type EngineReply struct {
	MoveUCI     string `json:"move_uci"`
	MoveSAN     string `json:"move_san"`
	Source      string `json:"source"`
	Reason      string `json:"reason"`
	Degraded    bool   `json:"degraded"`
	Forced      bool   `json:"forced"`
	SearchError string `json:"search_error,omitempty"`
	Depth       int    `json:"depth"`
	DurationMS  int64  `json:"duration_ms"`
}

// MoveSummary summarises player and engine moves after executing a single turn.
type MoveSummary struct {
	State       *SessionState `json:"state"`
	PlayerUCI   string        `json:"player_uci,omitempty"`
	PlayerSAN   string        `json:"player_san,omitempty"`
	Engine      *EngineReply  `json:"engine,omitempty"`
	Skipped     bool          `json:"skipped,omitempty"`
	Finished    bool          `json:"finished"`
	Result      string        `json:"result,omitempty"`
	GameID      int64         `json:"game_id,omitempty"`
	Profile     *Profile      `json:"profile,omitempty"`
	RatingDelta int           `json:"rating_delta,omitempty"`
}
