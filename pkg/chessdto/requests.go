package chessdto

// DifficultyRequest picks a named preset or an explicit scale value.
type DifficultyRequest struct {
	Preset string `json:"preset,omitempty"`
	Scale  string `json:"scale,omitempty"`
	Value  *int   `json:"value,omitempty"`
}

type StartGameRequest struct {
	PlayerID   string            `json:"player_id"`
	Color      string            `json:"color,omitempty"`
	FEN        string            `json:"fen,omitempty"`
	Difficulty DifficultyRequest `json:"difficulty"`
}

type PlayMoveRequest struct {
	Move string `json:"move"`
}

// Response is the envelope of every API reply.
type Response struct {
	OK    bool         `json:"ok"`
	Error *DomainError `json:"error,omitempty"`

	State   *SessionState `json:"state,omitempty"`
	Summary *MoveSummary  `json:"summary,omitempty"`
	Games   []*Game       `json:"games,omitempty"`
	Game    *Game         `json:"game,omitempty"`
	Profile *Profile      `json:"profile,omitempty"`
}

// Event is one frame of the live session stream.
type Event struct {
	Type      string        `json:"type"`
	SessionID string        `json:"session_id"`
	State     *SessionState `json:"state,omitempty"`
	Summary   *MoveSummary  `json:"summary,omitempty"`
}
