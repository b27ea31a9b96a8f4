package domain

import "time"

// SparringGame is a finished game against the engine.
type SparringGame struct {
	ID              int64
	SessionID       string
	PlayerID        string
	PlayerColor     string
	DifficultyScale string
	DifficultyValue int
	Preset          string
	Result          string
	ResultMethod    string
	MovesUCI        []string
	MovesSAN        []string
	PGN             string
	StartFEN        string
	FinalFEN        string
	StartedAt       time.Time
	EndedAt         time.Time
	Duration        time.Duration
	EngineMoves     int
	BookMoves       int
	DegradedMoves   int
	FallbackMoves   int
	EngineLatency   time.Duration
}

type SparringProfile struct {
	PlayerID        string
	PreferredPreset string
	Rating          int
	GamesPlayed     int
	Wins            int
	Losses          int
	Draws           int
	Streak          int
	StreakType      string
	LastPreset      string
	LastPlayedAt    time.Time
	UpdatedAt       time.Time
	CreatedAt       time.Time
}
