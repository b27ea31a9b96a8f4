package chessdto

// Error codes carried in DomainError.Code.
const (
	CodeInvalidRequest    = "invalid_request"
	CodeInvalidMove       = "invalid_move"
	CodeNotFound          = "not_found"
	CodeSessionInProgress = "session_in_progress"
	CodeNotPlayerTurn     = "not_player_turn"
	CodeGameOver          = "game_over"
	CodeEngineBusy        = "engine_busy"
	CodeEngineTimeout     = "engine_timeout"
	CodeEngineUnavailable = "engine_unavailable"
	CodeInternal          = "internal"
)

type DomainError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "chess service error"
}
