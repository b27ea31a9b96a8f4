package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/park285/cheese-sparring/internal/domain"
	svcchess "github.com/park285/cheese-sparring/internal/service/chess"
	"github.com/park285/cheese-sparring/pkg/chessdto"
	"go.uber.org/zap"
)

const (
	maxBodyBytes   = 16 << 10
	playerIDHeader = "X-Player-ID"
)

// Sparring is the game service the API drives.
type Sparring interface {
	StartGame(ctx context.Context, req svcchess.StartRequest) (*svcchess.MoveSummary, error)
	PlayMove(ctx context.Context, sessionID, move string) (*svcchess.MoveSummary, error)
	EngineMove(ctx context.Context, sessionID string) (*svcchess.MoveSummary, error)
	SetDifficulty(ctx context.Context, sessionID string, req svcchess.DifficultyRequest) (*svcchess.SessionState, error)
	Status(ctx context.Context, sessionID string) (*svcchess.SessionState, error)
	Resign(ctx context.Context, sessionID string) (*svcchess.MoveSummary, error)
	History(ctx context.Context, playerID string, limit int) ([]*domain.SparringGame, error)
	Game(ctx context.Context, playerID string, id int64) (*domain.SparringGame, error)
	Profile(ctx context.Context, playerID string) (*domain.SparringProfile, error)
}

type Server struct {
	svc    Sparring
	hub    *Hub
	logger *zap.Logger
	mux    *http.ServeMux
}

func NewServer(svc Sparring, hub *Hub, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if hub == nil {
		hub = NewHub(logger)
	}
	s := &Server{svc: svc, hub: hub, logger: logger, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("POST /api/games", s.handleStart)
	s.mux.HandleFunc("GET /api/games/{id}", s.handleStatus)
	s.mux.HandleFunc("POST /api/games/{id}/moves", s.handleMove)
	s.mux.HandleFunc("POST /api/games/{id}/engine", s.handleEngine)
	s.mux.HandleFunc("PUT /api/games/{id}/difficulty", s.handleDifficulty)
	s.mux.HandleFunc("POST /api/games/{id}/resign", s.handleResign)
	s.mux.HandleFunc("GET /api/games/{id}/ws", s.handleWatch)
	s.mux.HandleFunc("GET /api/history", s.handleHistory)
	s.mux.HandleFunc("GET /api/history/{gameID}", s.handleArchivedGame)
	s.mux.HandleFunc("GET /api/profile", s.handleProfile)
}

// Handler returns the mux wrapped in the logging and recovery middleware.
func (s *Server) Handler() http.Handler {
	return withRecover(s.logger, withLogging(s.logger, s.mux))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, chessdto.Response{OK: true})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var body chessdto.StartGameRequest
	if !decodeBody(w, r, &body) {
		return
	}
	if body.PlayerID == "" {
		body.PlayerID = playerID(r)
	}
	summary, err := s.svc.StartGame(r.Context(), svcchess.StartRequest{
		PlayerID:   body.PlayerID,
		Color:      body.Color,
		FEN:        body.FEN,
		Difficulty: toDifficultyRequest(body.Difficulty),
	})
	s.writeSummary(w, http.StatusCreated, summary, err)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	state, err := s.svc.Status(r.Context(), r.PathValue("id"))
	s.writeState(w, state, err)
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var body chessdto.PlayMoveRequest
	if !decodeBody(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.Move) == "" {
		writeBadRequest(w, "move required")
		return
	}
	summary, err := s.svc.PlayMove(r.Context(), r.PathValue("id"), body.Move)
	s.writeSummary(w, http.StatusOK, summary, err)
}

func (s *Server) handleEngine(w http.ResponseWriter, r *http.Request) {
	summary, err := s.svc.EngineMove(r.Context(), r.PathValue("id"))
	s.writeSummary(w, http.StatusOK, summary, err)
}

func (s *Server) handleDifficulty(w http.ResponseWriter, r *http.Request) {
	var body chessdto.DifficultyRequest
	if !decodeBody(w, r, &body) {
		return
	}
	state, err := s.svc.SetDifficulty(r.Context(), r.PathValue("id"), toDifficultyRequest(body))
	s.writeState(w, state, err)
}

func (s *Server) handleResign(w http.ResponseWriter, r *http.Request) {
	summary, err := s.svc.Resign(r.Context(), r.PathValue("id"))
	s.writeSummary(w, http.StatusOK, summary, err)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	player := playerID(r)
	if player == "" {
		writeBadRequest(w, "player id required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	games, err := s.svc.History(r.Context(), player, limit)
	if err != nil {
		s.fail(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, chessdto.Response{OK: true, Games: toGamesDTO(games)})
}

func (s *Server) handleArchivedGame(w http.ResponseWriter, r *http.Request) {
	player := playerID(r)
	if player == "" {
		writeBadRequest(w, "player id required")
		return
	}
	id, err := strconv.ParseInt(r.PathValue("gameID"), 10, 64)
	if err != nil || id <= 0 {
		writeBadRequest(w, "invalid game id")
		return
	}
	game, err := s.svc.Game(r.Context(), player, id)
	if err != nil {
		s.fail(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, chessdto.Response{OK: true, Game: toGameDTO(game)})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	player := playerID(r)
	if player == "" {
		writeBadRequest(w, "player id required")
		return
	}
	profile, err := s.svc.Profile(r.Context(), player)
	if err != nil {
		s.fail(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, chessdto.Response{OK: true, Profile: toProfileDTO(profile)})
}

// writeSummary answers with the summary even on error so clients can keep the board in sync.
func (s *Server) writeSummary(w http.ResponseWriter, okStatus int, summary *svcchess.MoveSummary, err error) {
	if err != nil {
		status, derr := mapError(err)
		s.logFailure(err, status)
		WriteJSON(w, status, chessdto.Response{OK: false, Error: derr, Summary: toSummaryDTO(summary)})
		return
	}
	WriteJSON(w, okStatus, chessdto.Response{OK: true, Summary: toSummaryDTO(summary)})
}

func (s *Server) writeState(w http.ResponseWriter, state *svcchess.SessionState, err error) {
	if err != nil {
		s.fail(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, chessdto.Response{OK: true, State: toStateDTO(state)})
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	status, derr := mapError(err)
	s.logFailure(err, status)
	writeError(w, status, derr)
}

func (s *Server) logFailure(err error, status int) {
	if status >= http.StatusInternalServerError {
		s.logger.Warn("api_request_failed", zap.Int("status", status), zap.Error(err))
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && err != io.EOF {
		writeBadRequest(w, "bad json")
		return false
	}
	return true
}

func playerID(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get(playerIDHeader)); v != "" {
		return v
	}
	return strings.TrimSpace(r.URL.Query().Get("player_id"))
}
