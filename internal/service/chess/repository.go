package chess

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/park285/cheese-sparring/internal/domain"
)

var ErrDuplicateGame = errors.New("sparring game already exists")

type Repository interface {
	InsertGame(ctx context.Context, game *domain.SparringGame) (int64, error)
	GetRecentGames(ctx context.Context, playerID string, limit int) ([]*domain.SparringGame, error)
	GetGame(ctx context.Context, id int64, playerID string) (*domain.SparringGame, error)
	GetGameBySession(ctx context.Context, sessionID string, playerID string) (*domain.SparringGame, error)
	GetProfile(ctx context.Context, playerID string) (*domain.SparringProfile, error)
	UpsertProfile(ctx context.Context, profile *domain.SparringProfile) error
}

// Schema creates the tables the PostgreSQL repository reads and writes.
const Schema = `
CREATE TABLE IF NOT EXISTS sparring_games (
	id                BIGSERIAL PRIMARY KEY,
	session_id        TEXT NOT NULL UNIQUE,
	player_id         TEXT NOT NULL,
	player_color      TEXT NOT NULL,
	difficulty_scale  TEXT NOT NULL,
	difficulty_value  INTEGER NOT NULL,
	preset            TEXT NOT NULL DEFAULT '',
	result            TEXT NOT NULL,
	result_method     TEXT NOT NULL,
	moves_uci         JSONB NOT NULL,
	moves_san         JSONB NOT NULL,
	pgn               TEXT NOT NULL,
	start_fen         TEXT NOT NULL DEFAULT '',
	final_fen         TEXT NOT NULL,
	started_at        TIMESTAMPTZ NOT NULL,
	ended_at          TIMESTAMPTZ NOT NULL,
	duration_ms       BIGINT,
	engine_moves      INTEGER NOT NULL DEFAULT 0,
	book_moves        INTEGER NOT NULL DEFAULT 0,
	degraded_moves    INTEGER NOT NULL DEFAULT 0,
	fallback_moves    INTEGER NOT NULL DEFAULT 0,
	engine_latency_ms BIGINT
);
CREATE INDEX IF NOT EXISTS sparring_games_player_ended_idx ON sparring_games (player_id, ended_at DESC);
CREATE TABLE IF NOT EXISTS sparring_profiles (
	player_id        TEXT PRIMARY KEY,
	preferred_preset TEXT NOT NULL DEFAULT '',
	rating           INTEGER NOT NULL,
	games_played     INTEGER NOT NULL DEFAULT 0,
	wins             INTEGER NOT NULL DEFAULT 0,
	losses           INTEGER NOT NULL DEFAULT 0,
	draws            INTEGER NOT NULL DEFAULT 0,
	streak           INTEGER NOT NULL DEFAULT 0,
	streak_type      TEXT NOT NULL DEFAULT '',
	last_preset      TEXT NOT NULL DEFAULT '',
	last_played_at   TIMESTAMPTZ,
	updated_at       TIMESTAMPTZ NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL
);`

const gameColumns = `
			id,
			session_id,
			player_id,
			player_color,
			difficulty_scale,
			difficulty_value,
			preset,
			result,
			result_method,
			moves_uci,
			moves_san,
			pgn,
			start_fen,
			final_fen,
			started_at,
			ended_at,
			duration_ms,
			engine_moves,
			book_moves,
			degraded_moves,
			fallback_moves,
			engine_latency_ms`

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

// EnsureSchema applies Schema; every statement is idempotent.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply sparring schema: %w", err)
	}
	return nil
}

func (r *repository) InsertGame(ctx context.Context, game *domain.SparringGame) (int64, error) {
	if game == nil {
		return 0, fmt.Errorf("nil sparring game payload")
	}

	movesUCI, err := json.Marshal(game.MovesUCI)
	if err != nil {
		return 0, fmt.Errorf("marshal moves_uci: %w", err)
	}
	movesSAN, err := json.Marshal(game.MovesSAN)
	if err != nil {
		return 0, fmt.Errorf("marshal moves_san: %w", err)
	}

	const query = `
		INSERT INTO sparring_games (
			session_id,
			player_id,
			player_color,
			difficulty_scale,
			difficulty_value,
			preset,
			result,
			result_method,
			moves_uci,
			moves_san,
			pgn,
			start_fen,
			final_fen,
			started_at,
			ended_at,
			duration_ms,
			engine_moves,
			book_moves,
			degraded_moves,
			fallback_moves,
			engine_latency_ms
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb, $10::jsonb, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		ON CONFLICT (session_id) DO NOTHING
		RETURNING id`

	var id sql.NullInt64
	err = r.db.QueryRowContext(
		ctx,
		query,
		game.SessionID,
		game.PlayerID,
		game.PlayerColor,
		game.DifficultyScale,
		game.DifficultyValue,
		game.Preset,
		game.Result,
		game.ResultMethod,
		movesUCI,
		movesSAN,
		game.PGN,
		game.StartFEN,
		game.FinalFEN,
		game.StartedAt,
		game.EndedAt,
		game.Duration.Milliseconds(),
		game.EngineMoves,
		game.BookMoves,
		game.DegradedMoves,
		game.FallbackMoves,
		game.EngineLatency.Milliseconds(),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !id.Valid) {
		return 0, ErrDuplicateGame
	}
	if err != nil {
		return 0, fmt.Errorf("insert sparring game: %w", err)
	}
	return id.Int64, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGame(row rowScanner) (*domain.SparringGame, error) {
	var (
		game         domain.SparringGame
		movesUCIJSON []byte
		movesSANJSON []byte
		durationMS   sql.NullInt64
		latencyMS    sql.NullInt64
	)
	if err := row.Scan(
		&game.ID,
		&game.SessionID,
		&game.PlayerID,
		&game.PlayerColor,
		&game.DifficultyScale,
		&game.DifficultyValue,
		&game.Preset,
		&game.Result,
		&game.ResultMethod,
		&movesUCIJSON,
		&movesSANJSON,
		&game.PGN,
		&game.StartFEN,
		&game.FinalFEN,
		&game.StartedAt,
		&game.EndedAt,
		&durationMS,
		&game.EngineMoves,
		&game.BookMoves,
		&game.DegradedMoves,
		&game.FallbackMoves,
		&latencyMS,
	); err != nil {
		return nil, err
	}
	if durationMS.Valid {
		game.Duration = time.Duration(durationMS.Int64) * time.Millisecond
	}
	if latencyMS.Valid {
		game.EngineLatency = time.Duration(latencyMS.Int64) * time.Millisecond
	}
	if err := json.Unmarshal(movesUCIJSON, &game.MovesUCI); err != nil {
		return nil, fmt.Errorf("unmarshal moves_uci: %w", err)
	}
	if err := json.Unmarshal(movesSANJSON, &game.MovesSAN); err != nil {
		return nil, fmt.Errorf("unmarshal moves_san: %w", err)
	}
	return &game, nil
}

func (r *repository) GetRecentGames(ctx context.Context, playerID string, limit int) ([]*domain.SparringGame, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `
		SELECT` + gameColumns + `
		FROM sparring_games
		WHERE player_id = $1
		ORDER BY ended_at DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("select sparring games: %w", err)
	}
	defer rows.Close()

	games := make([]*domain.SparringGame, 0, limit)
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sparring game: %w", err)
		}
		games = append(games, game)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sparring games: %w", err)
	}
	return games, nil
}

func (r *repository) GetGame(ctx context.Context, id int64, playerID string) (*domain.SparringGame, error) {
	query := `
		SELECT` + gameColumns + `
		FROM sparring_games
		WHERE id = $1 AND player_id = $2`

	game, err := scanGame(r.db.QueryRowContext(ctx, query, id, playerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select sparring game: %w", err)
	}
	return game, nil
}

func (r *repository) GetGameBySession(ctx context.Context, sessionID string, playerID string) (*domain.SparringGame, error) {
	query := `
		SELECT` + gameColumns + `
		FROM sparring_games
		WHERE session_id = $1 AND player_id = $2
		LIMIT 1`

	game, err := scanGame(r.db.QueryRowContext(ctx, query, sessionID, playerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select sparring game by session: %w", err)
	}
	return game, nil
}

func (r *repository) GetProfile(ctx context.Context, playerID string) (*domain.SparringProfile, error) {
	const query = `
		SELECT
			player_id,
			preferred_preset,
			rating,
			games_played,
			wins,
			losses,
			draws,
			streak,
			streak_type,
			last_preset,
			last_played_at,
			updated_at,
			created_at
		FROM sparring_profiles
		WHERE player_id = $1
		LIMIT 1`

	var (
		profile      domain.SparringProfile
		lastPlayedAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, playerID).Scan(
		&profile.PlayerID,
		&profile.PreferredPreset,
		&profile.Rating,
		&profile.GamesPlayed,
		&profile.Wins,
		&profile.Losses,
		&profile.Draws,
		&profile.Streak,
		&profile.StreakType,
		&profile.LastPreset,
		&lastPlayedAt,
		&profile.UpdatedAt,
		&profile.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select sparring profile: %w", err)
	}
	if lastPlayedAt.Valid {
		profile.LastPlayedAt = lastPlayedAt.Time
	}
	return &profile, nil
}

func (r *repository) UpsertProfile(ctx context.Context, profile *domain.SparringProfile) error {
	if profile == nil {
		return fmt.Errorf("nil sparring profile payload")
	}
	const query = `
		INSERT INTO sparring_profiles (
			player_id,
			preferred_preset,
			rating,
			games_played,
			wins,
			losses,
			draws,
			streak,
			streak_type,
			last_preset,
			last_played_at,
			updated_at,
			created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
		ON CONFLICT (player_id)
		DO UPDATE SET
			preferred_preset = EXCLUDED.preferred_preset,
			rating = EXCLUDED.rating,
			games_played = EXCLUDED.games_played,
			wins = EXCLUDED.wins,
			losses = EXCLUDED.losses,
			draws = EXCLUDED.draws,
			streak = EXCLUDED.streak,
			streak_type = EXCLUDED.streak_type,
			last_preset = EXCLUDED.last_preset,
			last_played_at = EXCLUDED.last_played_at,
			updated_at = NOW()`

	var lastPlayedAt sql.NullTime
	if !profile.LastPlayedAt.IsZero() {
		lastPlayedAt = sql.NullTime{Time: profile.LastPlayedAt, Valid: true}
	}
	_, err := r.db.ExecContext(
		ctx,
		query,
		profile.PlayerID,
		profile.PreferredPreset,
		profile.Rating,
		profile.GamesPlayed,
		profile.Wins,
		profile.Losses,
		profile.Draws,
		profile.Streak,
		profile.StreakType,
		profile.LastPreset,
		lastPlayedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert sparring profile: %w", err)
	}
	return nil
}
