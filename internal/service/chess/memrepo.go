package chess

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/park285/cheese-sparring/internal/domain"
)

// memrepo is a development-only in-memory repository used when no DB is configured.
type memrepo struct {
	mu sync.RWMutex

	nextID int64

	gamesByID      map[int64]*domain.SparringGame
	gamesByPlayer  map[string][]*domain.SparringGame // playerID -> games, latest last
	gamesBySession map[string]*domain.SparringGame

	profiles map[string]*domain.SparringProfile
}

func NewMemoryRepository() Repository {
	return &memrepo{
		gamesByID:      make(map[int64]*domain.SparringGame),
		gamesByPlayer:  make(map[string][]*domain.SparringGame),
		gamesBySession: make(map[string]*domain.SparringGame),
		profiles:       make(map[string]*domain.SparringProfile),
	}
}

func (m *memrepo) InsertGame(ctx context.Context, game *domain.SparringGame) (int64, error) {
	if game == nil {
		return 0, ErrDuplicateGame
	}
	key := strings.TrimSpace(game.SessionID)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.gamesBySession[key]; exists {
		return 0, ErrDuplicateGame
	}

	m.nextID++
	stored := cloneGame(game)
	stored.ID = m.nextID

	m.gamesByID[stored.ID] = stored
	m.gamesBySession[key] = stored
	m.gamesByPlayer[game.PlayerID] = append(m.gamesByPlayer[game.PlayerID], stored)
	return stored.ID, nil
}

func (m *memrepo) GetRecentGames(ctx context.Context, playerID string, limit int) ([]*domain.SparringGame, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.gamesByPlayer[playerID]
	items := make([]*domain.SparringGame, 0, len(list))
	for _, g := range list {
		items = append(items, cloneGame(g))
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].EndedAt.Equal(items[j].EndedAt) {
			return items[i].EndedAt.After(items[j].EndedAt)
		}
		return items[i].ID > items[j].ID
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (m *memrepo) GetGame(ctx context.Context, id int64, playerID string) (*domain.SparringGame, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.gamesByID[id]
	if !ok || g.PlayerID != playerID {
		return nil, nil
	}
	return cloneGame(g), nil
}

func (m *memrepo) GetGameBySession(ctx context.Context, sessionID string, playerID string) (*domain.SparringGame, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.gamesBySession[strings.TrimSpace(sessionID)]
	if !ok || g.PlayerID != playerID {
		return nil, nil
	}
	return cloneGame(g), nil
}

func (m *memrepo) GetProfile(ctx context.Context, playerID string) (*domain.SparringProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.profiles[strings.TrimSpace(playerID)]; ok {
		out := *p
		return &out, nil
	}
	return nil, nil
}

func (m *memrepo) UpsertProfile(ctx context.Context, profile *domain.SparringProfile) error {
	if profile == nil {
		return nil
	}
	stored := *profile
	m.mu.Lock()
	m.profiles[strings.TrimSpace(profile.PlayerID)] = &stored
	m.mu.Unlock()
	return nil
}

func cloneGame(g *domain.SparringGame) *domain.SparringGame {
	out := *g
	out.MovesUCI = append([]string(nil), g.MovesUCI...)
	out.MovesSAN = append([]string(nil), g.MovesSAN...)
	return &out
}
