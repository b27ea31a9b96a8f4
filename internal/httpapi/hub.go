package httpapi

import (
	"sync"

	svcchess "github.com/park285/cheese-sparring/internal/service/chess"
	"github.com/park285/cheese-sparring/pkg/chessdto"
	"go.uber.org/zap"
)

const watcherBuffer = 16

// Hub fans session events out to the websocket watchers of each session.
type Hub struct {
	mu       sync.Mutex
	watchers map[string]map[chan chessdto.Event]struct{}
	logger   *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{watchers: make(map[string]map[chan chessdto.Event]struct{}), logger: logger}
}

// Subscribe registers a watcher for sessionID; call the returned func to leave.
func (h *Hub) Subscribe(sessionID string) (<-chan chessdto.Event, func()) {
	ch := make(chan chessdto.Event, watcherBuffer)
	h.mu.Lock()
	set, ok := h.watchers[sessionID]
	if !ok {
		set = make(map[chan chessdto.Event]struct{})
		h.watchers[sessionID] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if set, ok := h.watchers[sessionID]; ok {
				delete(set, ch)
				if len(set) == 0 {
					delete(h.watchers, sessionID)
				}
			}
		})
	}
}

// Watchers counts the watchers of sessionID.
func (h *Hub) Watchers(sessionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.watchers[sessionID])
}

// Publish never blocks; a watcher with a full buffer misses the event.
func (h *Hub) Publish(ev svcchess.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.watchers[ev.SessionID]
	if len(set) == 0 {
		return
	}
	msg := toEventDTO(ev)
	for ch := range set {
		select {
		case ch <- msg:
		default:
			h.logger.Warn("ws_event_dropped", zap.String("session_id", ev.SessionID), zap.String("type", msg.Type))
		}
	}
}
