package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	svcchess "github.com/park285/cheese-sparring/internal/service/chess"
	"github.com/park285/cheese-sparring/pkg/chessdto"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	wsWriteTimeout = 5 * time.Second
	wsPingInterval = 15 * time.Second
)

// handleWatch streams session events until the game finishes or the client leaves.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	events, leave := s.hub.Subscribe(id)
	defer leave()

	state, err := s.svc.Status(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		s.logger.Warn("ws_accept_failed", zap.String("session_id", id), zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closing")

	// Clients only listen; CloseRead handles control frames and cancels ctx on disconnect.
	ctx := conn.CloseRead(r.Context())

	initial := chessdto.Event{Type: string(svcchess.EventState), SessionID: id, State: toStateDTO(state)}
	if err := writeEvent(ctx, conn, initial); err != nil {
		return
	}

	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				return
			}
		case ev := <-events:
			if err := writeEvent(ctx, conn, ev); err != nil {
				if !errors.Is(err, context.Canceled) {
					s.logger.Debug("ws_write_failed", zap.String("session_id", id), zap.Error(err))
				}
				return
			}
			if ev.Type == string(svcchess.EventFinished) {
				_ = conn.Close(websocket.StatusNormalClosure, "game finished")
				return
			}
		}
	}
}

func writeEvent(ctx context.Context, conn *websocket.Conn, ev chessdto.Event) error {
	wctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return wsjson.Write(wctx, conn, ev)
}
