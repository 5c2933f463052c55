package inbound

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shandysiswandi/gostream/internal/media/broadcast"
	"github.com/shandysiswandi/gostream/internal/media/entity"
)

const eventVideoStatusUpdate = "videoStatusUpdate"

const (
	wsWriteTimeout   = 10 * time.Second
	wsPingInterval   = 30 * time.Second
	wsReadDeadline   = 75 * time.Second
	wsMaxClientFrame = 512
)

type statusUpdateMessage struct {
	Event string           `json:"event"`
	Data  statusUpdateData `json:"data"`
}

type statusUpdateData struct {
	ID     string             `json:"id"`
	Status entity.AssetStatus `json:"status"`
}

type wsEndpoint struct {
	hub      *broadcast.Broadcaster
	runner   Runner
	rootCtx  context.Context
	upgrader websocket.Upgrader
}

func newWSEndpoint(hub *broadcast.Broadcaster, runner Runner, rootCtx context.Context) *wsEndpoint {
	if rootCtx == nil {
		rootCtx = context.Background()
	}

	return &wsEndpoint{
		hub:     hub,
		runner:  runner,
		rootCtx: rootCtx,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(*http.Request) bool {
				return true
			},
		},
	}
}

// Subscribe upgrades the connection and pushes one frame per status
// transition published while the client stays connected. There is no
// backlog: transitions that happen while disconnected are recovered by
// listing videos, not replayed here.
func (e *wsEndpoint) Subscribe(w http.ResponseWriter, r *http.Request) {
	conn, err := e.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.WarnContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}

	sub := e.hub.Connect()

	done := make(chan struct{})
	e.runner.Go(e.rootCtx, func(ctx context.Context) error {
		defer close(done)
		e.writePump(ctx, conn, sub)
		return nil
	})

	// the read loop only exists to notice the client going away
	conn.SetReadLimit(wsMaxClientFrame)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	e.hub.Disconnect(sub)
	_ = conn.Close()
	<-done
}

func (e *wsEndpoint) writePump(ctx context.Context, conn *websocket.Conn, sub *broadcast.Subscriber) {
	defer func() {
		// unblocks the read loop when the pump exits first
		_ = conn.Close()
	}()

	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-sub.Events():
			if !ok {
				e.writeClose(conn)
				return
			}

			msg := statusUpdateMessage{
				Event: eventVideoStatusUpdate,
				Data:  statusUpdateData{ID: event.AssetID, Status: event.Status},
			}

			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ctx.Done():
			e.writeClose(conn)
			return
		}
	}
}

func (e *wsEndpoint) writeClose(conn *websocket.Conn) {
	deadline := time.Now().Add(wsWriteTimeout)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), deadline)
}
