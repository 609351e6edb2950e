package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/anatolykoptev/go-phototag/internal/retag"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is the envelope for every websocket frame in both directions.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// wsConn serializes writes; gorilla connections allow one concurrent writer.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsConn) send(msgType string, payload any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.conn.WriteJSON(Message{Type: msgType, Payload: payload}); err != nil {
		slog.Debug("phototag: websocket write", "error", err.Error())
	}
}

func (w *wsConn) sendError(msg string) {
	w.send("error", map[string]string{"error": msg})
}

// websocket accepts {"type":"start_retag"} and streams progress, complete
// and error messages. A retag stops when the client disconnects.
func (s *Server) websocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("phototag: websocket upgrade", "error", err.Error())
		return
	}
	defer conn.Close()

	ws := &wsConn{conn: conn}
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("phototag: websocket read", "error", err.Error())
			}
			return
		}

		switch msg.Type {
		case "start_retag":
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.runRetag(ctx, ws)
			}()
		case "ping":
			ws.send("pong", nil)
		default:
			ws.sendError("Unknown message type: " + msg.Type)
		}
	}
}

func (s *Server) runRetag(ctx context.Context, ws *wsConn) {
	if s.deps.Retag == nil {
		ws.sendError("Retagging is not available")
		return
	}

	summary, err := s.deps.Retag.Run(ctx, func(p retag.Progress) {
		ws.send("progress", p)
	})
	switch {
	case errors.Is(err, retag.ErrRunning):
		ws.sendError("A retag is already running")
	case errors.Is(err, context.Canceled):
		slog.Info("phototag: retag cancelled by client disconnect")
	case err != nil:
		slog.Error("phototag: retag failed", "error", err.Error())
		ws.sendError("Retag failed: " + err.Error())
	default:
		ws.send("complete", summary)
	}
}
