package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/coursetrade/coursetrade-backend/internal/http/response"
	"github.com/coursetrade/coursetrade-backend/internal/pkg/ctxutil"
	"github.com/coursetrade/coursetrade-backend/internal/pkg/logger"
	"github.com/coursetrade/coursetrade-backend/internal/realtime"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = 30 * time.Second
	wsMaxMessageSize = 1 << 14
)

var upgrader = websocket.Upgrader{
	HandshakeTimeout: 10 * time.Second,
	ReadBufferSize:   1024,
	WriteBufferSize:  1024,
	// Browser clients connect cross-origin from the frontend dev servers;
	// origin policy is enforced by the CORS allow-list on the API instead.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsCommand is what clients send: join a room or send a message to one.
type wsCommand struct {
	Type    string    `json:"type"`
	RoomID  uuid.UUID `json:"room_id"`
	Content string    `json:"content,omitempty"`
}

// wsFrame is what the server pushes.
type wsFrame struct {
	Type    string             `json:"type"`
	RoomID  string             `json:"room_id,omitempty"`
	Event   string             `json:"event,omitempty"`
	Data    any                `json:"data,omitempty"`
	OK      *bool              `json:"ok,omitempty"`
	Message *response.APIError `json:"error,omitempty"`
}

// wsConn serializes data writes; gorilla connections allow one writer at a
// time and frames originate from both pumps.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsConn) writeJSON(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return w.conn.WriteJSON(v)
}

type WSHandler struct {
	log        *logger.Logger
	dispatcher *realtime.Dispatcher
}

func NewWSHandler(log *logger.Logger, dispatcher *realtime.Dispatcher) *WSHandler {
	return &WSHandler{
		log:        log.With("handler", "WSHandler"),
		dispatcher: dispatcher,
	}
}

// GET /ws (auth required; token passed as ?token= since browsers cannot set
// headers on upgrade requests)
func (h *WSHandler) Stream(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	raw, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	conn := &wsConn{conn: raw}

	client := h.dispatcher.Connect(rd.UserID)
	go h.writePump(conn, client)
	h.readPump(c, conn, client)
}

// readPump runs on the request goroutine; returning disconnects the client
// and, via the closed Outbound channel, stops the write pump.
func (h *WSHandler) readPump(c *gin.Context, conn *wsConn, client *realtime.Client) {
	defer func() {
		h.dispatcher.Disconnect(client)
		_ = conn.conn.Close()
	}()

	conn.conn.SetReadLimit(wsMaxMessageSize)
	_ = conn.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.conn.SetPongHandler(func(string) error {
		return conn.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, data, err := conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("websocket read error", "clientID", client.ID, "error", err)
			}
			return
		}
		var cmd wsCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			h.sendError(conn, "invalid_command", "malformed command")
			continue
		}

		ctx := c.Request.Context()
		switch cmd.Type {
		case "join":
			ok, err := h.dispatcher.Join(ctx, client, cmd.RoomID)
			if err != nil {
				h.sendError(conn, "join_failed", "could not join room")
				continue
			}
			_ = conn.writeJSON(wsFrame{Type: "joined", RoomID: cmd.RoomID.String(), OK: &ok})
		case "send":
			// A nil message with nil error is a non-member drop: the
			// sender hears nothing and no one else sees anything.
			if _, err := h.dispatcher.Send(ctx, client, cmd.RoomID, cmd.Content); err != nil {
				h.sendError(conn, "send_failed", "message was not delivered")
			}
		default:
			h.sendError(conn, "invalid_command", "unknown command type")
		}
	}
}

// writePump forwards dispatcher events to the socket and keeps the
// connection alive with pings.
func (h *WSHandler) writePump(conn *wsConn, client *realtime.Client) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-client.Outbound:
			if !ok {
				return
			}
			frame := wsFrame{
				Type:   "event",
				RoomID: ev.Channel,
				Event:  string(ev.Event),
				Data:   ev.Data,
			}
			if err := conn.writeJSON(frame); err != nil {
				return
			}
		case <-ticker.C:
			// WriteControl is safe alongside the data writer.
			if err := conn.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}

// sendError pushes an error frame to this connection only.
func (h *WSHandler) sendError(conn *wsConn, code, msg string) {
	_ = conn.writeJSON(wsFrame{
		Type:    "error",
		Message: &response.APIError{Message: msg, Code: code},
	})
}
