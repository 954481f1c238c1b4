package httpapi

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/clevergo/websocket"
	"github.com/julienschmidt/httprouter"
	uuid "github.com/satori/go.uuid"

	"github.com/iskay-network/usdc-flow-tracker/internal/events"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true }, // rs/cors already enforces CORS_ORIGINS for normal requests
}

// wsConn adapts a websocket.Conn to events.Subscriber, serializing writes
// since the hub may call Notify concurrently with the connection's own
// read loop closing it.
type wsConn struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) ID() string { return c.id }

func (c *wsConn) Notify(update events.StatusUpdate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	payload, err := json.Marshal(struct {
		Type string               `json:"type"`
		Data events.StatusUpdate  `json:"data"`
	}{"status-update", update})
	if err != nil {
		return
	}
	_ = c.conn.WriteMessage(websocket.TextMessage, payload)
}

func (c *wsConn) send(v interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = c.conn.WriteMessage(websocket.TextMessage, payload)
}

// clientMessage is an inbound subscribe/unsubscribe control message
// (spec.md §6 WebSocket section).
type clientMessage struct {
	Type   string `json:"type"`
	FlowID string `json:"flowId"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", "err", err)
		return
	}

	client := &wsConn{id: uuid.NewV4().String(), conn: conn}
	s.hub.Register(client)
	defer s.hub.Unregister(client.id)

	client.send(struct {
		Type         string `json:"type"`
		ConnectionID string `json:"connectionId"`
		Message      string `json:"message"`
	}{"connected", client.id, "connected"})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case "subscribe":
			if msg.FlowID != "" {
				s.hub.Subscribe(msg.FlowID, client.id)
			}
		case "unsubscribe":
			if msg.FlowID != "" {
				s.hub.Unsubscribe(msg.FlowID, client.id)
			}
		}
	}
}
