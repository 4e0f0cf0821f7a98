package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/netguy204/ve/internal/types"
)

// wsMessage is the push envelope: `{type, data, timestamp}`.
type wsMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

type initialStateData struct {
	WorkUnits      []types.WorkUnit       `json:"work_units"`
	AttentionItems []types.AttentionItem  `json:"attention_items"`
}

// handleWS upgrades to a WebSocket connection, sends the initial_state
// snapshot, then holds the connection open for broadcastWorkUnitUpdate/
// broadcastAttentionUpdate pushes until the client disconnects.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	units, err := s.store.ListWorkUnits(r.Context(), nil)
	if err != nil {
		units = nil
	}
	attention, err := s.store.AttentionQueue(r.Context())
	if err != nil {
		attention = nil
	}

	initial := wsMessage{
		Type: "initial_state",
		Data: initialStateData{
			WorkUnits:      units,
			AttentionItems: attention,
		},
		Timestamp: time.Now(),
	}
	if err := conn.WriteJSON(initial); err != nil {
		_ = conn.Close()
		return
	}

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()

	// Drain and discard client messages (this API is push-only) until the
	// connection closes, so a dead peer is detected and removed silently
	// rather than leaking a goroutine.
	go func() {
		defer s.removeConn(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) removeConn(conn *websocket.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	_ = conn.Close()
}

// broadcast pushes msg to every open connection, dropping (and closing) any
// connection whose write fails rather than blocking the caller on a slow
// client.
func (s *Server) broadcast(msg wsMessage) {
	s.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		_ = c.SetWriteDeadline(time.Now().Add(2 * time.Second))
		if err := c.WriteJSON(msg); err != nil {
			s.removeConn(c)
		}
	}
}

func (s *Server) broadcastWorkUnitUpdate(wu types.WorkUnit) {
	s.broadcast(wsMessage{Type: "work_unit_update", Data: wu, Timestamp: time.Now()})
}

func (s *Server) broadcastAttentionUpdate(items []types.AttentionItem) {
	s.broadcast(wsMessage{Type: "attention_update", Data: items, Timestamp: time.Now()})
}
