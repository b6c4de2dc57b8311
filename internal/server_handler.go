package internal

import (
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// the hub serves untrusted LAN peers by design; any origin may join.
		return true
	},
}

// ServeWS upgrades the request and attaches the connection to the hub in the
// Connected state. The participant only exists once a join signal arrives.
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("upgrade error: %v", err)
		return
	}

	conn := newConn(uuid.NewString(), s.hub, ws)
	select {
	case s.hub.register <- conn:
	case <-s.hub.ctx.Done():
		_ = ws.Close()
		return
	}

	go conn.writePump()
	go conn.readPump()
}
