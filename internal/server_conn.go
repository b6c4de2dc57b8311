package internal

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 8192
)

// Conn wraps one websocket connection with a buffered send queue. The id is
// assigned by the transport layer at upgrade time and doubles as the
// participant's connection id.
type Conn struct {
	id   string
	hub  *Hub
	ws   *websocket.Conn
	send chan []byte
}

func newConn(id string, hub *Hub, ws *websocket.Conn) *Conn {
	return &Conn{id: id, hub: hub, ws: ws, send: make(chan []byte, 256)}
}

// readPump decodes inbound envelopes and feeds them to the coordinator one at
// a time. Frames that are not valid envelopes are dropped; that is an
// expected race, not a fault worth logging.
func (conn *Conn) readPump() {
	defer func() {
		conn.deliverDisconnect()
		_ = conn.ws.Close()
	}()
	conn.ws.SetReadLimit(maxMsgSize)
	_ = conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	conn.ws.SetPongHandler(func(string) error {
		return conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, payload, err := conn.ws.ReadMessage()
		if err != nil {
			// normal close or read error; the deferred cleanup handles it.
			break
		}
		var env Envelope
		if err := json.Unmarshal(payload, &env); err != nil {
			continue
		}
		switch env.Type {
		case SignalJoin, SignalChat, SignalTyping:
			select {
			case conn.hub.signals <- inboundSignal{conn: conn, env: env}:
			case <-conn.hub.ctx.Done():
				return
			}
		}
	}
}

func (conn *Conn) deliverDisconnect() {
	select {
	case conn.hub.unregister <- conn:
	case <-conn.hub.ctx.Done():
	}
}

// writePump drains the send queue to the websocket and keeps the peer alive
// with periodic pings.
func (conn *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.ws.Close()
	}()
	for {
		select {
		case message, ok := <-conn.send:
			_ = conn.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// the hub dropped us; ask the peer to close and stop.
				_ = conn.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
