package internal

import (
	"context"
	"log"
	"time"

	"lanhub/internal/storage"
)

// Hub is the broadcast coordinator. A single goroutine owns the presence
// table and chat log and processes every inbound signal in arrival order, so
// all connections observe the same ordering of presence and chat events.
// File events injected by the HTTP layer ride the same loop but never touch
// presence or chat state.
type Hub struct {
	register   chan *Conn
	unregister chan *Conn
	signals    chan inboundSignal
	events     chan []byte
	queries    chan func()

	conns    map[*Conn]bool
	presence *PresenceTable
	history  *ChatLog
	metrics  *Metrics

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

type inboundSignal struct {
	conn *Conn
	env  Envelope
}

func NewHub(metrics *Metrics) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		register:   make(chan *Conn),
		unregister: make(chan *Conn),
		signals:    make(chan inboundSignal),
		events:     make(chan []byte, 64),
		queries:    make(chan func()),
		conns:      make(map[*Conn]bool),
		presence:   NewPresenceTable(),
		history:    NewChatLog(MaxChatHistory),
		metrics:    metrics,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Run drives the coordinator loop until Shutdown. It must run in its own
// goroutine.
func (hub *Hub) Run() {
	defer close(hub.done)
	for {
		select {
		case <-hub.ctx.Done():
			hub.closeAll()
			return
		case conn := <-hub.register:
			hub.conns[conn] = true
			hub.metrics.IncConn()
		case conn := <-hub.unregister:
			hub.handleDisconnect(conn)
		case sig := <-hub.signals:
			hub.dispatch(sig)
		case payload := <-hub.events:
			hub.broadcast(payload)
		case query := <-hub.queries:
			query()
		}
	}
}

// Shutdown stops the loop and closes every connection. It waits for the loop
// to exit or the timeout to pass.
func (hub *Hub) Shutdown(timeout time.Duration) error {
	hub.cancel()
	select {
	case <-hub.done:
		return nil
	case <-time.After(timeout):
		return context.DeadlineExceeded
	}
}

func (hub *Hub) dispatch(sig inboundSignal) {
	switch sig.env.Type {
	case SignalJoin:
		var name string
		if err := decodeData(sig.env.Data, &name); err != nil {
			return
		}
		hub.handleJoin(sig.conn, name)
	case SignalChat:
		var payload ChatPayload
		if err := decodeData(sig.env.Data, &payload); err != nil {
			return
		}
		hub.handleChat(sig.conn, payload.Body)
	case SignalTyping:
		var isTyping bool
		if err := decodeData(sig.env.Data, &isTyping); err != nil {
			return
		}
		hub.handleTyping(sig.conn, isTyping)
	}
}

// handleJoin moves a connection from Connected to Joined: register presence,
// replay history to the joiner only, then announce the new roster to everyone
// including the joiner.
func (hub *Hub) handleJoin(conn *Conn, requestedName string) {
	participant := hub.presence.Register(conn.id, requestedName)
	hub.metrics.IncJoin()

	if payload, err := encodeSignal(SignalChatHistory, hub.history.Replay()); err == nil {
		hub.sendTo(conn, payload)
	}
	hub.broadcastUsersUpdate()
	hub.broadcastSystemMessage(participant.Username + " joined the chat")
}

// handleChat stores and fans out a message. A chat signal from a connection
// that never joined (or whose participant raced away on disconnect) is
// dropped silently.
func (hub *Hub) handleChat(conn *Conn, body string) {
	participant, ok := hub.presence.Get(conn.id)
	if !ok {
		return
	}
	message := newChatMessage(participant.ID, participant.Username, body)
	hub.history.Append(message)
	hub.metrics.IncMessage()
	if payload, err := encodeSignal(SignalChatMessage, message); err == nil {
		hub.broadcast(payload)
	}
}

// handleTyping relays a transient typing state to everyone except the sender.
func (hub *Hub) handleTyping(conn *Conn, isTyping bool) {
	participant, ok := hub.presence.Get(conn.id)
	if !ok {
		return
	}
	notice := TypingNotice{UserID: participant.ID, Username: participant.Username, IsTyping: isTyping}
	payload, err := encodeSignal(SignalUserTyping, notice)
	if err != nil {
		return
	}
	for conn2 := range hub.conns {
		if conn2 == conn {
			continue
		}
		hub.sendTo(conn2, payload)
	}
}

// handleDisconnect releases a connection. Only connections that joined
// produce a roster update and leave announcement; a connect/disconnect pair
// without a join is invisible to the room.
func (hub *Hub) handleDisconnect(conn *Conn) {
	if _, tracked := hub.conns[conn]; tracked {
		delete(hub.conns, conn)
		close(conn.send)
		hub.metrics.DecConn()
	}
	participant, joined := hub.presence.Remove(conn.id)
	if !joined {
		return
	}
	hub.broadcastUsersUpdate()
	hub.broadcastSystemMessage(participant.Username + " left the chat")
}

func (hub *Hub) broadcastUsersUpdate() {
	if payload, err := encodeSignal(SignalUsersUpdate, hub.presence.Snapshot()); err == nil {
		hub.broadcast(payload)
	}
}

func (hub *Hub) broadcastSystemMessage(text string) {
	notice := SystemMessage{Message: text, Timestamp: time.Now()}
	if payload, err := encodeSignal(SignalSystemMessage, notice); err == nil {
		hub.broadcast(payload)
	}
}

// broadcast fans a payload out to every connection. A connection whose send
// buffer is full gets dropped so one slow reader never stalls the rest; its
// read pump will report the disconnect and presence cleanup happens there.
func (hub *Hub) broadcast(payload []byte) {
	for conn := range hub.conns {
		hub.sendTo(conn, payload)
	}
}

func (hub *Hub) sendTo(conn *Conn, payload []byte) {
	if _, tracked := hub.conns[conn]; !tracked {
		return
	}
	select {
	case conn.send <- payload:
	default:
		log.Printf("dropping slow connection %s", conn.id)
		delete(hub.conns, conn)
		close(conn.send)
		hub.metrics.DecConn()
	}
}

func (hub *Hub) closeAll() {
	for conn := range hub.conns {
		delete(hub.conns, conn)
		close(conn.send)
		hub.metrics.DecConn()
		if conn.ws != nil {
			_ = conn.ws.Close()
		}
	}
}

// NotifyFileUploaded announces a completed single-file upload. Callers must
// only invoke this after the file is durably on disk.
func (hub *Hub) NotifyFileUploaded(entry storage.FileEntry) {
	hub.emitEvent(SignalFileUploaded, entry)
	hub.metrics.IncUpload()
}

// NotifyFilesUploaded announces a completed multi-file upload.
func (hub *Hub) NotifyFilesUploaded(entries []storage.FileEntry) {
	hub.emitEvent(SignalFilesUploaded, FileBatch{Count: len(entries), Files: entries})
	hub.metrics.IncUpload()
}

// NotifyFileDeleted announces a file removal.
func (hub *Hub) NotifyFileDeleted(name string) {
	hub.emitEvent(SignalFileDeleted, FileDeletion{Name: name})
	hub.metrics.IncDelete()
}

func (hub *Hub) emitEvent(signalType string, data interface{}) {
	payload, err := encodeSignal(signalType, data)
	if err != nil {
		return
	}
	select {
	case hub.events <- payload:
	case <-hub.ctx.Done():
	}
}

// Participants returns a roster snapshot taken on the coordinator loop.
func (hub *Hub) Participants() []Participant {
	var snapshot []Participant
	hub.inspect(func() {
		snapshot = hub.presence.Snapshot()
	})
	return snapshot
}

// ParticipantCount returns how many connections have joined.
func (hub *Hub) ParticipantCount() int {
	count := 0
	hub.inspect(func() {
		count = hub.presence.Len()
	})
	return count
}

// History returns a chat log snapshot taken on the coordinator loop.
func (hub *Hub) History() []ChatMessage {
	var messages []ChatMessage
	hub.inspect(func() {
		messages = hub.history.Replay()
	})
	return messages
}

// inspect runs a read-only closure on the coordinator loop so queries see a
// consistent view without extra locking. After shutdown it is a no-op.
func (hub *Hub) inspect(fn func()) {
	executed := make(chan struct{})
	wrapped := func() {
		fn()
		close(executed)
	}
	select {
	case hub.queries <- wrapped:
		<-executed
	case <-hub.ctx.Done():
	}
}
