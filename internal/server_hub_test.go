package internal

import (
	"encoding/json"
	"testing"
	"time"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(NewMetrics())
	go hub.Run()
	t.Cleanup(func() {
		_ = hub.Shutdown(time.Second)
	})
	return hub
}

// test connections bypass the websocket layer and talk to the hub directly.
func newTestConn(id string) *Conn {
	return &Conn{id: id, send: make(chan []byte, 32)}
}

func registerConn(t *testing.T, hub *Hub, conn *Conn) {
	t.Helper()
	select {
	case hub.register <- conn:
	case <-time.After(time.Second):
		t.Fatal("timed out registering connection")
	}
}

func sendSignal(t *testing.T, hub *Hub, conn *Conn, signalType string, data interface{}) {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal signal data: %v", err)
	}
	select {
	case hub.signals <- inboundSignal{conn: conn, env: Envelope{Type: signalType, Data: raw}}:
	case <-time.After(time.Second):
		t.Fatal("timed out sending signal")
	}
}

func recvSignal(t *testing.T, conn *Conn) Envelope {
	t.Helper()
	select {
	case payload, ok := <-conn.send:
		if !ok {
			t.Fatal("send channel closed while waiting for signal")
		}
		var env Envelope
		if err := json.Unmarshal(payload, &env); err != nil {
			t.Fatalf("unmarshal envelope: %v", err)
		}
		return env
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for signal")
	}
	return Envelope{}
}

func expectSignal(t *testing.T, conn *Conn, signalType string) Envelope {
	t.Helper()
	env := recvSignal(t, conn)
	if env.Type != signalType {
		t.Fatalf("expected signal %s, got %s", signalType, env.Type)
	}
	return env
}

func drainSignals(t *testing.T, conn *Conn, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		recvSignal(t, conn)
	}
}

func TestHubJoinFlow(t *testing.T) {
	hub := newTestHub(t)
	conn := newTestConn("conn-alice")
	registerConn(t, hub, conn)

	sendSignal(t, hub, conn, SignalJoin, "alice")

	env := expectSignal(t, conn, SignalChatHistory)
	var history []ChatMessage
	if err := decodeData(env.Data, &history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("expected empty history for a fresh hub, got %d messages", len(history))
	}

	env = expectSignal(t, conn, SignalUsersUpdate)
	var users []Participant
	if err := decodeData(env.Data, &users); err != nil {
		t.Fatalf("decode users: %v", err)
	}
	if len(users) != 1 || users[0].Username != "alice" {
		t.Fatalf("expected roster [alice], got %+v", users)
	}

	env = expectSignal(t, conn, SignalSystemMessage)
	var notice SystemMessage
	if err := decodeData(env.Data, &notice); err != nil {
		t.Fatalf("decode system message: %v", err)
	}
	if notice.Message != "alice joined the chat" {
		t.Errorf("unexpected join announcement %q", notice.Message)
	}
}

// setupJoinedPair registers alice then bob and drains their queues so each
// test starts from a quiet room of two.
func setupJoinedPair(t *testing.T, hub *Hub) (alice, bob *Conn) {
	t.Helper()
	alice = newTestConn("conn-alice")
	bob = newTestConn("conn-bob")

	registerConn(t, hub, alice)
	sendSignal(t, hub, alice, SignalJoin, "alice")
	drainSignals(t, alice, 3)

	registerConn(t, hub, bob)
	sendSignal(t, hub, bob, SignalJoin, "bob")
	drainSignals(t, bob, 3)
	drainSignals(t, alice, 2)
	return alice, bob
}

func TestHubChatBroadcast(t *testing.T) {
	hub := newTestHub(t)
	alice, bob := setupJoinedPair(t, hub)

	sendSignal(t, hub, alice, SignalChat, ChatPayload{Body: "hello bob"})

	for _, conn := range []*Conn{alice, bob} {
		env := expectSignal(t, conn, SignalChatMessage)
		var message ChatMessage
		if err := decodeData(env.Data, &message); err != nil {
			t.Fatalf("decode chat message: %v", err)
		}
		if message.Username != "alice" || message.Body != "hello bob" {
			t.Errorf("unexpected message %+v", message)
		}
	}

	history := hub.History()
	if len(history) != 1 || history[0].Body != "hello bob" {
		t.Errorf("expected history of 1 message, got %+v", history)
	}
}

func TestHubLateJoinerGetsHistory(t *testing.T) {
	hub := newTestHub(t)
	alice := newTestConn("conn-alice")
	registerConn(t, hub, alice)
	sendSignal(t, hub, alice, SignalJoin, "alice")
	drainSignals(t, alice, 3)

	sendSignal(t, hub, alice, SignalChat, ChatPayload{Body: "early message"})
	drainSignals(t, alice, 1)

	bob := newTestConn("conn-bob")
	registerConn(t, hub, bob)
	sendSignal(t, hub, bob, SignalJoin, "bob")

	env := expectSignal(t, bob, SignalChatHistory)
	var history []ChatMessage
	if err := decodeData(env.Data, &history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(history) != 1 || history[0].Body != "early message" {
		t.Fatalf("late joiner should replay earlier chat, got %+v", history)
	}
}

func TestHubChatBeforeJoinDropped(t *testing.T) {
	hub := newTestHub(t)
	conn := newTestConn("conn-lurker")
	registerConn(t, hub, conn)

	sendSignal(t, hub, conn, SignalChat, ChatPayload{Body: "should vanish"})

	// the probe event rides the same loop, so receiving it first proves the
	// chat produced no broadcast.
	hub.NotifyFileDeleted("probe")
	expectSignal(t, conn, SignalFileDeleted)

	if history := hub.History(); len(history) != 0 {
		t.Errorf("chat from a connection that never joined must not be stored, got %+v", history)
	}
}

func TestHubTypingNotEchoedToSender(t *testing.T) {
	hub := newTestHub(t)
	alice, bob := setupJoinedPair(t, hub)

	sendSignal(t, hub, bob, SignalTyping, true)

	env := expectSignal(t, alice, SignalUserTyping)
	var notice TypingNotice
	if err := decodeData(env.Data, &notice); err != nil {
		t.Fatalf("decode typing notice: %v", err)
	}
	if notice.Username != "bob" || !notice.IsTyping {
		t.Errorf("unexpected typing notice %+v", notice)
	}

	hub.NotifyFileDeleted("probe")
	expectSignal(t, bob, SignalFileDeleted)
}

func TestHubDisconnectAnnouncesLeave(t *testing.T) {
	hub := newTestHub(t)
	alice, bob := setupJoinedPair(t, hub)

	select {
	case hub.unregister <- alice:
	case <-time.After(time.Second):
		t.Fatal("timed out delivering disconnect")
	}

	env := expectSignal(t, bob, SignalUsersUpdate)
	var users []Participant
	if err := decodeData(env.Data, &users); err != nil {
		t.Fatalf("decode users: %v", err)
	}
	if len(users) != 1 || users[0].Username != "bob" {
		t.Fatalf("expected roster [bob] after leave, got %+v", users)
	}

	env = expectSignal(t, bob, SignalSystemMessage)
	var notice SystemMessage
	if err := decodeData(env.Data, &notice); err != nil {
		t.Fatalf("decode system message: %v", err)
	}
	if notice.Message != "alice left the chat" {
		t.Errorf("unexpected leave announcement %q", notice.Message)
	}
}

func TestHubDisconnectBeforeJoinIsSilent(t *testing.T) {
	hub := newTestHub(t)
	alice := newTestConn("conn-alice")
	registerConn(t, hub, alice)
	sendSignal(t, hub, alice, SignalJoin, "alice")
	drainSignals(t, alice, 3)

	ghost := newTestConn("conn-ghost")
	registerConn(t, hub, ghost)
	select {
	case hub.unregister <- ghost:
	case <-time.After(time.Second):
		t.Fatal("timed out delivering disconnect")
	}

	hub.NotifyFileDeleted("probe")
	expectSignal(t, alice, SignalFileDeleted)
}

func TestHubDropsSlowConsumer(t *testing.T) {
	hub := newTestHub(t)
	slow := &Conn{id: "conn-slow", send: make(chan []byte, 1)}
	registerConn(t, hub, slow)

	hub.NotifyFileDeleted("first")
	hub.NotifyFileDeleted("second")

	// first event fits the buffer, the second overflows it and evicts the
	// connection, closing the channel behind the buffered message.
	expectSignal(t, slow, SignalFileDeleted)
	select {
	case _, ok := <-slow.send:
		if ok {
			t.Fatal("expected send channel closed after overflow")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}

func TestHubParticipantCount(t *testing.T) {
	hub := newTestHub(t)
	setupJoinedPair(t, hub)

	if count := hub.ParticipantCount(); count != 2 {
		t.Errorf("expected 2 participants, got %d", count)
	}

	users := hub.Participants()
	if len(users) != 2 || users[0].Username != "alice" || users[1].Username != "bob" {
		t.Errorf("expected join-ordered roster [alice bob], got %+v", users)
	}
}

func TestHubShutdownClosesConnections(t *testing.T) {
	hub := NewHub(NewMetrics())
	go hub.Run()

	conn := newTestConn("conn-alice")
	registerConn(t, hub, conn)

	if err := hub.Shutdown(time.Second); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	select {
	case _, ok := <-conn.send:
		if ok {
			t.Fatal("expected send channel closed after shutdown")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel close")
	}

	// queries after shutdown must not block.
	if got := hub.Participants(); got != nil {
		t.Errorf("expected nil roster after shutdown, got %+v", got)
	}
}
