package internal

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// MaxChatHistory caps the in-memory chat log. Appending past the cap evicts
// the oldest message.
const MaxChatHistory = 100

// ChatMessage is one stored chat entry. Author fields are a snapshot taken at
// send time; renaming later does not rewrite history.
type ChatMessage struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"timestamp"`
}

// newChatMessage stamps a message with a creation time and a best-effort
// unique id (millisecond timestamp plus a random tiebreaker).
func newChatMessage(userID, username, body string) ChatMessage {
	now := time.Now()
	return ChatMessage{
		ID:        fmt.Sprintf("%d-%s", now.UnixMilli(), randomHex(3)),
		UserID:    userID,
		Username:  username,
		Body:      body,
		CreatedAt: now,
	}
}

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// ChatLog is a bounded, ordered, in-memory message history. Like the presence
// table it is owned exclusively by the hub loop.
type ChatLog struct {
	capacity int
	messages []ChatMessage
}

func NewChatLog(capacity int) *ChatLog {
	if capacity <= 0 {
		capacity = MaxChatHistory
	}
	return &ChatLog{capacity: capacity, messages: make([]ChatMessage, 0, capacity)}
}

// Append inserts at the tail and evicts from the head until the log fits the
// cap again.
func (l *ChatLog) Append(msg ChatMessage) {
	l.messages = append(l.messages, msg)
	if excess := len(l.messages) - l.capacity; excess > 0 {
		l.messages = append(l.messages[:0], l.messages[excess:]...)
	}
}

// Replay returns the full history oldest-first. The slice is a copy.
func (l *ChatLog) Replay() []ChatMessage {
	out := make([]ChatMessage, len(l.messages))
	copy(out, l.messages)
	return out
}

func (l *ChatLog) Len() int {
	return len(l.messages)
}
