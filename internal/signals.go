package internal

import (
	"encoding/json"
	"time"

	"lanhub/internal/storage"
)

// Signal names exchanged over the realtime channel. Inbound signals carry
// client intent; outbound signals fan out state changes to every connection.
const (
	SignalJoin   = "join"
	SignalChat   = "chat"
	SignalTyping = "typing"

	SignalChatHistory   = "chat-history"
	SignalChatMessage   = "chat-message"
	SignalSystemMessage = "system-message"
	SignalUsersUpdate   = "users-update"
	SignalUserTyping    = "user-typing"
	SignalFileUploaded  = "file-uploaded"
	SignalFilesUploaded = "files-uploaded"
	SignalFileDeleted   = "file-deleted"
)

// Envelope is the json frame every realtime signal travels in. Data stays
// raw on the inbound path so each handler can decode its own payload.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ChatPayload is the inbound body of a chat signal.
type ChatPayload struct {
	Body string `json:"body"`
}

// SystemMessage announces join/leave events to the whole room.
type SystemMessage struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// TypingNotice is relayed to everyone except the sender. It carries no
// server-side state; a later notice simply overwrites an earlier one.
type TypingNotice struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

// FileBatch wraps a multi-file upload announcement.
type FileBatch struct {
	Count int                 `json:"count"`
	Files []storage.FileEntry `json:"files"`
}

// FileDeletion names a file removed from the registry.
type FileDeletion struct {
	Name string `json:"name"`
}

// encodeSignal wraps a payload in an envelope and marshals it once, so a
// broadcast serializes a single time no matter how many connections receive it.
func encodeSignal(signalType string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: signalType, Data: raw})
}

func decodeData(raw json.RawMessage, out interface{}) error {
	if len(raw) == 0 {
		return json.Unmarshal([]byte("null"), out)
	}
	return json.Unmarshal(raw, out)
}
