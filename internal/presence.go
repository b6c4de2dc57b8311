package internal

import (
	"strings"
	"time"
)

// Participant is a named live connection to the realtime channel.
type Participant struct {
	ID       string    `json:"id"`
	Username string    `json:"username"`
	JoinedAt time.Time `json:"joinedAt"`
}

// PresenceTable is the authoritative connection -> participant mapping. It is
// not safe for concurrent use on its own; the hub loop owns it exclusively.
type PresenceTable struct {
	order []string
	byID  map[string]Participant
}

func NewPresenceTable() *PresenceTable {
	return &PresenceTable{byID: make(map[string]Participant)}
}

// Register inserts or overwrites the participant for a connection. A blank
// name falls back to one derived from the connection id. Registering the same
// connection twice keeps its position in the snapshot order.
func (p *PresenceTable) Register(connID, requestedName string) Participant {
	name := strings.TrimSpace(requestedName)
	if name == "" {
		name = fallbackName(connID)
	}
	participant := Participant{ID: connID, Username: name, JoinedAt: time.Now()}
	if _, exists := p.byID[connID]; !exists {
		p.order = append(p.order, connID)
	}
	p.byID[connID] = participant
	return participant
}

// Remove deletes and returns the participant for a connection. The second
// return value is false when the connection never joined.
func (p *PresenceTable) Remove(connID string) (Participant, bool) {
	participant, ok := p.byID[connID]
	if !ok {
		return Participant{}, false
	}
	delete(p.byID, connID)
	for i, id := range p.order {
		if id == connID {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	return participant, true
}

// Get looks up a participant without mutating the table.
func (p *PresenceTable) Get(connID string) (Participant, bool) {
	participant, ok := p.byID[connID]
	return participant, ok
}

// Snapshot returns the participants in insertion order. The slice is a copy,
// so callers can hand it to a broadcast without racing later mutations.
func (p *PresenceTable) Snapshot() []Participant {
	out := make([]Participant, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.byID[id])
	}
	return out
}

func (p *PresenceTable) Len() int {
	return len(p.byID)
}

func fallbackName(connID string) string {
	short := connID
	if len(short) > 4 {
		short = short[:4]
	}
	return "User_" + short
}
