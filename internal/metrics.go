package internal

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
)

// Metrics keeps process-lifetime counters for the /metrics endpoint.
type Metrics struct {
	activeConns atomic.Int64
	joins       atomic.Uint64
	messages    atomic.Uint64
	uploads     atomic.Uint64
	deletes     atomic.Uint64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) IncConn() {
	m.activeConns.Add(1)
}

func (m *Metrics) DecConn() {
	m.activeConns.Add(-1)
}

func (m *Metrics) IncJoin() {
	m.joins.Add(1)
}

func (m *Metrics) IncMessage() {
	m.messages.Add(1)
}

func (m *Metrics) IncUpload() {
	m.uploads.Add(1)
}

func (m *Metrics) IncDelete() {
	m.deletes.Add(1)
}

func (m *Metrics) ActiveConns() int64 {
	return m.activeConns.Load()
}

func (m *Metrics) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	payload := map[string]any{
		"active_connections":  m.activeConns.Load(),
		"joins_total":         m.joins.Load(),
		"chat_messages_total": m.messages.Load(),
		"file_uploads_total":  m.uploads.Load(),
		"file_deletes_total":  m.deletes.Load(),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
