package internal

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"lanhub/internal/storage"
)

const (
	// DefaultMaxFileSize caps a single upload at 500 MiB.
	DefaultMaxFileSize = 500 << 20
	// DefaultMaxBatchFiles caps one multi-upload request at 50 files.
	DefaultMaxBatchFiles = 50

	uploadRateLimit  = 60
	uploadRateWindow = time.Minute
)

// Server ties the realtime hub and the file registry to the HTTP surface.
type Server struct {
	hub           *Hub
	registry      *storage.Registry
	metrics       *Metrics
	uploadLimiter *RateLimiter
	maxFileSize   int64
	maxBatchFiles int

	mu       sync.RWMutex
	shareURL string
}

func NewServer(hub *Hub, registry *storage.Registry, metrics *Metrics, maxFileSize int64, maxBatchFiles int) *Server {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	if maxBatchFiles <= 0 {
		maxBatchFiles = DefaultMaxBatchFiles
	}
	return &Server{
		hub:           hub,
		registry:      registry,
		metrics:       metrics,
		uploadLimiter: NewRateLimiter(uploadRateLimit, uploadRateWindow),
		maxFileSize:   maxFileSize,
		maxBatchFiles: maxBatchFiles,
	}
}

// SetShareURL records the address peers should use to reach this hub. The
// info endpoint embeds it in a QR code.
func (s *Server) SetShareURL(url string) {
	s.mu.Lock()
	s.shareURL = url
	s.mu.Unlock()
}

func (s *Server) ShareURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.shareURL
}

// Handler builds the router. publicDir may be empty to disable the static
// web client.
func (s *Server) Handler(publicDir string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/ws", s.ServeWS)
	r.Get("/api/info", s.HandleInfo)
	r.Get("/api/files", s.HandleListFiles)
	r.Post("/api/upload", s.HandleUpload)
	r.Post("/api/upload-multiple", s.HandleUploadMultiple)
	r.Get("/api/download/{name}", s.HandleDownload)
	r.Get("/api/download-all", s.HandleDownloadAll)
	r.Delete("/api/files/{name}", s.HandleDeleteFile)
	r.Get("/api/chat/history", s.HandleChatHistory)
	r.Get("/metrics", s.metrics.ServeHTTP)

	if publicDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(publicDir)))
	} else {
		r.Get("/", s.handleLanding)
	}
	return r
}

// handleLanding is the fallback root page when no static client directory is
// configured.
func (s *Server) handleLanding(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, "<!doctype html><title>LanHub</title><h1>LanHub %s</h1>"+
		"<p>Connect a client to <code>%s</code> or see <a href=\"/api/info\">/api/info</a>.</p>",
		Version, s.ShareURL())
}
