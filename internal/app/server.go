package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	intrnl "lanhub/internal"
	"lanhub/internal/storage"
)

// ServerHandle represents a running hub instance.
type ServerHandle struct {
	addr   string
	server *http.Server
	hub    *intrnl.Hub
	done   chan struct{}
	err    error
}

// Addr returns the actual listen address (after the OS allocated a port).
func (h *ServerHandle) Addr() string {
	return h.addr
}

// Stop triggers a graceful shutdown with the provided context deadline.
func (h *ServerHandle) Stop(ctx context.Context) error {
	if h == nil || h.server == nil {
		return nil
	}
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}
	return h.server.Shutdown(ctx)
}

// Wait blocks until the server exits.
func (h *ServerHandle) Wait() error {
	if h == nil {
		return nil
	}
	<-h.done
	return h.err
}

// RunServer wires the hub, the file registry, and the HTTP surface, then
// starts serving in the background. Call Stop/Wait to manage its lifecycle.
func RunServer(ctx context.Context, cfg ServerConfig) (*ServerHandle, error) {
	if cfg.UploadDir == "" {
		cfg.UploadDir = DefaultUploadDir()
	}

	registry, err := storage.NewRegistry(cfg.UploadDir)
	if err != nil {
		return nil, fmt.Errorf("open registry: %w", err)
	}

	metrics := intrnl.NewMetrics()
	hub := intrnl.NewHub(metrics)
	go hub.Run()

	server := intrnl.NewServer(hub, registry, metrics, cfg.MaxFileSize, cfg.MaxBatchFiles)

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: server.Handler(cfg.PublicDir),
	}

	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		_ = hub.Shutdown(time.Second)
		return nil, fmt.Errorf("listen: %w", err)
	}
	server.SetShareURL(intrnl.ShareURL(listener.Addr().String()))

	handle := &ServerHandle{
		addr:   listener.Addr().String(),
		server: httpServer,
		hub:    hub,
		done:   make(chan struct{}),
	}

	go func() {
		if ctx == nil {
			return
		}
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("server shutdown error: %v", err)
		}
	}()

	go handle.serve(listener)

	return handle, nil
}

func (h *ServerHandle) serve(listener net.Listener) {
	defer close(h.done)
	err := h.server.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	if shutdownErr := h.hub.Shutdown(5 * time.Second); shutdownErr != nil {
		log.Printf("hub shutdown error: %v", shutdownErr)
	}
	h.err = err
}
