package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	intrnl "lanhub/internal"
	"lanhub/internal/app"
)

func main() {
	_ = godotenv.Load()

	addr := flag.String("addr", envOrDefault("LANHUB_ADDR", ":8080"), "server listen address")
	uploadDir := flag.String("upload-dir", envOrDefault("LANHUB_UPLOAD_DIR", ""), "directory for shared files (defaults to a per-user path)")
	publicDir := flag.String("public-dir", envOrDefault("LANHUB_PUBLIC_DIR", ""), "directory with the static web client (optional)")
	flag.Parse()

	cfg := app.ServerConfig{
		Addr:          *addr,
		UploadDir:     *uploadDir,
		PublicDir:     *publicDir,
		MaxFileSize:   app.EnvInt64("LANHUB_MAX_FILE_SIZE", 0),
		MaxBatchFiles: app.EnvInt("LANHUB_MAX_BATCH_FILES", 0),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handle, err := app.RunServer(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	log.Printf("LanHub server listening on %s", handle.Addr())
	log.Printf("share this hub at %s", intrnl.ShareURL(handle.Addr()))

	if err := handle.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("server error: %v", err)
	}
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
