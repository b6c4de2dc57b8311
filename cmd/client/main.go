package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"lanhub/internal/app"
)

func main() {
	_ = godotenv.Load()

	defaultServer := envOrDefault("LANHUB_SERVER", "ws://localhost:8080/ws")
	defaultUser := envOrDefault("LANHUB_USER", "")

	serverURL := flag.String("server", defaultServer, "hub websocket URL (e.g., ws://192.168.1.20:8080/ws)")
	username := flag.String("user", defaultUser, "display name for the join prompt")
	flag.Parse()

	cfg := app.ClientConfig{
		ServerURL: *serverURL,
		Username:  *username,
	}

	if err := app.RunClient(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
