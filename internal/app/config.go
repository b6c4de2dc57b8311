package app

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
)

// ServerConfig defines how the hub backend should run.
type ServerConfig struct {
	Addr          string
	UploadDir     string
	PublicDir     string
	MaxFileSize   int64
	MaxBatchFiles int
}

// ClientConfig defines the parameters the TUI client needs.
type ClientConfig struct {
	ServerURL string
	Username  string
}

// DefaultUploadDir returns a per-user data path for shared files.
func DefaultUploadDir() string {
	if env := os.Getenv("LANHUB_UPLOAD_DIR"); env != "" {
		return env
	}
	if env := os.Getenv("LANHUB_DATA_DIR"); env != "" {
		return filepath.Join(env, "uploads")
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "lanhub", "uploads")
	}
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "Lanhub", "uploads")
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, "Library", "Application Support", "Lanhub", "uploads")
		}
		return filepath.Join(home, ".local", "share", "lanhub", "uploads")
	}
	return filepath.Join(".", ".lanhub", "uploads")
}

// EnvInt64 reads an int64 from the environment, falling back when unset or
// malformed.
func EnvInt64(key string, fallback int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

// EnvInt reads an int from the environment, falling back when unset or
// malformed.
func EnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}
