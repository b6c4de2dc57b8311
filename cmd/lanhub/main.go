package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	intrnl "lanhub/internal"
	"lanhub/internal/app"
)

const (
	modeServer  = "server"
	modeClient  = "client"
	modeLocal   = "local"
	modeVersion = "version"
)

func main() {
	_ = godotenv.Load()

	mode, args := parseMode(os.Args[1:])
	flagSet := flag.NewFlagSet("lanhub", flag.ExitOnError)
	addr := flagSet.String("addr", envOrDefault("LANHUB_ADDR", defaultAddrForMode(mode)), "server listen address")
	uploadDir := flagSet.String("upload-dir", envOrDefault("LANHUB_UPLOAD_DIR", ""), "directory for shared files (defaults to a per-user path)")
	publicDir := flagSet.String("public-dir", envOrDefault("LANHUB_PUBLIC_DIR", ""), "directory with the static web client (optional)")
	serverURL := flagSet.String("server-url", envOrDefault("LANHUB_SERVER", "ws://localhost:8080/ws"), "hub websocket URL (client mode)")
	username := flagSet.String("user", envOrDefault("LANHUB_USER", ""), "display name for the join prompt")
	quiet := flagSet.Bool("quiet", false, "suppress informational logs")
	flagSet.Parse(args)

	serverCfg := app.ServerConfig{
		Addr:          *addr,
		UploadDir:     *uploadDir,
		PublicDir:     *publicDir,
		MaxFileSize:   app.EnvInt64("LANHUB_MAX_FILE_SIZE", 0),
		MaxBatchFiles: app.EnvInt("LANHUB_MAX_BATCH_FILES", 0),
	}
	clientCfg := app.ClientConfig{
		ServerURL: *serverURL,
		Username:  *username,
	}

	infof := func(format string, args ...interface{}) {
		if *quiet {
			return
		}
		log.Printf(format, args...)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch mode {
	case modeServer:
		err = runServerMode(ctx, serverCfg, infof)
	case modeLocal:
		err = runLocalMode(ctx, serverCfg, clientCfg, infof)
	case modeVersion:
		err = runVersionMode()
	default:
		err = runClientMode(clientCfg)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "lanhub: %v\n", err)
		os.Exit(1)
	}
}

func runServerMode(ctx context.Context, cfg app.ServerConfig, infof func(string, ...interface{})) error {
	handle, err := app.RunServer(ctx, cfg)
	if err != nil {
		return err
	}
	infof("LanHub server listening on %s", handle.Addr())
	infof("share this hub at %s", intrnl.ShareURL(handle.Addr()))
	return handle.Wait()
}

func runClientMode(cfg app.ClientConfig) error {
	if cfg.ServerURL == "" {
		return errors.New("client mode requires --server-url or LANHUB_SERVER")
	}
	return app.RunClient(cfg)
}

func runLocalMode(ctx context.Context, serverCfg app.ServerConfig, clientCfg app.ClientConfig, infof func(string, ...interface{})) error {
	handle, err := app.RunServer(ctx, serverCfg)
	if err != nil {
		return err
	}
	defer stopServer(handle)

	infof("Starting local LanHub server on %s", handle.Addr())
	if err := waitForServer(handle.Addr(), 5*time.Second); err != nil {
		return err
	}

	clientCfg.ServerURL = buildWebsocketURL(handle.Addr())
	infof("Launching client against %s", clientCfg.ServerURL)

	if err := app.RunClient(clientCfg); err != nil {
		return err
	}
	stopServer(handle)
	return handle.Wait()
}

func runVersionMode() error {
	fmt.Printf("lanhub %s\n", intrnl.Version)
	latest, err := intrnl.GetLatestVersion()
	if err != nil {
		// offline is fine, just report the local version.
		return nil
	}
	if intrnl.CompareVersions(latest, intrnl.Version) > 0 {
		fmt.Printf("a newer release is available: %s\n", latest)
	}
	return nil
}

func waitForServer(addr string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		conn, err := net.DialTimeout("tcp", addr, 500*time.Millisecond)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("server did not become ready: %w", err)
		}
		time.Sleep(100 * time.Millisecond)
	}
}

func buildWebsocketURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Sprintf("ws://%s/ws", addr)
	}
	return fmt.Sprintf("ws://%s/ws", net.JoinHostPort(host, port))
}

func parseMode(args []string) (string, []string) {
	if len(args) == 0 {
		return modeLocal, args
	}
	switch strings.ToLower(args[0]) {
	case modeServer, modeClient, modeLocal, modeVersion:
		return strings.ToLower(args[0]), args[1:]
	}
	return modeClient, args
}

func defaultAddrForMode(mode string) string {
	if mode == modeLocal {
		return "127.0.0.1:0"
	}
	return ":8080"
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func stopServer(handle *app.ServerHandle) {
	if handle == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = handle.Stop(shutdownCtx)
}
