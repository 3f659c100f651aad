package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"groupcode/internal/app"
)

const (
	modeServer = "server"
	modeClient = "client"
	modeLocal  = "local"
)

func main() {
	mode, args := parseMode(os.Args[1:])

	serverCfg, err := app.LoadServerConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "groupcode: %v\n", err)
		os.Exit(1)
	}
	clientCfg, err := app.LoadClientConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "groupcode: %v\n", err)
		os.Exit(1)
	}

	flagSet := flag.NewFlagSet("groupcode", flag.ExitOnError)
	addr := flagSet.String("addr", defaultAddrForMode(mode, serverCfg.Addr), "server listen address")
	wsPath := flagSet.String("ws-path", serverCfg.WSPath, "websocket path")
	db := flagSet.String("db", serverCfg.DBPath, "sqlite database path for room reservations")
	roomTTL := flagSet.Duration("room-ttl", serverCfg.RoomTTL, "how long reserved room keys stay valid")
	logLevel := flagSet.String("log-level", serverCfg.LogLevel, "zerolog level (debug, info, warn, error)")
	serverURL := flagSet.String("server-url", clientCfg.ServerURL, "relay websocket URL (client mode)")
	username := flagSet.String("user", clientCfg.Username, "display name for the session")
	passcode := flagSet.String("passcode", "", "room passcode, if the room has one")
	flagSet.Parse(args)

	roomKey := ""
	if remaining := flagSet.Args(); len(remaining) > 0 {
		roomKey = remaining[0]
	}

	serverCfg.Addr = *addr
	serverCfg.WSPath = app.NormalizeWSPath(*wsPath)
	serverCfg.DBPath = *db
	serverCfg.RoomTTL = *roomTTL
	serverCfg.LogLevel = *logLevel

	clientCfg.ServerURL = *serverURL
	clientCfg.Username = *username
	clientCfg.RoomKey = roomKey
	clientCfg.Passcode = *passcode

	log := app.NewLogger(serverCfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch mode {
	case modeServer:
		err = runServerMode(ctx, serverCfg, log)
	case modeLocal:
		err = runLocalMode(ctx, serverCfg, clientCfg, log)
	default:
		err = runClientMode(clientCfg)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "groupcode: %v\n", err)
		os.Exit(1)
	}
}

func runServerMode(ctx context.Context, cfg app.ServerConfig, log zerolog.Logger) error {
	handle, err := app.RunServer(ctx, cfg, log)
	if err != nil {
		return err
	}
	log.Info().Str("addr", handle.Addr()).Str("ws_path", cfg.WSPath).Str("db", cfg.DBPath).Msg("groupcode relay listening")
	return handle.Wait()
}

func runClientMode(cfg app.ClientConfig) error {
	if cfg.ServerURL == "" {
		return errors.New("client mode requires --server-url or GROUPCODE_SERVER")
	}
	return app.RunClient(cfg)
}

// runLocalMode starts an in-process relay and points the TUI at it, handy for
// trying the editor without a deployed server.
func runLocalMode(ctx context.Context, serverCfg app.ServerConfig, clientCfg app.ClientConfig, log zerolog.Logger) error {
	handle, err := app.RunServer(ctx, serverCfg, log)
	if err != nil {
		return err
	}
	defer stopServer(handle)

	if err := waitForServer(handle.Addr(), 5*time.Second); err != nil {
		return err
	}

	clientCfg.ServerURL = buildWebsocketURL(handle.Addr(), serverCfg.WSPath)
	if err := app.RunClient(clientCfg); err != nil {
		return err
	}
	stopServer(handle)
	return handle.Wait()
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

func buildWebsocketURL(addr, path string) string {
	path = app.NormalizeWSPath(path)
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Sprintf("ws://%s%s", addr, path)
	}
	return fmt.Sprintf("ws://%s%s", net.JoinHostPort(host, port), path)
}

func parseMode(args []string) (string, []string) {
	if len(args) == 0 {
		return modeClient, args
	}
	switch strings.ToLower(args[0]) {
	case modeServer, modeClient, modeLocal:
		return strings.ToLower(args[0]), args[1:]
	}
	return modeClient, args
}

func defaultAddrForMode(mode, configured string) string {
	if mode == modeLocal {
		return "127.0.0.1:0"
	}
	return configured
}

func stopServer(handle *app.ServerHandle) {
	if handle == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = handle.Stop(shutdownCtx)
}
