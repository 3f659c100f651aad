package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"groupcode/internal/app"
)

func main() {
	cfg, err := app.LoadServerConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "groupcode-server: %v\n", err)
		os.Exit(1)
	}

	addr := flag.String("addr", cfg.Addr, "server listen address")
	wsPath := flag.String("ws-path", cfg.WSPath, "websocket path")
	db := flag.String("db", cfg.DBPath, "sqlite database path for room reservations")
	roomTTL := flag.Duration("room-ttl", cfg.RoomTTL, "how long reserved room keys stay valid")
	logLevel := flag.String("log-level", cfg.LogLevel, "zerolog level (debug, info, warn, error)")
	flag.Parse()

	cfg.Addr = *addr
	cfg.WSPath = app.NormalizeWSPath(*wsPath)
	cfg.DBPath = *db
	cfg.RoomTTL = *roomTTL
	cfg.LogLevel = *logLevel

	log := app.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handle, err := app.RunServer(ctx, cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "groupcode-server: %v\n", err)
		os.Exit(1)
	}
	log.Info().Str("addr", handle.Addr()).Str("ws_path", cfg.WSPath).Str("db", cfg.DBPath).Msg("groupcode relay listening")

	if err := handle.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "groupcode-server: %v\n", err)
		os.Exit(1)
	}
}
