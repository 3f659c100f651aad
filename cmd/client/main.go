package main

import (
	"flag"
	"fmt"
	"os"

	"groupcode/internal/app"
)

func main() {
	cfg, err := app.LoadClientConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	serverURL := flag.String("server", cfg.ServerURL, "relay websocket URL (e.g., ws://localhost:8080/ws)")
	username := flag.String("user", cfg.Username, "display name for the session")
	passcode := flag.String("passcode", "", "room passcode, if the room has one")
	flag.Parse()

	args := flag.Args()
	var roomKey string
	if len(args) >= 1 {
		roomKey = args[0]
	}

	cfg.ServerURL = *serverURL
	cfg.Username = *username
	cfg.RoomKey = roomKey
	cfg.Passcode = *passcode

	if err := app.RunClient(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
