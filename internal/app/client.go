package app

import (
	"errors"

	intrnl "groupcode/internal"
)

// RunClient launches the Bubble Tea session UI with the provided configuration.
func RunClient(cfg ClientConfig) error {
	if cfg.ServerURL == "" {
		return errors.New("server URL is required")
	}
	return intrnl.RunSession(cfg.ServerURL, cfg.RoomKey, cfg.Username, cfg.Passcode)
}
