package app

import (
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
)

// ServerConfig defines how the relay backend should run. Values come from
// GROUPCODE_* environment variables (with .env support); the cmd layer may
// override them with flags.
type ServerConfig struct {
	Addr     string        `envconfig:"ADDR" default:":8080"`
	WSPath   string        `envconfig:"WS_PATH" default:"/ws"`
	DBPath   string        `envconfig:"DB_PATH"`
	RoomTTL  time.Duration `envconfig:"ROOM_TTL" default:"24h"`
	LogLevel string        `envconfig:"LOG_LEVEL" default:"info"`
}

// ClientConfig defines the parameters the TUI client needs.
type ClientConfig struct {
	ServerURL string `envconfig:"SERVER" default:"ws://localhost:8080/ws"`
	Username  string `envconfig:"USER"`
	RoomKey   string
	Passcode  string
}

// LoadServerConfig reads the server configuration from the environment,
// loading a .env file first when one is present.
func LoadServerConfig() (ServerConfig, error) {
	_ = godotenv.Load()
	var cfg ServerConfig
	if err := envconfig.Process("groupcode", &cfg); err != nil {
		return ServerConfig{}, err
	}
	cfg.WSPath = NormalizeWSPath(cfg.WSPath)
	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBPath()
	}
	return cfg, nil
}

// LoadClientConfig reads the client configuration from the environment.
func LoadClientConfig() (ClientConfig, error) {
	_ = godotenv.Load()
	var cfg ClientConfig
	if err := envconfig.Process("groupcode", &cfg); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}

// NewLogger builds the server's zerolog logger at the configured level.
func NewLogger(level string) zerolog.Logger {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		parsed = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(parsed).With().Timestamp().Logger()
}

// DefaultDBPath returns a per-user data path for the bundled SQLite file.
func DefaultDBPath() string {
	if env := os.Getenv("GROUPCODE_DB_PATH"); env != "" {
		return env
	}
	if env := os.Getenv("GROUPCODE_DATA_DIR"); env != "" {
		return filepath.Join(env, "groupcode.db")
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "groupcode", "groupcode.db")
	}
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "GroupCode", "groupcode.db")
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, "Library", "Application Support", "GroupCode", "groupcode.db")
		}
		return filepath.Join(home, ".local", "share", "groupcode", "groupcode.db")
	}
	return filepath.Join(".", ".groupcode", "groupcode.db")
}

// NormalizeWSPath guarantees the websocket path starts with '/' and falls
// back to /ws when empty.
func NormalizeWSPath(path string) string {
	if path == "" {
		return "/ws"
	}
	if path[0] != '/' {
		return "/" + path
	}
	return path
}
