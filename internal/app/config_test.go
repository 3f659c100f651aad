package app

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeWSPath(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty falls back", "", "/ws"},
		{"missing slash added", "relay", "/relay"},
		{"already rooted", "/ws", "/ws"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeWSPath(tt.in))
		})
	}
}

func TestDefaultDBPathHonorsOverrides(t *testing.T) {
	t.Setenv("GROUPCODE_DB_PATH", "/tmp/explicit.db")
	assert.Equal(t, "/tmp/explicit.db", DefaultDBPath())

	t.Setenv("GROUPCODE_DB_PATH", "")
	t.Setenv("GROUPCODE_DATA_DIR", "/tmp/data")
	assert.Equal(t, filepath.Join("/tmp/data", "groupcode.db"), DefaultDBPath())
}

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	log := NewLogger("nonsense")
	assert.Equal(t, zerolog.InfoLevel, log.GetLevel())
}
