package internal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateJoinInput(t *testing.T) {
	tests := []struct {
		name    string
		roomKey string
		user    string
		wantErr bool
	}{
		{name: "valid", roomKey: "ABC123", user: "Alice"},
		{name: "empty room", roomKey: "", user: "Alice", wantErr: true},
		{name: "whitespace room", roomKey: "   ", user: "Alice", wantErr: true},
		{name: "empty name", roomKey: "ABC123", user: "", wantErr: true},
		{name: "whitespace name", roomKey: "ABC123", user: "\t ", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateJoinInput(tt.roomKey, tt.user)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNextLanguageCycles(t *testing.T) {
	seen := map[string]bool{}
	lang := editorLanguages[0]
	for range editorLanguages {
		seen[lang] = true
		lang = nextLanguage(lang)
	}
	assert.Equal(t, editorLanguages[0], lang, "cycle wraps around")
	assert.Len(t, seen, len(editorLanguages))

	assert.Equal(t, editorLanguages[0], nextLanguage("not-a-language"))
}

func TestRenderTypingLine(t *testing.T) {
	assert.Equal(t, "", renderTypingLine(nil))
	assert.Equal(t, "Alice is typing…", renderTypingLine([]string{"Alice"}))
	assert.Equal(t, "Alice, Bob are typing…", renderTypingLine([]string{"Alice", "Bob"}))
}

func TestDepartedParticipantTypingClears(t *testing.T) {
	model := NewSessionModel("ws://localhost:8080/ws", "ABC123", "Alice", "")
	now := time.Now()

	model.applyEvent(Event{Type: EventUserJoined, Users: []string{"Alice", "Bob", "Cara"}})
	model.typing.Mark("Bob", now)
	model.typing.Mark("Cara", now)
	assert.Equal(t, []string{"Bob", "Cara"}, model.typing.Active(now))

	// Bob leaves: his indicator drops immediately, Cara's stays
	model.applyEvent(Event{Type: EventUserJoined, Users: []string{"Alice", "Cara"}})
	assert.Equal(t, []string{"Cara"}, model.typing.Active(now))
	assert.Equal(t, []string{"Alice", "Cara"}, model.participants)
}

func TestNormalizeWSURL(t *testing.T) {
	url, err := normalizeWSURL("ws://localhost:8080/ws?room=stale")
	assert.NoError(t, err)
	assert.Equal(t, "ws://localhost:8080/ws", url)

	_, err = normalizeWSURL("http://localhost:8080/ws")
	assert.Error(t, err)
}

func TestHTTPBaseFromWSURL(t *testing.T) {
	base, err := httpBaseFromWSURL("ws://localhost:8080/ws")
	assert.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", base)

	base, err = httpBaseFromWSURL("wss://relay.example.com/ws")
	assert.NoError(t, err)
	assert.Equal(t, "https://relay.example.com", base)

	_, err = httpBaseFromWSURL("ftp://nope")
	assert.Error(t, err)
}
