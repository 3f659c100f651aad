package internal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
)

// connectCmd dials the relay. Joining happens afterwards with a join event;
// the socket itself is room-agnostic.
func (model *SessionModel) connectCmd() tea.Cmd {
	return func() tea.Msg {
		wsURL, err := normalizeWSURL(model.serverWSURL)
		if err != nil {
			return connectFailedMsg{err: err}
		}
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, http.Header{})
		if err != nil {
			return connectFailedMsg{err: err}
		}
		model.conn = conn
		return connectedMsg{}
	}
}

func (model *SessionModel) sendJoinCmd() tea.Cmd {
	return model.sendEventCmd(Event{
		Type:     EventJoin,
		RoomID:   model.roomKey,
		UserName: model.username,
		Passcode: model.passcode,
	})
}

// sendEventCmd encodes and writes one event. Writes share a mutex because
// bubbletea commands run on their own goroutines.
func (model *SessionModel) sendEventCmd(ev Event) tea.Cmd {
	return func() tea.Msg {
		if model.conn == nil {
			return errorMsg(fmt.Errorf("not connected"))
		}
		payload, err := json.Marshal(ev)
		if err != nil {
			return errorMsg(err)
		}
		model.writeMu.Lock()
		err = model.conn.WriteMessage(websocket.TextMessage, payload)
		model.writeMu.Unlock()
		if err != nil {
			return errorMsg(err)
		}
		return nil
	}
}

// readOnceCmd reads a single event from the relay; the Update loop schedules
// it again after applying each event, keeping reads chained.
func (model *SessionModel) readOnceCmd() tea.Cmd {
	return func() tea.Msg {
		if model.conn == nil {
			return errorMsg(fmt.Errorf("not connected"))
		}
		messageType, payload, err := model.conn.ReadMessage()
		if err != nil {
			return errorMsg(err)
		}
		if messageType != websocket.TextMessage {
			return nil
		}
		var ev Event
		if err := json.Unmarshal(payload, &ev); err != nil {
			// not an event envelope; ignore rather than kill the session.
			return nil
		}
		return eventMsg(ev)
	}
}

// existsCmd probes the REST sidecar for a room key before connecting.
func (model *SessionModel) existsCmd(key string) tea.Cmd {
	return func() tea.Msg {
		base, err := httpBaseFromWSURL(model.serverWSURL)
		if err != nil {
			return existsMsg{key: key, err: err}
		}
		exists, err := apiRoomExists(base, key)
		return existsMsg{key: key, exists: exists, err: err}
	}
}

// createRoomCmd reserves a fresh room key, optionally passcode-protected.
func (model *SessionModel) createRoomCmd(passcode string) tea.Cmd {
	return func() tea.Msg {
		base, err := httpBaseFromWSURL(model.serverWSURL)
		if err != nil {
			return createdMsg{err: err}
		}
		key, err := apiCreateRoom(base, passcode)
		return createdMsg{key: key, err: err}
	}
}

func (model *SessionModel) scheduleReconnect() tea.Cmd {
	const retryDelay = 2 * time.Second
	return tea.Tick(retryDelay, func(time.Time) tea.Msg {
		return reconnectMsg{}
	})
}

// typingTick drives the local expiry of "is typing" indicators.
func (model *SessionModel) typingTick() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return typingTickMsg(t)
	})
}

// normalizeWSURL validates the relay URL and strips any stale query.
func normalizeWSURL(base string) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	if parsed.Scheme != "ws" && parsed.Scheme != "wss" {
		return "", fmt.Errorf("invalid scheme for websocket: %s", parsed.Scheme)
	}
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return parsed.String(), nil
}
