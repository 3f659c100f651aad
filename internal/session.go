package internal

import (
	"errors"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"
)

// SessionModel holds the bubbletea state for one collaborative editing
// session: the menu and prompt flow, the shared code buffer, and the
// websocket connection to the relay.
type SessionModel struct {
	mode          sessionMode
	pendingAction actionType

	textInput textinput.Model
	editor    textarea.Model

	serverWSURL string
	roomKey     string
	username    string
	passcode    string
	language    string

	participants []string
	typing       *TypingTracker

	conn      *websocket.Conn
	writeMu   sync.Mutex
	connected bool
	joined    bool
	connErr   error

	notices        []string
	lastTypingSent time.Time
}

// asynchronous events delivered into the bubbletea loop.
type (
	connectedMsg     struct{}
	eventMsg         Event
	errorMsg         error
	connectFailedMsg struct{ err error }
	reconnectMsg     struct{}
	typingTickMsg    time.Time
	existsMsg        struct {
		key    string
		exists bool
		err    error
	}
	createdMsg struct {
		key string
		err error
	}
)

type sessionMode int

const (
	modeMenu sessionMode = iota
	modeNamePrompt
	modeRoomPrompt
	modePasscodePrompt
	modeEditor
)

type actionType int

const (
	actionNone actionType = iota
	actionJoin
	actionCreate
)

// languages the editor cycles through with ctrl+l. The first entry is the
// session default until someone changes it.
var editorLanguages = []string{"javascript", "python", "cpp", "java", "go"}

const typingThrottle = 750 * time.Millisecond

// NewSessionModel builds the session UI. With a room key the model connects
// immediately; without one it starts at the menu.
func NewSessionModel(serverWSURL, roomKey, username, passcode string) *SessionModel {
	input := textinput.New()
	input.CharLimit = 0

	editor := textarea.New()
	editor.Placeholder = "Start typing code…"
	editor.CharLimit = 0
	editor.SetHeight(16)
	editor.SetWidth(80)

	if username == "" {
		username = defaultUsername()
	}

	model := &SessionModel{
		textInput:   input,
		editor:      editor,
		serverWSURL: serverWSURL,
		roomKey:     roomKey,
		username:    username,
		passcode:    passcode,
		language:    editorLanguages[0],
		typing:      NewTypingTracker(typingExpiry),
	}
	if roomKey == "" {
		model.mode = modeMenu
	} else {
		model.mode = modeEditor
		model.editor.Focus()
	}
	return model
}

func defaultUsername() string {
	if user := os.Getenv("GROUPCODE_USER"); user != "" {
		return user
	}
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "anon"
}

// validateJoinInput is the fail-fast check run before any network call.
func validateJoinInput(roomKey, name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("display name cannot be empty")
	}
	if strings.TrimSpace(roomKey) == "" {
		return errors.New("room key cannot be empty")
	}
	return nil
}

func (model *SessionModel) Init() tea.Cmd {
	if model.mode == modeEditor {
		if err := validateJoinInput(model.roomKey, model.username); err != nil {
			model.notices = append(model.notices, err.Error())
			model.mode = modeMenu
			return nil
		}
		return model.connectCmd()
	}
	return nil
}

func (model *SessionModel) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := message.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			model.teardown()
			return model, tea.Quit
		}
		return model.updateKey(msg)

	case connectedMsg:
		model.connected = true
		model.connErr = nil
		// joining counts as complete when the first participant list arrives.
		return model, tea.Batch(model.sendJoinCmd(), model.readOnceCmd(), model.typingTick())

	case eventMsg:
		return model.applyEvent(Event(msg))

	case errorMsg:
		model.connected = false
		model.joined = false
		model.connErr = msg
		if model.mode == modeEditor {
			model.notices = append(model.notices, "Connection lost. Retrying…")
			return model, model.scheduleReconnect()
		}
		return model, nil

	case connectFailedMsg:
		model.connErr = msg.err
		if model.mode == modeEditor {
			return model, model.scheduleReconnect()
		}
		return model, nil

	case reconnectMsg:
		if model.mode == modeEditor && !model.connected {
			return model, model.connectCmd()
		}
		return model, nil

	case typingTickMsg:
		if model.mode == modeEditor {
			// re-render so expired typing indicators disappear even when no
			// further events arrive.
			return model, model.typingTick()
		}
		return model, nil

	case existsMsg:
		if msg.err != nil {
			model.notices = append(model.notices, "Error checking room: "+msg.err.Error())
			return model, nil
		}
		if !msg.exists {
			model.notices = append(model.notices, "Room not found. Try again or create a room.")
			return model, nil
		}
		model.roomKey = msg.key
		model.promptPasscode()
		return model, model.textInput.Focus()

	case createdMsg:
		if msg.err != nil {
			model.notices = append(model.notices, "Could not create room: "+msg.err.Error())
			model.mode = modeMenu
			return model, nil
		}
		model.roomKey = msg.key
		model.notices = append(model.notices, "Room created. Share the key: "+msg.key)
		model.enterEditor()
		return model, model.connectCmd()
	}
	return model, nil
}

func (model *SessionModel) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch model.mode {
	case modeMenu:
		switch msg.String() {
		case "1", "j", "J":
			model.pendingAction = actionJoin
			model.promptName()
			return model, model.textInput.Focus()
		case "2", "c", "C":
			model.pendingAction = actionCreate
			model.promptName()
			return model, model.textInput.Focus()
		case "3", "q", "Q":
			return model, tea.Quit
		}
		return model, nil

	case modeNamePrompt:
		switch msg.Type {
		case tea.KeyEnter:
			trimmed := strings.TrimSpace(model.textInput.Value())
			if trimmed == "" {
				model.notices = append(model.notices, "Display name cannot be empty.")
				return model, nil
			}
			model.username = trimmed
			switch model.pendingAction {
			case actionJoin:
				model.promptRoom()
			case actionCreate:
				model.promptPasscode()
			default:
				model.backToMenu()
			}
			return model, model.textInput.Focus()
		case tea.KeyEsc:
			model.backToMenu()
			return model, nil
		}

	case modeRoomPrompt:
		switch msg.Type {
		case tea.KeyEnter:
			trimmed := strings.TrimSpace(model.textInput.Value())
			if err := validateJoinInput(trimmed, model.username); err != nil {
				model.notices = append(model.notices, err.Error())
				return model, nil
			}
			return model, model.existsCmd(trimmed)
		case tea.KeyEsc:
			model.backToMenu()
			return model, nil
		}

	case modePasscodePrompt:
		switch msg.Type {
		case tea.KeyEnter:
			model.passcode = strings.TrimSpace(model.textInput.Value())
			if model.pendingAction == actionCreate {
				return model, model.createRoomCmd(model.passcode)
			}
			model.enterEditor()
			return model, model.connectCmd()
		case tea.KeyEsc:
			model.backToMenu()
			return model, nil
		}

	case modeEditor:
		return model.updateEditorKey(msg)
	}

	var cmd tea.Cmd
	model.textInput, cmd = model.textInput.Update(msg)
	return model, cmd
}

func (model *SessionModel) updateEditorKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlX:
		model.leaveSession()
		return model, nil
	case tea.KeyCtrlL:
		model.language = nextLanguage(model.language)
		if model.joined {
			return model, model.sendEventCmd(Event{
				Type:     EventLanguageChange,
				RoomID:   model.roomKey,
				Language: model.language,
			})
		}
		return model, nil
	}

	before := model.editor.Value()
	var cmd tea.Cmd
	model.editor, cmd = model.editor.Update(msg)
	after := model.editor.Value()
	if after == before || !model.joined {
		return model, cmd
	}

	// optimistic: the local buffer is already updated, the relay round-trip
	// only serves the other participants.
	cmds := []tea.Cmd{cmd, model.sendEventCmd(Event{
		Type:   EventCodeChange,
		RoomID: model.roomKey,
		Code:   after,
	})}
	if now := time.Now(); now.Sub(model.lastTypingSent) > typingThrottle {
		model.lastTypingSent = now
		cmds = append(cmds, model.sendEventCmd(Event{
			Type:     EventTyping,
			RoomID:   model.roomKey,
			UserName: model.username,
		}))
	}
	return model, tea.Batch(cmds...)
}

func (model *SessionModel) applyEvent(ev Event) (tea.Model, tea.Cmd) {
	switch ev.Type {
	case EventUserJoined:
		model.joined = true
		// a vanished name means that participant left; drop their typing
		// indicator now instead of letting it time out.
		for _, departed := range lo.Without(model.participants, ev.Users...) {
			model.typing.Forget(departed)
		}
		model.participants = ev.Users
	case EventCodeUpdate:
		// last writer wins: the remote buffer replaces ours unconditionally.
		if ev.Code != model.editor.Value() {
			model.editor.SetValue(ev.Code)
		}
	case EventLanguageUpdate:
		if ev.Language != "" {
			model.language = ev.Language
		}
	case EventUserTyping:
		if ev.UserName != "" && ev.UserName != model.username {
			model.typing.Mark(ev.UserName, time.Now())
		}
	case EventJoinDenied:
		model.notices = append(model.notices, "Join refused: "+ev.Reason)
		model.closeConn()
		model.connected = false
		model.joined = false
		model.promptPasscode()
		return model, model.textInput.Focus()
	}
	return model, model.readOnceCmd()
}

// prompt helpers keep the single text input consistent between modes.

func (model *SessionModel) promptName() {
	model.mode = modeNamePrompt
	model.textInput.SetValue(model.username)
	model.textInput.Placeholder = "Enter display name…"
	model.textInput.Prompt = "name> "
	model.textInput.EchoMode = textinput.EchoNormal
}

func (model *SessionModel) promptRoom() {
	model.mode = modeRoomPrompt
	model.textInput.SetValue("")
	model.textInput.Placeholder = "Enter room key…"
	model.textInput.Prompt = "room> "
	model.textInput.EchoMode = textinput.EchoNormal
}

func (model *SessionModel) promptPasscode() {
	model.mode = modePasscodePrompt
	model.textInput.SetValue("")
	model.textInput.Placeholder = "Passcode (Enter to skip)…"
	model.textInput.Prompt = "passcode> "
	model.textInput.EchoMode = textinput.EchoPassword
}

func (model *SessionModel) backToMenu() {
	model.mode = modeMenu
	model.pendingAction = actionNone
	model.textInput.SetValue("")
	model.textInput.Blur()
}

func (model *SessionModel) enterEditor() {
	model.mode = modeEditor
	model.textInput.Blur()
	model.editor.Focus()
}

// leaveSession tells the relay goodbye, clears all room state, and returns to
// the menu. A fresh join dials a fresh connection.
func (model *SessionModel) leaveSession() {
	if model.conn != nil && model.joined {
		payload := Event{Type: EventLeaveRoom}.encode()
		model.writeMu.Lock()
		_ = model.conn.WriteMessage(websocket.TextMessage, payload)
		model.writeMu.Unlock()
	}
	model.teardown()
	model.roomKey = ""
	model.passcode = ""
	model.participants = nil
	model.editor.SetValue("")
	model.language = editorLanguages[0]
	model.typing.Reset()
	model.backToMenu()
}

func (model *SessionModel) teardown() {
	model.closeConn()
	model.connected = false
	model.joined = false
}

func (model *SessionModel) closeConn() {
	if model.conn == nil {
		return
	}
	model.writeMu.Lock()
	_ = model.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	model.writeMu.Unlock()
	_ = model.conn.Close()
	model.conn = nil
}

func nextLanguage(current string) string {
	for i, lang := range editorLanguages {
		if lang == current {
			return editorLanguages[(i+1)%len(editorLanguages)]
		}
	}
	return editorLanguages[0]
}

// RunSession launches the bubbletea program for the collaborative editor.
func RunSession(serverWSURL, roomKey, username, passcode string) error {
	program := tea.NewProgram(NewSessionModel(serverWSURL, roomKey, username, passcode))
	_, err := program.Run()
	return err
}
