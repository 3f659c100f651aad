package internal

import "encoding/json"

// Event is the json envelope exchanged over the websocket in both directions.
// A single envelope with a type tag keeps the dispatch switch flat; fields that
// do not apply to a given type are simply omitted.
type Event struct {
	Type     string   `json:"type"`
	RoomID   string   `json:"roomId,omitempty"`
	UserName string   `json:"userName,omitempty"`
	Code     string   `json:"code,omitempty"`
	Language string   `json:"language,omitempty"`
	Passcode string   `json:"passcode,omitempty"`
	Users    []string `json:"users,omitempty"`
	Reason   string   `json:"reason,omitempty"`
}

// client → server event types.
const (
	EventJoin           = "join"
	EventCodeChange     = "codeChange"
	EventLanguageChange = "languageChange"
	EventTyping         = "typing"
	EventLeaveRoom      = "leaveRoom"
)

// server → client event types.
const (
	EventUserJoined     = "userJoined"
	EventCodeUpdate     = "codeUpdate"
	EventLanguageUpdate = "languageUpdate"
	EventUserTyping     = "userTyping"
	EventJoinDenied     = "joinDenied"
)

func (e Event) encode() []byte {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil
	}
	return payload
}
