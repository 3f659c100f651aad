package internal

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"groupcode/internal/storage"
)

// ReservationSource looks up reserved room keys. The relay only needs it to
// check passcodes on join; a nil source means every room is open.
type ReservationSource interface {
	GetReservation(ctx context.Context, key string) (*storage.Reservation, error)
}

// Relay bridges websocket connections to the session registry. Each
// connection drives its own read loop, so events from one connection are
// dispatched in arrival order; no order is guaranteed across connections.
type Relay struct {
	registry     *Registry
	reservations ReservationSource
	metrics      *Metrics
	log          zerolog.Logger
}

func NewRelay(registry *Registry, reservations ReservationSource, metrics *Metrics, log zerolog.Logger) *Relay {
	return &Relay{
		registry:     registry,
		reservations: reservations,
		metrics:      metrics,
		log:          log,
	}
}

// Attach wraps an upgraded websocket connection and starts its pumps. The
// connection stays out of every room until it sends a join event.
func (relay *Relay) Attach(conn *websocket.Conn) {
	client := &Client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendQueueSize),
	}
	relay.metrics.IncConn()
	go client.writePump()
	go client.readPump(relay)
}

// HandleEvent decodes and dispatches one event from a connection. Malformed
// payloads and events that are invalid in the connection's current state are
// dropped; a bad event must never take down the relay or another room.
func (relay *Relay) HandleEvent(client *Client, payload []byte) {
	// leaving is terminal for a connection: its send queue is closed, so any
	// pipelined event after leaveRoom must be dropped before it can broadcast
	// or be denied back down the closed channel.
	if client.left {
		return
	}
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		relay.log.Debug().Str("client", client.id).Err(err).Msg("discarding malformed event")
		return
	}
	if !client.allowEvent(time.Now()) {
		relay.log.Debug().Str("client", client.id).Msg("event budget exceeded, dropping")
		return
	}

	switch ev.Type {
	case EventJoin:
		relay.handleJoin(client, ev)
	case EventCodeChange:
		if !client.relaying(ev.RoomID) {
			return
		}
		relay.fanOut(client, Event{Type: EventCodeUpdate, RoomID: client.roomKey, Code: ev.Code})
	case EventLanguageChange:
		if !client.relaying(ev.RoomID) {
			return
		}
		relay.fanOut(client, Event{Type: EventLanguageUpdate, RoomID: client.roomKey, Language: ev.Language})
	case EventTyping:
		if !client.relaying(ev.RoomID) {
			return
		}
		relay.fanOut(client, Event{Type: EventUserTyping, RoomID: client.roomKey, UserName: client.name})
	case EventLeaveRoom:
		relay.handleLeave(client)
	default:
		relay.log.Debug().Str("client", client.id).Str("type", ev.Type).Msg("unknown event type")
	}
}

// relaying reports whether the client may emit relay events for the given
// room: it must have joined, and the event must target its own room.
func (client *Client) relaying(roomKey string) bool {
	return client.joined && roomKey == client.roomKey
}

func (relay *Relay) handleJoin(client *Client, ev Event) {
	if client.joined {
		return
	}
	key := strings.TrimSpace(ev.RoomID)
	name := strings.TrimSpace(ev.UserName)
	if key == "" || name == "" {
		relay.deny(client, "room key and user name are required")
		return
	}
	if relay.reservations != nil {
		res, err := relay.reservations.GetReservation(context.Background(), key)
		if err != nil {
			relay.log.Error().Str("room", key).Err(err).Msg("reservation lookup failed")
			relay.deny(client, "room lookup failed")
			return
		}
		if res != nil && len(res.PasscodeHash) > 0 {
			if bcrypt.CompareHashAndPassword(res.PasscodeHash, []byte(ev.Passcode)) != nil {
				relay.deny(client, "invalid passcode")
				return
			}
		}
	}

	client.name = name
	client.roomKey = key
	names := relay.registry.Join(key, client)
	client.joined = true

	// the joiner is included so the participant list doubles as the join ack.
	relay.fanOutAll(key, Event{Type: EventUserJoined, RoomID: key, Users: names})
	relay.log.Info().Str("room", key).Str("user", name).Int("participants", len(names)).Msg("participant joined")
}

// handleLeave runs for both explicit leaveRoom events and network drops, so
// an ungraceful disconnect leaves the registry in exactly the same state as
// a polite goodbye. It is idempotent.
func (relay *Relay) handleLeave(client *Client) {
	if !client.joined {
		return
	}
	key := client.roomKey
	client.joined = false
	client.left = true
	client.roomKey = ""
	names, removed := relay.registry.Leave(key, client)
	if !removed {
		return
	}
	relay.fanOutAll(key, Event{Type: EventUserJoined, RoomID: key, Users: names})
	relay.log.Info().Str("room", key).Str("user", client.name).Int("participants", len(names)).Msg("participant left")
}

// Disconnect is called from the read pump when the connection dies.
func (relay *Relay) Disconnect(client *Client) {
	relay.handleLeave(client)
	relay.metrics.DecConn()
}

// fanOut relays the event to every other member of the sender's room.
func (relay *Relay) fanOut(sender *Client, ev Event) {
	relay.deliver(sender.roomKey, ev, sender)
}

// fanOutAll relays the event to every member of the room, sender included.
func (relay *Relay) fanOutAll(key string, ev Event) {
	relay.deliver(key, ev, nil)
}

func (relay *Relay) deliver(key string, ev Event, except *Client) {
	payload := ev.encode()
	if payload == nil {
		return
	}
	relay.metrics.IncRelayed()
	for _, slow := range relay.registry.Broadcast(key, payload, except) {
		relay.evict(slow, key)
	}
}

// evict force-closes a member whose send queue stayed full. Closing the
// socket makes its read pump fail, which funnels the member through the
// normal disconnect path and broadcasts the updated participant list. The
// room key is passed in; the member's own fields belong to its read loop.
func (relay *Relay) evict(client *Client, room string) {
	relay.log.Warn().Str("client", client.id).Str("room", room).Msg("evicting slow participant")
	if client.conn != nil {
		go client.conn.Close()
	}
}

func (relay *Relay) deny(client *Client, reason string) {
	payload := Event{Type: EventJoinDenied, Reason: reason}.encode()
	select {
	case client.send <- payload:
	default:
	}
}
