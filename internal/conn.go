package internal

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait     = 10 * time.Second
	pongWait      = 60 * time.Second
	pingPeriod    = (pongWait * 9) / 10
	maxEventSize  = 1 << 20 // whole code buffers travel in one event
	sendQueueSize = 256

	// relay events are limited per connection with a sliding window. The
	// budget is sized for interactive editing, where every keystroke can
	// produce a codeChange plus a typing event.
	eventWindow = 2 * time.Second
	eventBurst  = 200
)

// Client is one websocket connection on the server side. The joined and left
// flags, room key, and display name are only touched from the connection's
// read loop, so they need no lock; the display name is always set before the
// client is registered in a room and never written while it is a member.
type Client struct {
	id         string
	conn       *websocket.Conn
	send       chan []byte
	name       string
	roomKey    string
	joined     bool
	left       bool
	eventTimes []time.Time
}

func (client *Client) readPump(relay *Relay) {
	defer func() {
		relay.Disconnect(client)
		client.conn.Close()
	}()
	client.conn.SetReadLimit(maxEventSize)
	_ = client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, payload, err := client.conn.ReadMessage()
		if err != nil {
			// read error or normal close; the deferred cleanup runs either way.
			break
		}
		relay.HandleEvent(client, payload)
	}
}

func (client *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-client.send:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// allowEvent applies the per-connection sliding window. Events over budget
// are dropped; bounding handler work per connection keeps one noisy client
// from starving the rest of the room.
func (client *Client) allowEvent(now time.Time) bool {
	cutoff := now.Add(-eventWindow)
	idx := 0
	for _, ts := range client.eventTimes {
		if ts.After(cutoff) {
			client.eventTimes[idx] = ts
			idx++
		}
	}
	client.eventTimes = client.eventTimes[:idx]
	if len(client.eventTimes) >= eventBurst {
		return false
	}
	client.eventTimes = append(client.eventTimes, now)
	return true
}
