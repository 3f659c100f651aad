package internal

import "sync"

// Registry owns the room → participant mapping. It is constructed once at
// server start, mutated only by the relay in response to connection lifecycle
// events, and torn down with the process. Relayed edits never touch it.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*Room)}
}

// Join adds the client to the room, creating the room if absent, and returns
// the updated display name list. Duplicate names are allowed; the member set
// is keyed by connection so duplicate handles are impossible.
func (reg *Registry) Join(key string, client *Client) []string {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	room, exists := reg.rooms[key]
	if !exists {
		room = newRoom(key)
		reg.rooms[key] = room
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	room.members[client] = true
	return room.nameList()
}

// Leave removes the client from the room and reports whether it was a member.
// The room entry is deleted once its member set is empty, so an idle registry
// holds no empty rooms. Leaving twice or leaving an unknown room is a no-op.
func (reg *Registry) Leave(key string, client *Client) ([]string, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	room, exists := reg.rooms[key]
	if !exists {
		return nil, false
	}
	room.mu.Lock()
	removed := false
	if room.members[client] {
		delete(room.members, client)
		// closing the send queue stops the client's write pump; the close
		// happens under the room lock so Broadcast can never race it.
		close(client.send)
		removed = true
	}
	names := room.nameList()
	empty := len(room.members) == 0
	room.mu.Unlock()
	if empty {
		delete(reg.rooms, key)
	}
	return names, removed
}

// Participants returns the current display name list, or an empty list when
// the room does not exist.
func (reg *Registry) Participants(key string) []string {
	reg.mu.RLock()
	room := reg.rooms[key]
	reg.mu.RUnlock()
	if room == nil {
		return []string{}
	}
	room.mu.RLock()
	defer room.mu.RUnlock()
	return room.nameList()
}

// Exists reports whether a live room with the given key is present.
func (reg *Registry) Exists(key string) bool {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	_, exists := reg.rooms[key]
	return exists
}

// Broadcast queues the payload on every member of the room except the sender
// (pass a nil sender to include everyone). Members whose send queue is full
// are returned so the relay can evict them instead of blocking the room.
func (reg *Registry) Broadcast(key string, payload []byte, except *Client) []*Client {
	reg.mu.RLock()
	room := reg.rooms[key]
	reg.mu.RUnlock()
	if room == nil {
		return nil
	}
	var dropped []*Client
	room.mu.RLock()
	defer room.mu.RUnlock()
	for member := range room.members {
		if member == except {
			continue
		}
		select {
		case member.send <- payload:
		default:
			dropped = append(dropped, member)
		}
	}
	return dropped
}

// Stats reports the number of live rooms and connected participants.
func (reg *Registry) Stats() (rooms, participants int) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	rooms = len(reg.rooms)
	for _, room := range reg.rooms {
		room.mu.RLock()
		participants += len(room.members)
		room.mu.RUnlock()
	}
	return rooms, participants
}
