package internal

import (
	"sort"
	"sync"

	"github.com/samber/lo"
)

// Room is one live collaborative session: a named set of connected clients
// sharing a relay channel. The server keeps no code or language buffer for
// the room; it is a pure fan-out target.
type Room struct {
	key     string
	mu      sync.RWMutex
	members map[*Client]bool
}

func newRoom(key string) *Room {
	return &Room{
		key:     key,
		members: make(map[*Client]bool),
	}
}

// nameList collects member display names. Callers must hold room.mu.
// The list is sorted so repeated broadcasts of the same membership compare
// equal on the client side.
func (room *Room) nameList() []string {
	names := lo.Map(lo.Keys(room.members), func(member *Client, _ int) string {
		return member.name
	})
	sort.Strings(names)
	return names
}
