package internal

import "sync/atomic"

// Metrics collects process-lifetime counters for the relay. Live room and
// participant gauges come from the registry at read time instead of being
// counted twice.
type Metrics struct {
	roomsReserved atomic.Uint64
	eventsRelayed atomic.Uint64
	activeConns   atomic.Int64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) IncReserved() {
	m.roomsReserved.Add(1)
}

func (m *Metrics) IncRelayed() {
	m.eventsRelayed.Add(1)
}

func (m *Metrics) IncConn() {
	m.activeConns.Add(1)
}

func (m *Metrics) DecConn() {
	m.activeConns.Add(-1)
}

// Snapshot returns the counter values for the /metrics payload.
func (m *Metrics) Snapshot() map[string]any {
	return map[string]any{
		"rooms_reserved_total": m.roomsReserved.Load(),
		"events_relayed_total": m.eventsRelayed.Load(),
		"active_connections":   m.activeConns.Load(),
	}
}
