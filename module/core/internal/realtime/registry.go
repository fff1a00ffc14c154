// Package realtime holds the live WebSocket subscriptions and pushes device
// updates to them.
package realtime

import "sync"

// Connection is a live subscriber. The transport owns its lifecycle; the
// registry only keeps a reference for lookup. Implementations must be
// comparable (pointer types) since they key the reverse index.
type Connection interface {
	Open() bool
	WriteJSON(v any) error
}

// Registry maps a device id to at most one connection. A reverse index
// keeps UnsubscribeByConnection proportional to the number of ids that
// connection holds rather than to the total subscriber count.
type Registry struct {
	mu       sync.RWMutex
	byDevice map[string]Connection
	byConn   map[Connection]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		byDevice: make(map[string]Connection),
		byConn:   make(map[Connection]map[string]struct{}),
	}
}

// Subscribe installs conn for deviceID, silently replacing any earlier
// connection. The replaced connection is not notified.
func (r *Registry) Subscribe(deviceID string, conn Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.byDevice[deviceID]; ok && prev != conn {
		r.dropReverse(prev, deviceID)
	}
	r.byDevice[deviceID] = conn

	ids, ok := r.byConn[conn]
	if !ok {
		ids = make(map[string]struct{})
		r.byConn[conn] = ids
	}
	ids[deviceID] = struct{}{}
}

// UnsubscribeByConnection removes every device id still mapped to conn.
// Calling it again for the same connection is a no-op.
func (r *Registry) UnsubscribeByConnection(conn Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for deviceID := range r.byConn[conn] {
		if r.byDevice[deviceID] == conn {
			delete(r.byDevice, deviceID)
		}
	}
	delete(r.byConn, conn)
}

func (r *Registry) Lookup(deviceID string) (Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.byDevice[deviceID]
	return conn, ok
}

// Len is the number of device ids with a subscriber.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byDevice)
}

func (r *Registry) dropReverse(conn Connection, deviceID string) {
	ids := r.byConn[conn]
	delete(ids, deviceID)
	if len(ids) == 0 {
		delete(r.byConn, conn)
	}
}
