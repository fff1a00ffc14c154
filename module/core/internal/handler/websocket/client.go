package websocket

import (
	"sync"
	"sync/atomic"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/nandanugg/geofence-tracker/module/core/internal/realtime"
)

var _ realtime.Connection = (*client)(nil)

// client wraps a gorilla connection so it can be written from the read loop
// and from ingestion goroutines. gorilla allows one concurrent writer.
type client struct {
	conn         *ws.Conn
	writeTimeout time.Duration

	mu     sync.Mutex
	closed atomic.Bool
}

func newClient(conn *ws.Conn, writeTimeout time.Duration) *client {
	return &client{conn: conn, writeTimeout: writeTimeout}
}

func (c *client) Open() bool {
	return !c.closed.Load()
}

func (c *client) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return ws.ErrCloseSent
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteJSON(v)
}

func (c *client) close() {
	if c.closed.CompareAndSwap(false, true) {
		_ = c.conn.Close()
	}
}
