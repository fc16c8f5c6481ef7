package ws

import (
	"errors"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/avelark/parley/internal/core"
)

var ErrBackpressure = errors.New("backpressure")

// wsEndpoint is one live connection instance. TrySend never blocks: a
// full send buffer is backpressure, reported to the caller.
type wsEndpoint struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func newEndpoint(conn *websocket.Conn) *wsEndpoint {
	return &wsEndpoint{
		conn: conn,
		send: make(chan core.Frame, 32),
	}
}

func (c *wsEndpoint) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsEndpoint) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}
