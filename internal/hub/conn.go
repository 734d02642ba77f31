package hub

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WSConn adapts a gorilla websocket connection to the Conn interface.
// gorilla permits a single concurrent writer, so writes are serialized here.
type WSConn struct {
	mu           sync.Mutex
	ws           *websocket.Conn
	writeTimeout time.Duration
}

func NewWSConn(ws *websocket.Conn, writeTimeout time.Duration) *WSConn {
	return &WSConn{ws: ws, writeTimeout: writeTimeout}
}

func (c *WSConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.writeTimeout > 0 {
		if err := c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return err
		}
	}
	return c.ws.WriteJSON(v)
}

// ReadJSON blocks until the next client frame arrives.
func (c *WSConn) ReadJSON(v any) error {
	return c.ws.ReadJSON(v)
}

func (c *WSConn) Close() error {
	return c.ws.Close()
}
