package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn wraps a gorilla connection with a write mutex so the countdown
// goroutine and the read loop can both send events safely.
type Conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

// NewConn wraps an upgraded WebSocket connection.
func NewConn(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws}
}

// WriteTyped sends a strongly-typed response payload over the WebSocket.
func (c *Conn) WriteTyped(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.ws.WriteJSON(v)
}

// WriteError sends a typed ErrorResponse over the WebSocket.
func (c *Conn) WriteError(errMsg string) error {
	return c.WriteTyped(ErrorResponse{
		Event: EventError,
		Error: errMsg,
	})
}

// ReadJSON reads and decodes a message into the provided structure.
// It sets a read deadline.
func (c *Conn) ReadJSON(v interface{}) error {
	c.ws.SetReadDeadline(time.Now().Add(5 * time.Minute))
	return c.ws.ReadJSON(v)
}

// ReadRaw reads the next raw text message. It sets a read deadline.
func (c *Conn) ReadRaw() ([]byte, error) {
	c.ws.SetReadDeadline(time.Now().Add(5 * time.Minute))
	_, data, err := c.ws.ReadMessage()
	return data, err
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.ws.Close()
}
