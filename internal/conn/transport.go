// README: Websocket transport behind a narrow interface so tests can inject fakes.
package conn

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Transport is one open channel to the server.
type Transport interface {
	ReadMessage() ([]byte, error)
	WriteJSON(v any) error
	Close() error
}

// Dialer opens a transport to the given URL.
type Dialer func(ctx context.Context, url string) (Transport, error)

const (
	maxMessageBytes = 512 * 1024
	writeWait       = 10 * time.Second
)

// wsTransport serializes writes: gorilla/websocket allows at most one
// concurrent writer, and Emit is called from handler goroutines as well as
// the session loop.
type wsTransport struct {
	conn *websocket.Conn

	writeMu sync.Mutex
}

// WebsocketDialer is the production dialer.
func WebsocketDialer(ctx context.Context, url string) (Transport, error) {
	c, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	c.SetReadLimit(maxMessageBytes)
	return &wsTransport{conn: c}, nil
}

func (t *wsTransport) ReadMessage() ([]byte, error) {
	_, data, err := t.conn.ReadMessage()
	return data, err
}

func (t *wsTransport) WriteJSON(v any) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	t.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return t.conn.WriteJSON(v)
}

func (t *wsTransport) Close() error {
	return t.conn.Close()
}
