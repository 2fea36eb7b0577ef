package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const wsCloseGrace = time.Second

// WebSocketDialer opens push channels over WebSocket on the same /stream path.
type WebSocketDialer struct {
	baseURL   *url.URL
	dialer    *websocket.Dialer
	userAgent string
}

// NewWebSocketDialer builds a dialer for baseURL/stream with the scheme
// switched to ws or wss.
func NewWebSocketDialer(baseURL *url.URL) *WebSocketDialer {
	return &WebSocketDialer{
		baseURL: baseURL,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: requestTimeout,
		},
		userAgent: defaultUserAgent,
	}
}

// Dial completes the WebSocket handshake.
func (d *WebSocketDialer) Dial(ctx context.Context, deviceID string) (StreamConn, error) {
	u := streamURL(d.baseURL, deviceID)
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	header := http.Header{}
	header.Set("User-Agent", d.userAgent)

	conn, resp, err := d.dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("open stream: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("open stream: %w", err)
	}
	return &wsConn{conn: conn}, nil
}

type wsConn struct {
	conn *websocket.Conn
	once sync.Once
}

// Recv returns the next text or binary frame.
func (c *wsConn) Recv() ([]byte, error) {
	for {
		kind, payload, err := c.conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("read stream: %w", err)
		}
		if kind == websocket.TextMessage || kind == websocket.BinaryMessage {
			return payload, nil
		}
	}
}

func (c *wsConn) Close() error {
	var err error
	c.once.Do(func() {
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(wsCloseGrace))
		err = c.conn.Close()
	})
	return err
}
