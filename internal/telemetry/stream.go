package telemetry

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// StreamDialer opens a push channel scoped to one device. A nil error means
// the server confirmed the channel is open.
type StreamDialer interface {
	Dial(ctx context.Context, deviceID string) (StreamConn, error)
}

// StreamConn is an open push channel. Recv blocks until the next payload
// arrives or the channel fails. Close may be called concurrently with Recv
// and more than once.
type StreamConn interface {
	Recv() ([]byte, error)
	Close() error
}

// Stream transports accepted by NewStreamDialer.
const (
	TransportSSE       = "sse"
	TransportWebSocket = "websocket"
)

// NewStreamDialer returns a dialer for the named transport rooted at the
// client's API base.
func NewStreamDialer(transport string, c *Client) (StreamDialer, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	switch strings.ToLower(strings.TrimSpace(transport)) {
	case "", TransportSSE:
		return NewSSEDialer(c.BaseURL()), nil
	case TransportWebSocket, "ws":
		return NewWebSocketDialer(c.BaseURL()), nil
	default:
		return nil, fmt.Errorf("unknown stream transport %q", transport)
	}
}

// SSEDialer opens text/event-stream channels over plain HTTP.
type SSEDialer struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
}

// NewSSEDialer builds a dialer for baseURL/stream. The HTTP client carries no
// overall timeout since the response body is long-lived.
func NewSSEDialer(baseURL *url.URL) *SSEDialer {
	return &SSEDialer{
		baseURL:   baseURL,
		http:      &http.Client{},
		userAgent: defaultUserAgent,
	}
}

// Dial issues the streaming GET and returns once response headers arrive.
func (d *SSEDialer) Dial(ctx context.Context, deviceID string) (StreamConn, error) {
	reqURL := streamURL(d.baseURL, deviceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}
	if resp.StatusCode >= 400 {
		defer func() { _ = resp.Body.Close() }()
		return nil, statusError(reqURL.Path, resp)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "text/event-stream") {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("open stream: unexpected content type %q", ct)
	}
	return newSSEConn(resp.Body), nil
}

type sseConn struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	once    sync.Once
}

func newSSEConn(body io.ReadCloser) *sseConn {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &sseConn{body: body, scanner: scanner}
}

// Recv returns the data of the next event. Comment lines (keepalives) and
// the event/id/retry fields are skipped.
func (c *sseConn) Recv() ([]byte, error) {
	var data bytes.Buffer
	pending := false
	for c.scanner.Scan() {
		line := c.scanner.Text()
		if line == "" {
			if pending {
				return data.Bytes(), nil
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		if field != "data" {
			continue
		}
		if pending {
			data.WriteByte('\n')
		}
		data.WriteString(value)
		pending = true
	}
	if err := c.scanner.Err(); err != nil {
		return nil, fmt.Errorf("read stream: %w", err)
	}
	// A final frame without its blank-line terminator is still delivered.
	if pending {
		return data.Bytes(), nil
	}
	return nil, io.EOF
}

func (c *sseConn) Close() error {
	var err error
	c.once.Do(func() { err = c.body.Close() })
	return err
}

func streamURL(base *url.URL, deviceID string) *url.URL {
	u := *base
	u.Path = strings.TrimSuffix(u.Path, "/") + "/stream"
	values := url.Values{}
	values.Set("device_id", deviceID)
	u.RawQuery = values.Encode()
	return &u
}
