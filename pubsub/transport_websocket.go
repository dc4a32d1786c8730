package pubsub

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type websocketConfig struct {
	HandshakeTimeout  time.Duration
	EnableCompression bool
	Header            http.Header
}

type websocketTransport struct {
	mu      sync.Mutex
	conn    *websocket.Conn
	eventCh chan *Event
	err     error
	closed  bool
	closeCh chan struct{}
}

func newWebsocketTransport(ctx context.Context, url string, config websocketConfig) (Transport, error) {
	dialer := &websocket.Dialer{
		Proxy:             http.ProxyFromEnvironment,
		HandshakeTimeout:  config.HandshakeTimeout,
		EnableCompression: config.EnableCompression,
	}

	conn, resp, err := dialer.DialContext(ctx, url, config.Header)
	if err != nil {
		return nil, fmt.Errorf("error dial: %w", err)
	}
	if resp.StatusCode != http.StatusSwitchingProtocols {
		_ = conn.Close()
		return nil, fmt.Errorf("wrong status code while connecting to server: %d", resp.StatusCode)
	}

	t := &websocketTransport{
		conn:    conn,
		eventCh: make(chan *Event),
		closeCh: make(chan struct{}),
	}
	go t.reader()
	return t, nil
}

// WebsocketDialer returns a DialFunc for a WebSocket endpoint.
func WebsocketDialer(url string, config Config) DialFunc {
	config = config.withDefaults()
	wsConfig := websocketConfig{
		HandshakeTimeout:  config.HandshakeTimeout,
		EnableCompression: config.EnableCompression,
		Header:            config.Header,
	}
	return func(ctx context.Context) (Transport, error) {
		return newWebsocketTransport(ctx, url, wsConfig)
	}
}

func (t *websocketTransport) reader() {
	defer func() { _ = t.Close() }()
	defer close(t.eventCh)

	for {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			t.mu.Lock()
			if !t.closed {
				t.err = err
			}
			t.mu.Unlock()
			return
		}
		ev, err := decodeEvent(data)
		if err != nil {
			t.mu.Lock()
			t.err = err
			t.mu.Unlock()
			return
		}
		select {
		case <-t.closeCh:
			return
		case t.eventCh <- ev:
		}
	}
}

func (t *websocketTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	close(t.closeCh)
	_ = t.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return t.conn.Close()
}

func (t *websocketTransport) Read() (*Event, error) {
	ev, ok := <-t.eventCh
	if !ok {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.err != nil {
			return nil, t.err
		}
		return nil, io.EOF
	}
	return ev, nil
}

func (t *websocketTransport) Write(ev *Event, timeout time.Duration) error {
	data, err := encodeEvent(ev)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return errors.New("transport closed")
	}
	if timeout > 0 {
		_ = t.conn.SetWriteDeadline(time.Now().Add(timeout))
	}
	err = t.conn.WriteMessage(websocket.TextMessage, data)
	if timeout > 0 {
		_ = t.conn.SetWriteDeadline(time.Time{})
	}
	return err
}
