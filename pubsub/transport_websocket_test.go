package pubsub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer accepts one WebSocket connection, greets it and hands every
// frame the client writes to frames.
func fakeServer(t *testing.T) (string, chan map[string]any, chan *websocket.Conn) {
	t.Helper()
	frames := make(chan map[string]any, 16)
	conns := make(chan *websocket.Conn, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"pusher:connection_established","data":"{\"socket_id\":\"7.7\",\"activity_timeout\":120}"}`))
		conns <- conn
		for {
			var frame map[string]any
			if err := conn.ReadJSON(&frame); err != nil {
				return
			}
			frames <- frame
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http"), frames, conns
}

func TestWebsocketTransportReadWrite(t *testing.T) {
	url, frames, _ := fakeServer(t)

	tr, err := WebsocketDialer(url, Config{})(context.Background())
	require.NoError(t, err)
	defer tr.Close()

	ev, err := tr.Read()
	require.NoError(t, err)
	assert.Equal(t, EventConnectionEstablished, ev.Event)
	assert.Equal(t, map[string]any{"socket_id": "7.7", "activity_timeout": float64(120)}, ev.Data)

	require.NoError(t, tr.Write(&Event{Channel: "room1", Event: "client-typing", Data: map[string]any{"on": true}}, time.Second))
	select {
	case frame := <-frames:
		assert.Equal(t, map[string]any{
			"channel": "room1",
			"event":   "client-typing",
			"data":    map[string]any{"on": true},
		}, frame)
	case <-time.After(waitTimeout):
		t.Fatal("server got nothing")
	}
}

func TestWebsocketTransportServerClose(t *testing.T) {
	url, _, conns := fakeServer(t)

	tr, err := WebsocketDialer(url, Config{})(context.Background())
	require.NoError(t, err)
	defer tr.Close()

	_, err = tr.Read()
	require.NoError(t, err)

	conn := <-conns
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "bye"))

	_, err = tr.Read()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway))

	assert.NoError(t, tr.Close())
	assert.Error(t, tr.Write(&Event{Event: "x"}, 0))
}

func TestWebsocketDialFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := WebsocketDialer("ws"+strings.TrimPrefix(srv.URL, "http"), Config{})(context.Background())
	assert.Error(t, err)
}

func TestClientOverWebsocket(t *testing.T) {
	url, frames, _ := fakeServer(t)

	c := NewClient(url, Config{Logger: quietLogger()})
	defer c.Close()
	c.Subscribe("room1")

	require.NoError(t, c.Connect(context.Background()))
	require.Eventually(t, func() bool { return c.SocketID() == "7.7" }, waitTimeout, 5*time.Millisecond)

	select {
	case frame := <-frames:
		assert.Equal(t, EventSubscribe, frame["event"])
		assert.Equal(t, map[string]any{"channel": "room1"}, frame["data"])
	case <-time.After(waitTimeout):
		t.Fatal("no subscribe frame")
	}
}

func TestDecodeEvent(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want *Event
	}{
		{
			name: "string data holding json",
			raw:  `{"event":"e","channel":"c","data":"{\"a\":1}"}`,
			want: &Event{Event: "e", Channel: "c", Data: map[string]any{"a": float64(1)}},
		},
		{
			name: "plain string data",
			raw:  `{"event":"e","data":"hello"}`,
			want: &Event{Event: "e", Data: "hello"},
		},
		{
			name: "object data",
			raw:  `{"event":"e","data":{"a":[1,2]}}`,
			want: &Event{Event: "e", Data: map[string]any{"a": []any{float64(1), float64(2)}}},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev, err := decodeEvent([]byte(tc.raw))
			require.NoError(t, err)
			assert.Equal(t, tc.want, ev)
		})
	}

	_, err := decodeEvent([]byte("not json"))
	assert.Error(t, err)
}

func TestAppURL(t *testing.T) {
	assert.Equal(t, "wss://ws.example.com/app/key1?client=pushchan&protocol=7&version="+ClientVersion, AppURL("ws.example.com", "key1", true))
	assert.True(t, strings.HasPrefix(AppURL("localhost:8080", "k", false), "ws://localhost:8080/app/k?"))
}
