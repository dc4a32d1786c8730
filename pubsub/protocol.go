package pubsub

import (
	"fmt"
	"net/url"

	"github.com/segmentio/encoding/json"
)

const (
	ProtocolVersion = 7
	ClientName      = "pushchan"
	ClientVersion   = "0.3.0"
)

// Connection level events.
const (
	EventConnectionEstablished = "pusher:connection_established"
	EventError                 = "pusher:error"
	EventPing                  = "pusher:ping"
	EventPong                  = "pusher:pong"
	EventSubscribe             = "pusher:subscribe"
	EventUnsubscribe           = "pusher:unsubscribe"
)

// Channel events emitted to application handlers.
const (
	EventSubscriptionSucceeded = "pusher:subscription_succeeded"
	EventSubscriptionError     = "pusher:subscription_error"
	EventMemberAdded           = "pusher:member_added"
	EventMemberRemoved         = "pusher:member_removed"
)

// Protocol events consumed by the channel layer and translated into the
// public events above.
const (
	InternalSubscriptionSucceeded = "pusher_internal:subscription_succeeded"
	InternalMemberAdded           = "pusher_internal:member_added"
	InternalMemberRemoved         = "pusher_internal:member_removed"
)

// Event is the record exchanged with the transport.
type Event struct {
	Channel string `json:"channel,omitempty"`
	Event   string `json:"event"`
	Data    any    `json:"data,omitempty"`
}

func encodeEvent(ev *Event) ([]byte, error) {
	return json.Marshal(ev)
}

// decodeEvent parses one frame. Servers send data as a JSON encoded string,
// which is unwrapped when it holds valid JSON.
func decodeEvent(raw []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	if s, ok := ev.Data.(string); ok {
		var v any
		if err := json.Unmarshal([]byte(s), &v); err == nil {
			ev.Data = v
		}
	}
	return &ev, nil
}

// AppURL builds the WebSocket endpoint for an application key.
func AppURL(host, key string, secure bool) string {
	scheme := "ws"
	if secure {
		scheme = "wss"
	}
	q := url.Values{}
	q.Set("protocol", fmt.Sprint(ProtocolVersion))
	q.Set("client", ClientName)
	q.Set("version", ClientVersion)
	u := url.URL{
		Scheme:   scheme,
		Host:     host,
		Path:     "/app/" + key,
		RawQuery: q.Encode(),
	}
	return u.String()
}
