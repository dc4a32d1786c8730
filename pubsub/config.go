package pubsub

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultPrivatePrefix  = "private-"
	DefaultPresencePrefix = "presence-"
)

// DialFunc opens the transport the client talks over.
type DialFunc func(ctx context.Context) (Transport, error)

type Config struct {
	// PrivatePrefix marks channels that need authorization.
	// Zero value means "private-".
	PrivatePrefix string
	// PresencePrefix marks channels that need authorization and track
	// members. Zero value means "presence-".
	PresencePrefix string

	Auth AuthConfig

	// Header specifies custom HTTP Header to send in WebSocket Upgrade request.
	Header http.Header
	// HandshakeTimeout bounds the WebSocket handshake.
	// Zero value means 5 * time.Second.
	HandshakeTimeout time.Duration
	// WriteTimeout is the transport write timeout.
	// Zero value means 1 * time.Second.
	WriteTimeout time.Duration
	// EnableCompression asks the server for per message compression (RFC 7692).
	EnableCompression bool

	// Dial replaces the default WebSocket dialer, for example with a NATS
	// transport.
	Dial DialFunc

	Logger *logrus.Entry
}

type AuthConfig struct {
	// Transport selects the authorizer strategy: "ajax" (default) or "jsonp".
	Transport string
	// Endpoint is the URL of the application's authorization endpoint.
	Endpoint string
	// Headers are added to every authorization request.
	Headers http.Header
	// Params are extra form/query parameters sent along with
	// connection_id and channel_name.
	Params map[string]string
	// Timeout bounds one authorization, retries included.
	// Zero value means 10 * time.Second.
	Timeout time.Duration
	// MaxRetries is how many times a temporary failure (transport error or
	// 5xx) is retried. Zero value means no retry.
	MaxRetries int
	// MinBackoff and MaxBackoff bound the delay between retries.
	// Zero values mean 100ms and 2s.
	MinBackoff time.Duration
	MaxBackoff time.Duration
	// PoolSize caps concurrent ajax requests. Zero value means 16.
	PoolSize int

	HTTPClient *http.Client
}

func (c Config) withDefaults() Config {
	if c.PrivatePrefix == "" {
		c.PrivatePrefix = DefaultPrivatePrefix
	}
	if c.PresencePrefix == "" {
		c.PresencePrefix = DefaultPresencePrefix
	}
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = 5 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = time.Second
	}
	if c.Header == nil {
		c.Header = http.Header{}
	}
	c.Auth = c.Auth.withDefaults()
	return c
}

func (c AuthConfig) withDefaults() AuthConfig {
	if c.Transport == "" {
		c.Transport = AuthTransportAjax
	}
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Second
	}
	if c.MinBackoff == 0 {
		c.MinBackoff = 100 * time.Millisecond
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = 2 * time.Second
	}
	if c.PoolSize == 0 {
		c.PoolSize = 16
	}
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
	return c
}
