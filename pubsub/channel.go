package pubsub

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Connection is what a channel needs from the connection it lives on.
type Connection interface {
	// SocketID identifies the connection to the authorization endpoint.
	SocketID() string
	// Send hands an event to the transport.
	Send(ev Event) error
}

// Channel is a named topic. Its kind, and with it its authorization and
// membership behaviour, is fixed when the Factory builds it.
type Channel struct {
	name       string
	kind       ChannelKind
	conn       Connection
	authorizer Authorizer
	members    *Members
	// global channels receive connection level events and do not report
	// events nobody listens to.
	global bool

	logger *logrus.Entry

	mu              sync.RWMutex
	subscribed      bool
	subscribing     bool
	callbacks       map[string][]Handler
	globalCallbacks []GlobalHandler
}

func newChannel(name string, kind ChannelKind, conn Connection, authorizer Authorizer, logger *logrus.Entry) *Channel {
	if kind.private() && authorizer == nil {
		panic(fmt.Sprintf("pubsub: %s channel %q needs an authorizer", kind, name))
	}
	c := &Channel{
		name:       name,
		kind:       kind,
		conn:       conn,
		authorizer: authorizer,
		callbacks:  make(map[string][]Handler),
		logger:     logger.WithField("channel", name),
	}
	if kind.presence() {
		c.members = newMembers()
	}
	return c
}

func (c *Channel) Name() string {
	return c.name
}

func (c *Channel) Kind() ChannelKind {
	return c.kind
}

func (c *Channel) IsPrivate() bool {
	return c.kind.private()
}

func (c *Channel) IsPresence() bool {
	return c.kind.presence()
}

// Members is nil unless the channel is a presence channel.
func (c *Channel) Members() *Members {
	return c.members
}

func (c *Channel) Subscribed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subscribed
}

// init runs once, after the kind is fixed, to register internal bindings.
func (c *Channel) init() {
	if c.kind.presence() {
		c.bindPresenceEvents()
	}
}

// AcknowledgeSubscription marks the channel subscribed. Presence channels
// first replace their member set with the snapshot carried by data.
func (c *Channel) AcknowledgeSubscription(data any) {
	if c.kind.presence() {
		snapshot, err := decodePresenceSnapshot(data)
		if err != nil {
			c.logger.WithError(err).Warn("bad presence snapshot, starting with no members")
		} else if snapshot.Count != len(snapshot.Hash) {
			c.logger.WithFields(logrus.Fields{
				"reported": snapshot.Count,
				"members":  len(snapshot.Hash),
			}).Debug("presence count disagrees with hash")
		}
		c.members.replace(snapshot.Hash)
	}

	c.mu.Lock()
	c.subscribed = true
	c.subscribing = false
	c.mu.Unlock()
}

// beginSubscribe marks a subscribe handshake as in flight. It reports false
// when one already is.
func (c *Channel) beginSubscribe() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subscribing {
		return false
	}
	c.subscribing = true
	return true
}

func (c *Channel) endSubscribe() {
	c.mu.Lock()
	c.subscribing = false
	c.mu.Unlock()
}

// Authorize obtains the payload for the subscribe request. Public channels
// need none and call fn immediately.
func (c *Channel) Authorize(conn Connection, fn AuthCallback) {
	if !c.kind.private() {
		fn(AuthData{}, nil)
		return
	}
	c.authorizer.Authorize(conn, c.name, fn)
}

// Disconnect drops state tied to the connection. Presence channels forget
// their members.
func (c *Channel) Disconnect() {
	c.endSubscribe()
	if c.kind.presence() {
		c.members.Clear()
	}
}

// Trigger sends an event on this channel. It does not wait for the server.
func (c *Channel) Trigger(event string, data any) *Channel {
	ev := Event{Channel: c.name, Event: event, Data: data}
	c.logger.WithField("event", event).Debug("sending event")
	if c.conn == nil {
		c.logger.WithField("event", event).Warn("no connection to send event on")
		return c
	}
	if err := c.conn.Send(ev); err != nil {
		c.logger.WithError(err).WithField("event", event).Warn("send event failed")
	}
	return c
}
