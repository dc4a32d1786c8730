package pubsub

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/THPTUHA/pushchan/pkg/cbqueue"
	"github.com/THPTUHA/pushchan/pkg/logger"
	"github.com/sirupsen/logrus"
)

// slowHandling is how long an event may wait in the queue before the delay
// is logged.
const slowHandling = 500 * time.Millisecond

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateClosed       State = "closed"
)

// Client owns the connection, its channels and the global channel that
// receives connection level events. Inbound events and authorization
// results are handled one at a time, in arrival order.
type Client struct {
	mu         sync.RWMutex
	config     Config
	dial       DialFunc
	transport  Transport
	state      State
	socketID   string
	channels   *Channels
	global     *Channel
	authorizer Authorizer
	events     *eventHub
	queue      *cbqueue.CBQueue
	logger     *logrus.Entry
}

// NewClient prepares a client for endpoint, a ws:// or wss:// URL. It panics
// on an unusable endpoint or auth configuration.
func NewClient(endpoint string, config Config) *Client {
	config = config.withDefaults()
	if config.Logger == nil {
		config.Logger = logger.InitLogger("info", "pushchan")
	}
	dial := config.Dial
	if dial == nil {
		if !strings.HasPrefix(endpoint, "ws") {
			panic(fmt.Sprintf("unsupported connection endpoint: %s", endpoint))
		}
		dial = WebsocketDialer(endpoint, config)
	}
	authorizer, err := NewAuthorizer(config.Auth, config.Logger)
	if err != nil {
		panic(err)
	}

	c := &Client{
		config:     config,
		dial:       dial,
		state:      StateDisconnected,
		authorizer: authorizer,
		events:     newEventHub(),
		queue:      cbqueue.New(),
		logger:     config.Logger,
	}
	factory := NewFactory(config, authorizer)
	c.channels = NewChannels(factory, c)
	c.global = factory.newGlobalChannel(c)
	return c
}

func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// SocketID is the connection id the server assigned, empty until connected.
func (c *Client) SocketID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.socketID
}

// Connect dials the transport. The client becomes connected, and subscribes
// its channels, when the server confirms the connection.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case StateClosed:
		c.mu.Unlock()
		return ErrClientClosed
	case StateConnected, StateConnecting:
		c.mu.Unlock()
		return nil
	}
	c.state = StateConnecting
	c.mu.Unlock()

	t, err := c.dial(ctx)
	if err != nil {
		c.mu.Lock()
		if c.state == StateConnecting {
			c.state = StateDisconnected
		}
		c.mu.Unlock()
		err = TransportError{Err: err}
		c.emitError(err)
		return err
	}

	c.mu.Lock()
	if c.state != StateConnecting {
		c.mu.Unlock()
		_ = t.Close()
		return ErrClientClosed
	}
	c.transport = t
	c.mu.Unlock()

	go c.reader(t)
	return nil
}

func (c *Client) reader(t Transport) {
	for {
		ev, err := t.Read()
		if err != nil {
			c.queue.Push(func(time.Duration) {
				c.handleTransportClosed(t, err)
			})
			return
		}
		c.queue.Push(func(delay time.Duration) {
			if delay > slowHandling {
				c.logger.WithField("delay", delay).Debug("event handling is lagging")
			}
			c.handle(ev)
		})
	}
}

// Send writes an event to the transport.
func (c *Client) Send(ev Event) error {
	c.mu.RLock()
	t := c.transport
	c.mu.RUnlock()
	if t == nil {
		return ErrNotConnected
	}
	if err := t.Write(&ev, c.config.WriteTimeout); err != nil {
		return TransportError{Err: err}
	}
	return nil
}

// Subscribe registers the channel and, when connected, starts its
// authorization and subscribe request.
func (c *Client) Subscribe(name string) *Channel {
	ch := c.channels.Add(name)
	if c.State() == StateConnected && !ch.Subscribed() {
		c.subscribeChannel(ch)
	}
	return ch
}

// Unsubscribe forgets the channel and tells the server.
func (c *Client) Unsubscribe(name string) {
	ch, ok := c.channels.Find(name)
	if !ok {
		return
	}
	c.channels.Remove(name)
	ch.Disconnect()
	if c.State() != StateConnected {
		return
	}
	err := c.Send(Event{Event: EventUnsubscribe, Data: map[string]any{"channel": name}})
	if err != nil {
		c.logger.WithError(err).WithField("channel", name).Warn("unsubscribe failed")
	}
}

func (c *Client) Channel(name string) (*Channel, bool) {
	return c.channels.Find(name)
}

func (c *Client) Channels() []*Channel {
	return c.channels.All()
}

// Bind binds a handler for a connection level event.
func (c *Client) Bind(event string, handler Handler) *Client {
	c.global.Bind(event, handler)
	return c
}

// BindAll receives every connection level event.
func (c *Client) BindAll(handler GlobalHandler) *Client {
	c.global.BindAll(handler)
	return c
}

// Disconnect closes the transport and resets every channel. Channels stay
// registered and are subscribed again on the next Connect.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return ErrClientClosed
	}
	wasOpen := c.state != StateDisconnected
	c.closeTransportLocked()
	c.state = StateDisconnected
	c.mu.Unlock()

	for _, ch := range c.channels.All() {
		ch.Disconnect()
	}
	if wasOpen {
		c.emitDisconnected(nil)
	}
	return nil
}

// Close disconnects and releases the client for good.
func (c *Client) Close() {
	if err := c.Disconnect(); errors.Is(err, ErrClientClosed) {
		return
	}
	c.mu.Lock()
	c.state = StateClosed
	c.mu.Unlock()
	c.queue.Close()
	if closer, ok := c.authorizer.(io.Closer); ok {
		_ = closer.Close()
	}
}

func (c *Client) closeTransportLocked() {
	if c.transport != nil {
		_ = c.transport.Close()
		c.transport = nil
	}
	c.socketID = ""
}

func (c *Client) handle(ev *Event) {
	c.logger.WithFields(logrus.Fields{
		"event":   ev.Event,
		"channel": ev.Channel,
	}).Debug("received event")

	if ev.Channel != "" {
		c.route(ev)
		return
	}

	switch ev.Event {
	case EventConnectionEstablished:
		c.handleConnectionEstablished(ev.Data)
	case EventPing:
		if err := c.Send(Event{Event: EventPong}); err != nil {
			c.logger.WithError(err).Warn("pong failed")
		}
	case EventError:
		c.logger.WithField("data", ev.Data).Warn("server error")
		c.emitError(fmt.Errorf("server error: %v", ev.Data))
	}
	c.global.DispatchWithAll(ev.Event, ev.Data)
}

func (c *Client) route(ev *Event) {
	ch, ok := c.channels.Find(ev.Channel)
	if !ok {
		c.logger.WithField("channel", ev.Channel).Debug("event for unknown channel")
		return
	}
	if ev.Event == InternalSubscriptionSucceeded && !ch.IsPresence() {
		ch.AcknowledgeSubscription(ev.Data)
		ch.DispatchWithAll(EventSubscriptionSucceeded, nil)
		return
	}
	if ev.Event == EventSubscriptionError {
		ch.endSubscribe()
	}
	ch.DispatchWithAll(ev.Event, ev.Data)
}

func (c *Client) handleConnectionEstablished(data any) {
	var payload struct {
		SocketID string `mapstructure:"socket_id"`
	}
	if err := decodePayload(data, &payload); err != nil || payload.SocketID == "" {
		c.logger.WithField("data", data).Error("connection established without socket id")
		return
	}

	c.mu.Lock()
	if c.state != StateConnecting {
		c.mu.Unlock()
		return
	}
	c.state = StateConnected
	c.socketID = payload.SocketID
	handler := c.events.onConnected
	c.mu.Unlock()

	c.logger.WithField("socket_id", payload.SocketID).Info("connected")
	if handler != nil {
		handler(ConnectedEvent{SocketID: payload.SocketID})
	}
	for _, ch := range c.channels.All() {
		c.subscribeChannel(ch)
	}
}

func (c *Client) subscribeChannel(ch *Channel) {
	if !ch.beginSubscribe() {
		c.logger.WithField("channel", ch.Name()).Debug("subscribe already in flight")
		return
	}
	ch.Authorize(c, func(data AuthData, err error) {
		pushed := c.queue.Push(func(time.Duration) {
			c.completeSubscribe(ch, data, err)
		})
		if !pushed {
			c.logger.WithField("channel", ch.Name()).Debug("client closed before authorization finished")
		}
	})
}

func (c *Client) completeSubscribe(ch *Channel, data AuthData, err error) {
	if current, ok := c.channels.Find(ch.Name()); !ok || current != ch {
		return
	}
	if err != nil {
		c.logger.WithError(err).WithField("channel", ch.Name()).Warn("authorization failed")
		ch.endSubscribe()
		ch.DispatchWithAll(EventSubscriptionError, err)
		return
	}
	if ch.IsPresence() {
		userID, err := userIDFromChannelData(data.ChannelData())
		if err != nil {
			c.logger.WithError(err).WithField("channel", ch.Name()).Warn("bad channel_data")
		}
		ch.Members().setMyID(userID)
	}

	payload := make(map[string]any, len(data)+1)
	for k, v := range data {
		payload[k] = v
	}
	payload["channel"] = ch.Name()
	if err := c.Send(Event{Event: EventSubscribe, Data: payload}); err != nil {
		c.logger.WithError(err).WithField("channel", ch.Name()).Warn("subscribe failed")
		ch.endSubscribe()
		ch.DispatchWithAll(EventSubscriptionError, err)
	}
}

func (c *Client) handleTransportClosed(t Transport, err error) {
	c.mu.Lock()
	if c.transport != t {
		c.mu.Unlock()
		return
	}
	c.closeTransportLocked()
	c.state = StateDisconnected
	c.mu.Unlock()

	if errors.Is(err, io.EOF) {
		err = nil
	}
	if err != nil {
		c.logger.WithError(err).Warn("transport closed")
	}
	for _, ch := range c.channels.All() {
		ch.Disconnect()
	}
	c.emitDisconnected(err)
}

func (c *Client) emitDisconnected(err error) {
	c.mu.RLock()
	handler := c.events.onDisconnected
	c.mu.RUnlock()
	if handler == nil {
		return
	}
	c.queue.Push(func(time.Duration) {
		handler(DisconnectedEvent{Err: err})
	})
}

func (c *Client) emitError(err error) {
	c.mu.RLock()
	handler := c.events.onError
	c.mu.RUnlock()
	if handler == nil {
		return
	}
	c.queue.Push(func(time.Duration) {
		handler(ErrorEvent{Error: err})
	})
}
