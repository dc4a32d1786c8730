package pubsub

type ConnectedEvent struct {
	SocketID string
}

type DisconnectedEvent struct {
	// Err is nil when Disconnect or Close was called.
	Err error
}

type ErrorEvent struct {
	Error error
}

type ConnectedHandler func(ConnectedEvent)
type DisconnectHandler func(DisconnectedEvent)
type ErrorHandler func(ErrorEvent)

type eventHub struct {
	onConnected    ConnectedHandler
	onDisconnected DisconnectHandler
	onError        ErrorHandler
}

func newEventHub() *eventHub {
	return &eventHub{}
}

func (c *Client) OnConnected(handler ConnectedHandler) {
	c.mu.Lock()
	c.events.onConnected = handler
	c.mu.Unlock()
}

func (c *Client) OnDisconnected(handler DisconnectHandler) {
	c.mu.Lock()
	c.events.onDisconnected = handler
	c.mu.Unlock()
}

func (c *Client) OnError(handler ErrorHandler) {
	c.mu.Lock()
	c.events.onError = handler
	c.mu.Unlock()
}
