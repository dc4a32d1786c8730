package pubsub

// Handler receives the data of one event.
type Handler func(data any)

// GlobalHandler receives every event dispatched on a channel.
type GlobalHandler func(event string, data any)

// Bind appends handler to the handlers of event. Handlers run in the order
// they were bound.
func (c *Channel) Bind(event string, handler Handler) *Channel {
	c.mu.Lock()
	c.callbacks[event] = append(c.callbacks[event], handler)
	c.mu.Unlock()
	return c
}

// BindAll appends a handler run for every dispatched event.
func (c *Channel) BindAll(handler GlobalHandler) *Channel {
	c.mu.Lock()
	c.globalCallbacks = append(c.globalCallbacks, handler)
	c.mu.Unlock()
	return c
}

// Unbind removes every handler bound to event.
func (c *Channel) Unbind(event string) *Channel {
	c.mu.Lock()
	delete(c.callbacks, event)
	c.mu.Unlock()
	return c
}

// DispatchWithAll delivers an incoming event: the handlers bound to event,
// then every global handler.
func (c *Channel) DispatchWithAll(event string, data any) {
	c.Dispatch(event, data)
	c.dispatchGlobal(event, data)
}

// Dispatch runs the handlers bound to event. Handlers are copied before
// being called, so they may bind more handlers.
func (c *Channel) Dispatch(event string, data any) {
	c.mu.RLock()
	handlers := append([]Handler(nil), c.callbacks[event]...)
	c.mu.RUnlock()

	if len(handlers) == 0 {
		if !c.global {
			c.logger.WithField("event", event).Debug("no callbacks for event")
		}
		return
	}
	for _, h := range handlers {
		h(data)
	}
}

func (c *Channel) dispatchGlobal(event string, data any) {
	c.mu.RLock()
	handlers := append([]GlobalHandler(nil), c.globalCallbacks...)
	c.mu.RUnlock()

	for _, h := range handlers {
		h(event, data)
	}
}
