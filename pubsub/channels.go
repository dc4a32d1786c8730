package pubsub

import (
	"sync"

	"github.com/THPTUHA/pushchan/pkg/orderedmap"
)

// Channels holds at most one Channel per name, in the order they were
// added.
type Channels struct {
	mu       sync.RWMutex
	channels orderedmap.OrderedMap[string, *Channel]
	factory  *Factory
	conn     Connection
}

func NewChannels(factory *Factory, conn Connection) *Channels {
	return &Channels{
		channels: orderedmap.New[string, *Channel](),
		factory:  factory,
		conn:     conn,
	}
}

// Add returns the channel called name, creating it on first use.
func (cs *Channels) Add(name string) *Channel {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if ch, ok := cs.channels.Get(name); ok {
		return ch
	}
	ch := cs.factory.Create(name, cs.conn)
	cs.channels.Set(name, ch)
	return ch
}

func (cs *Channels) Find(name string) (*Channel, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.channels.Get(name)
}

// Remove forgets the channel called name, if any.
func (cs *Channels) Remove(name string) {
	cs.mu.Lock()
	cs.channels.Delete(name)
	cs.mu.Unlock()
}

// All returns a snapshot of the registered channels, oldest first.
func (cs *Channels) All() []*Channel {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.channels.Values()
}

func (cs *Channels) Len() int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.channels.Len()
}
