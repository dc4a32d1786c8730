package pubsub

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelsAddIsIdempotent(t *testing.T) {
	cs := NewChannels(newTestFactory(&stubAuthorizer{}), &recordingConn{})

	for _, name := range []string{"room1", "private-room1", "presence-room1"} {
		first := cs.Add(name)
		second := cs.Add(name)
		assert.Same(t, first, second)

		found, ok := cs.Find(name)
		require.True(t, ok)
		assert.Same(t, first, found)
	}
	assert.Equal(t, 3, cs.Len())
}

func TestChannelsAddConcurrentYieldsOneInstance(t *testing.T) {
	cs := NewChannels(newTestFactory(&stubAuthorizer{}), &recordingConn{})

	var wg sync.WaitGroup
	got := make([]*Channel, 32)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = cs.Add("presence-lobby")
		}(i)
	}
	wg.Wait()

	for _, ch := range got {
		assert.Same(t, got[0], ch)
	}
	assert.Equal(t, 1, cs.Len())
}

func TestChannelsFindAndRemove(t *testing.T) {
	cs := NewChannels(newTestFactory(nil), &recordingConn{})

	_, ok := cs.Find("room1")
	assert.False(t, ok)

	cs.Remove("room1")
	assert.Equal(t, 0, cs.Len())

	first := cs.Add("room1")
	cs.Remove("room1")
	_, ok = cs.Find("room1")
	assert.False(t, ok)

	assert.NotSame(t, first, cs.Add("room1"))
	assert.Len(t, cs.All(), 1)
}

func TestChannelsAllKeepsAddOrder(t *testing.T) {
	cs := NewChannels(newTestFactory(&stubAuthorizer{}), &recordingConn{})
	for _, name := range []string{"c", "private-a", "b", "presence-z"} {
		cs.Add(name)
	}
	cs.Remove("b")
	cs.Add("c")

	var names []string
	for _, ch := range cs.All() {
		names = append(names, ch.Name())
	}
	assert.Equal(t, []string{"c", "private-a", "presence-z"}, names)
}
