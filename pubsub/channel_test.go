package pubsub

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindDispatchOrder(t *testing.T) {
	ch := newTestFactory(nil).Create("room1", &recordingConn{})

	var calls []string
	ch.Bind("e", func(data any) { calls = append(calls, "h1:"+data.(string)) }).
		Bind("e", func(data any) { calls = append(calls, "h2:"+data.(string)) }).
		Bind("other", func(any) { calls = append(calls, "other") })

	ch.Dispatch("e", "d")
	assert.Equal(t, []string{"h1:d", "h2:d"}, calls)
}

func TestDispatchWithAllRunsGlobalsAfterSpecific(t *testing.T) {
	cases := []struct {
		name     string
		specific int
		globals  int
	}{
		{"none", 0, 0},
		{"only specific", 2, 0},
		{"only global", 0, 2},
		{"both", 2, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ch := newTestFactory(nil).Create("room1", &recordingConn{})
			var calls []string
			for i := 0; i < tc.specific; i++ {
				ch.Bind("e", func(data any) {
					assert.Equal(t, "d", data)
					calls = append(calls, "specific")
				})
			}
			for i := 0; i < tc.globals; i++ {
				ch.BindAll(func(event string, data any) {
					assert.Equal(t, "e", event)
					assert.Equal(t, "d", data)
					calls = append(calls, "global")
				})
			}

			ch.DispatchWithAll("e", "d")

			require.Len(t, calls, tc.specific+tc.globals)
			for i, c := range calls {
				if i < tc.specific {
					assert.Equal(t, "specific", c)
				} else {
					assert.Equal(t, "global", c)
				}
			}
		})
	}
}

func TestDispatchWithoutHandlersIsLogged(t *testing.T) {
	log, hook := debugLogger()
	f := NewFactory(Config{Logger: log}, nil)

	f.Create("room1", &recordingConn{}).Dispatch("nobody", nil)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "no callbacks for event", hook.LastEntry().Message)
	assert.Equal(t, "nobody", hook.LastEntry().Data["event"])

	hook.Reset()
	f.newGlobalChannel(&recordingConn{}).Dispatch("nobody", nil)
	assert.Empty(t, hook.AllEntries())
}

func TestHandlerMayBindDuringDispatch(t *testing.T) {
	ch := newTestFactory(nil).Create("room1", &recordingConn{})
	late := 0
	ch.Bind("e", func(any) {
		ch.Bind("e", func(any) { late++ })
	})

	ch.Dispatch("e", nil)
	assert.Equal(t, 0, late)
	ch.Dispatch("e", nil)
	assert.Equal(t, 1, late)
}

func TestUnbind(t *testing.T) {
	ch := newTestFactory(nil).Create("room1", &recordingConn{})
	n := 0
	ch.Bind("e", func(any) { n++ })
	ch.Unbind("e").Dispatch("e", nil)
	assert.Equal(t, 0, n)
}

func TestTriggerSendsRecord(t *testing.T) {
	conn := &recordingConn{}
	ch := newTestFactory(&stubAuthorizer{}).Create("private-chat", conn)

	got := ch.Trigger("client-typing", map[string]any{"who": "u1"})
	assert.Same(t, ch, got)
	assert.Equal(t, []Event{{
		Channel: "private-chat",
		Event:   "client-typing",
		Data:    map[string]any{"who": "u1"},
	}}, conn.events())
}

func TestTriggerSendErrorIsLoggedNotReturned(t *testing.T) {
	log, hook := debugLogger()
	conn := &recordingConn{err: errors.New("boom")}
	ch := NewFactory(Config{Logger: log}, nil).Create("room1", conn)

	assert.Same(t, ch, ch.Trigger("e", nil))
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "send event failed", hook.LastEntry().Message)
}

func TestPublicChannelAuthorizesImmediately(t *testing.T) {
	ch := newTestFactory(nil).Create("room1", &recordingConn{})

	called := 0
	ch.Authorize(&recordingConn{socketID: "1.1"}, func(data AuthData, err error) {
		called++
		assert.NoError(t, err)
		assert.Empty(t, data)
	})
	assert.Equal(t, 1, called)
}

func TestPrivateChannelDelegatesToAuthorizer(t *testing.T) {
	auth := &stubAuthorizer{data: AuthData{"auth": "sig"}}
	ch := newTestFactory(auth).Create("private-room", &recordingConn{})

	var got AuthData
	ch.Authorize(&recordingConn{socketID: "9.9"}, func(data AuthData, err error) {
		require.NoError(t, err)
		got = data
	})
	assert.Equal(t, "sig", got.Auth())
	assert.Equal(t, []string{"9.9/private-room"}, auth.calls)
}

func TestAcknowledgeSubscription(t *testing.T) {
	ch := newTestFactory(nil).Create("room1", &recordingConn{})
	assert.False(t, ch.Subscribed())
	ch.AcknowledgeSubscription(nil)
	assert.True(t, ch.Subscribed())

	ch.Disconnect()
	assert.True(t, ch.Subscribed())
	assert.Nil(t, ch.Members())
}
