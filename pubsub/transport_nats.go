package pubsub

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// NatsTransport carries events over a pair of NATS subjects: events are read
// from inbound and written to outbound.
type NatsTransport struct {
	nc       *nats.Conn
	ownsConn bool
	sub      *nats.Subscription
	msgCh    chan *nats.Msg
	outbound string
	// lost is closed when an owned connection closes for good.
	lost chan struct{}

	closeOnce sync.Once
	closeCh   chan struct{}
}

// DialNats connects to url and returns a transport that owns the connection.
func DialNats(url, inbound, outbound string, opts ...nats.Option) (*NatsTransport, error) {
	lost := make(chan struct{})
	var lostOnce sync.Once
	opts = append(opts, nats.ClosedHandler(func(*nats.Conn) {
		lostOnce.Do(func() { close(lost) })
	}))
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	t, err := NewNatsTransport(nc, inbound, outbound)
	if err != nil {
		nc.Close()
		return nil, err
	}
	t.ownsConn = true
	t.lost = lost
	return t, nil
}

// NewNatsTransport uses an existing connection, which Close leaves open.
func NewNatsTransport(nc *nats.Conn, inbound, outbound string) (*NatsTransport, error) {
	if inbound == "" || outbound == "" {
		return nil, errors.New("nats transport needs inbound and outbound subjects")
	}
	t := &NatsTransport{
		nc:       nc,
		msgCh:    make(chan *nats.Msg, 64),
		outbound: outbound,
		closeCh:  make(chan struct{}),
	}
	sub, err := nc.ChanSubscribe(inbound, t.msgCh)
	if err != nil {
		return nil, fmt.Errorf("nats subscribe %s: %w", inbound, err)
	}
	t.sub = sub
	return t, nil
}

// NatsDialer returns a DialFunc opening a fresh NATS connection per dial.
func NatsDialer(url, inbound, outbound string, opts ...nats.Option) DialFunc {
	return func(ctx context.Context) (Transport, error) {
		return DialNats(url, inbound, outbound, opts...)
	}
}

func (t *NatsTransport) Read() (*Event, error) {
	select {
	case <-t.closeCh:
		return nil, io.EOF
	case <-t.lost:
		return nil, nats.ErrConnectionClosed
	case msg := <-t.msgCh:
		return decodeEvent(msg.Data)
	}
}

func (t *NatsTransport) Write(ev *Event, timeout time.Duration) error {
	select {
	case <-t.closeCh:
		return errors.New("transport closed")
	default:
	}
	data, err := encodeEvent(ev)
	if err != nil {
		return err
	}
	if err := t.nc.Publish(t.outbound, data); err != nil {
		return err
	}
	if timeout > 0 {
		return t.nc.FlushTimeout(timeout)
	}
	return nil
}

func (t *NatsTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.closeCh)
		err = t.sub.Unsubscribe()
		if t.ownsConn {
			t.nc.Close()
		}
	})
	return err
}
