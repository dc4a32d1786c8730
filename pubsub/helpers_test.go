package pubsub

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func quietLogger() *logrus.Entry {
	log, _ := test.NewNullLogger()
	return logrus.NewEntry(log)
}

func debugLogger() (*logrus.Entry, *test.Hook) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	return logrus.NewEntry(log), hook
}

type recordingConn struct {
	mu       sync.Mutex
	socketID string
	sent     []Event
	err      error
}

func (r *recordingConn) SocketID() string {
	return r.socketID
}

func (r *recordingConn) Send(ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, ev)
	return nil
}

func (r *recordingConn) events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.sent...)
}

// stubAuthorizer answers every request synchronously.
type stubAuthorizer struct {
	mu    sync.Mutex
	calls []string
	data  AuthData
	err   error
}

func (s *stubAuthorizer) Authorize(conn Connection, channel string, fn AuthCallback) {
	s.mu.Lock()
	s.calls = append(s.calls, conn.SocketID()+"/"+channel)
	data, err := s.data, s.err
	s.mu.Unlock()
	fn(data, err)
}

func newTestFactory(authorizer Authorizer) *Factory {
	return NewFactory(Config{Logger: quietLogger()}, authorizer)
}

// pipeTransport is the client side of an in-memory connection; the test
// plays the server through toClient and written.
type pipeTransport struct {
	toClient chan *Event
	written  chan *Event
	once     sync.Once
	closeCh  chan struct{}
}

func newPipeTransport() *pipeTransport {
	return &pipeTransport{
		toClient: make(chan *Event, 16),
		written:  make(chan *Event, 16),
		closeCh:  make(chan struct{}),
	}
}

func (p *pipeTransport) Read() (*Event, error) {
	select {
	case <-p.closeCh:
		return nil, io.EOF
	case ev, ok := <-p.toClient:
		if !ok {
			return nil, errors.New("connection reset")
		}
		return ev, nil
	}
}

func (p *pipeTransport) Write(ev *Event, _ time.Duration) error {
	select {
	case <-p.closeCh:
		return errors.New("transport closed")
	default:
	}
	p.written <- ev
	return nil
}

func (p *pipeTransport) Close() error {
	p.once.Do(func() { close(p.closeCh) })
	return nil
}
