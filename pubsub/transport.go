package pubsub

import (
	"time"
)

// Transport is an established bidirectional event stream. Read blocks until
// the next event arrives and returns an error once the stream is gone.
type Transport interface {
	Read() (*Event, error)
	Write(ev *Event, timeout time.Duration) error
	Close() error
}
