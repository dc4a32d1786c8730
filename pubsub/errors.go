package pubsub

import (
	"errors"
	"fmt"
)

var (
	ErrClientClosed   = errors.New("client closed")
	ErrNotConnected   = errors.New("client not connected")
	ErrAuthTimeout    = errors.New("authorization timed out")
	ErrNoAuthCallback = errors.New("authorization script did not invoke its callback")
)

type TransportError struct {
	Err error
}

func (t TransportError) Error() string {
	return fmt.Sprintf("transport error: %v", t.Err)
}

func (t TransportError) Unwrap() error {
	return t.Err
}

type ConfigurationError struct {
	Err error
}

func (r ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %v", r.Err)
}

func (r ConfigurationError) Unwrap() error {
	return r.Err
}

// AuthError is returned when the authorization endpoint could not be reached
// or refused the channel. Status is zero for transport failures.
type AuthError struct {
	Channel string
	Status  int
	Err     error
}

func (a AuthError) Error() string {
	if a.Status != 0 {
		return fmt.Sprintf("auth error for %s: status %d: %v", a.Channel, a.Status, a.Err)
	}
	return fmt.Sprintf("auth error for %s: %v", a.Channel, a.Err)
}

func (a AuthError) Unwrap() error {
	return a.Err
}

// Temporary reports whether retrying the request may succeed.
func (a AuthError) Temporary() bool {
	return a.Status == 0 || a.Status >= 500
}
