package pubsub

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jpillora/backoff"
	"github.com/sirupsen/logrus"
)

const (
	AuthTransportAjax  = "ajax"
	AuthTransportJSONP = "jsonp"
)

// AuthData is the endpoint's response, forwarded as is in the subscribe
// request.
type AuthData map[string]any

// Auth is the signature the server checks.
func (d AuthData) Auth() string {
	s, _ := d["auth"].(string)
	return s
}

func (d AuthData) clone() AuthData {
	if d == nil {
		return nil
	}
	out := make(AuthData, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// ChannelData is the presence user record, a JSON encoded string.
func (d AuthData) ChannelData() string {
	s, _ := d["channel_data"].(string)
	return s
}

// AuthCallback is called exactly once per Authorize call, with either the
// endpoint's data or the reason authorization failed.
type AuthCallback func(data AuthData, err error)

// Authorizer performs the authorization handshake for one channel.
// Implementations must be safe for concurrent calls.
type Authorizer interface {
	Authorize(conn Connection, channel string, fn AuthCallback)
}

// NewAuthorizer returns the strategy named by config.Transport.
func NewAuthorizer(config AuthConfig, log *logrus.Entry) (Authorizer, error) {
	config = config.withDefaults()
	switch config.Transport {
	case AuthTransportAjax:
		return NewAjaxAuthorizer(config, log)
	case AuthTransportJSONP:
		return NewJSONPAuthorizer(config, log), nil
	default:
		return nil, ConfigurationError{Err: fmt.Errorf("unknown auth transport %q", config.Transport)}
	}
}

// retryAuth runs attempt until it succeeds, fails permanently, the retry
// budget is spent or ctx is done.
func retryAuth(ctx context.Context, config AuthConfig, attempt func(ctx context.Context) error) error {
	b := &backoff.Backoff{
		Min:    config.MinBackoff,
		Max:    config.MaxBackoff,
		Factor: 2,
		Jitter: true,
	}
	for {
		err := attempt(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ErrAuthTimeout
		}
		var authErr AuthError
		if errors.As(err, &authErr) && !authErr.Temporary() {
			return err
		}
		if int(b.Attempt()) >= config.MaxRetries {
			return err
		}
		select {
		case <-ctx.Done():
			return ErrAuthTimeout
		case <-time.After(b.Duration()):
		}
	}
}
