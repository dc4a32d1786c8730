package pubsub

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/THPTUHA/pushchan/pkg/logger"
	"github.com/panjf2000/ants"
	"github.com/segmentio/encoding/json"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// AjaxAuthorizer posts connection_id and channel_name to the endpoint and
// decodes the JSON reply.
type AjaxAuthorizer struct {
	config AuthConfig
	pool   *ants.Pool
	// group coalesces concurrent requests for the same socket and channel.
	group  singleflight.Group
	logger *logrus.Entry
}

func NewAjaxAuthorizer(config AuthConfig, log *logrus.Entry) (*AjaxAuthorizer, error) {
	config = config.withDefaults()
	if log == nil {
		log = logger.InitLogger("info", "pushchan")
	}
	pool, err := ants.NewPool(config.PoolSize)
	if err != nil {
		return nil, fmt.Errorf("auth pool: %w", err)
	}
	return &AjaxAuthorizer{
		config: config,
		pool:   pool,
		logger: log.WithField("authorizer", AuthTransportAjax),
	}, nil
}

func (a *AjaxAuthorizer) Authorize(conn Connection, channel string, fn AuthCallback) {
	socketID := conn.SocketID()
	task := func() {
		v, err, _ := a.group.Do(socketID+"/"+channel, func() (any, error) {
			ctx, cancel := context.WithTimeout(context.Background(), a.config.Timeout)
			defer cancel()

			var data AuthData
			err := retryAuth(ctx, a.config, func(ctx context.Context) error {
				var err error
				data, err = a.request(ctx, socketID, channel)
				return err
			})
			return data, err
		})
		if err != nil {
			a.logger.WithError(err).WithField("channel", channel).Warn("Couldn't get auth info from your webapp")
			fn(nil, err)
			return
		}
		fn(v.(AuthData).clone(), nil)
	}
	// Submit blocks while every worker is busy; Authorize must not.
	go func() {
		if err := a.pool.Submit(task); err != nil {
			a.logger.WithError(err).WithField("channel", channel).Error("cannot schedule authorization")
			fn(nil, AuthError{Channel: channel, Err: err})
		}
	}()
}

func (a *AjaxAuthorizer) request(ctx context.Context, socketID, channel string) (AuthData, error) {
	form := url.Values{}
	for k, v := range a.config.Params {
		form.Set(k, v)
	}
	form.Set("connection_id", socketID)
	form.Set("channel_name", channel)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, AuthError{Channel: channel, Status: http.StatusBadRequest, Err: err}
	}
	for k, vs := range a.config.Headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.config.HTTPClient.Do(req)
	if err != nil {
		return nil, AuthError{Channel: channel, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, AuthError{Channel: channel, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, AuthError{Channel: channel, Status: resp.StatusCode, Err: fmt.Errorf("%s", strings.TrimSpace(string(body)))}
	}

	var data AuthData
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, AuthError{Channel: channel, Status: resp.StatusCode, Err: fmt.Errorf("decode auth response: %w", err)}
	}
	return data, nil
}

// Close stops the worker pool. Pending requests still complete.
func (a *AjaxAuthorizer) Close() error {
	a.pool.Release()
	return nil
}
