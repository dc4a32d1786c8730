package pubsub

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/THPTUHA/pushchan/pkg/logger"
	"github.com/google/uuid"
	"github.com/segmentio/encoding/json"
	"github.com/sirupsen/logrus"
)

// JSONPAuthorizer fetches an authorization script of the form
// `<callback>(<json>);` and resolves the request's callback with the payload.
// Each call registers its own callback id, removed once resolved. A script
// invoking any other callback fails the request.
type JSONPAuthorizer struct {
	config AuthConfig
	logger *logrus.Entry

	mu      sync.Mutex
	pending map[string]pendingAuth
}

type pendingAuth struct {
	channel string
	fn      AuthCallback
}

func NewJSONPAuthorizer(config AuthConfig, log *logrus.Entry) *JSONPAuthorizer {
	config = config.withDefaults()
	if log == nil {
		log = logger.InitLogger("info", "pushchan")
	}
	return &JSONPAuthorizer{
		config:  config,
		logger:  log.WithField("authorizer", AuthTransportJSONP),
		pending: make(map[string]pendingAuth),
	}
}

func (j *JSONPAuthorizer) Authorize(conn Connection, channel string, fn AuthCallback) {
	id := "pushchan_auth_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	j.mu.Lock()
	j.pending[id] = pendingAuth{channel: channel, fn: fn}
	j.mu.Unlock()

	scriptURL, err := j.scriptURL(id, conn.SocketID(), channel)
	if err != nil {
		j.fail(id, AuthError{Channel: channel, Status: http.StatusBadRequest, Err: err})
		return
	}
	go j.load(id, channel, scriptURL)
}

func (j *JSONPAuthorizer) scriptURL(id, socketID, channel string) (string, error) {
	u, err := url.Parse(j.config.Endpoint)
	if err != nil {
		return "", err
	}
	q := u.Query()
	for k, v := range j.config.Params {
		q.Set(k, v)
	}
	q.Set("callback", id)
	q.Set("connection_id", socketID)
	q.Set("channel_name", channel)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (j *JSONPAuthorizer) load(id, channel, scriptURL string) {
	ctx, cancel := context.WithTimeout(context.Background(), j.config.Timeout)
	defer cancel()

	var data AuthData
	err := retryAuth(ctx, j.config, func(ctx context.Context) error {
		script, err := j.fetch(ctx, channel, scriptURL)
		if err != nil {
			return err
		}
		data, err = j.evaluate(id, channel, script)
		return err
	})
	if err != nil {
		j.logger.WithError(err).WithField("channel", channel).Warn("Couldn't get auth info from your webapp")
		j.fail(id, err)
		return
	}
	j.Fulfill(id, data)
}

func (j *JSONPAuthorizer) fetch(ctx context.Context, channel, scriptURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, scriptURL, nil)
	if err != nil {
		return nil, AuthError{Channel: channel, Status: http.StatusBadRequest, Err: err}
	}
	for k, vs := range j.config.Headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := j.config.HTTPClient.Do(req)
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
	return body, nil
}

// evaluate runs the single callback invocation a JSONP script consists of.
// The script must invoke id, the callback registered for this request.
func (j *JSONPAuthorizer) evaluate(id, channel string, script []byte) (AuthData, error) {
	name, payload, err := parseJSONP(script)
	if err != nil {
		return nil, AuthError{Channel: channel, Status: http.StatusUnprocessableEntity, Err: err}
	}
	if name != id {
		j.logger.WithFields(logrus.Fields{
			"channel":  channel,
			"callback": name,
		}).Debug("auth script invoked another callback")
		return nil, AuthError{Channel: channel, Status: http.StatusUnprocessableEntity, Err: ErrNoAuthCallback}
	}
	var data AuthData
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, AuthError{Channel: channel, Status: http.StatusUnprocessableEntity, Err: fmt.Errorf("decode auth script payload: %w", err)}
	}
	return data, nil
}

// Fulfill resolves the pending callback id with data. It reports false when
// no such callback is pending.
func (j *JSONPAuthorizer) Fulfill(id string, data AuthData) bool {
	p, ok := j.take(id)
	if !ok {
		return false
	}
	p.fn(data, nil)
	return true
}

func (j *JSONPAuthorizer) fail(id string, err error) {
	if p, ok := j.take(id); ok {
		p.fn(nil, err)
	}
}

func (j *JSONPAuthorizer) take(id string) (pendingAuth, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	p, ok := j.pending[id]
	if ok {
		delete(j.pending, id)
	}
	return p, ok
}

// Pending is the number of callbacks waiting for their script.
func (j *JSONPAuthorizer) Pending() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.pending)
}

func parseJSONP(script []byte) (string, []byte, error) {
	s := bytes.TrimSpace(script)
	s = bytes.TrimSuffix(s, []byte(";"))
	open := bytes.IndexByte(s, '(')
	if open <= 0 || s[len(s)-1] != ')' {
		return "", nil, errors.New("auth script is not a callback invocation")
	}
	name := string(bytes.TrimSpace(s[:open]))
	if strings.ContainsAny(name, " \t\n;") {
		return "", nil, fmt.Errorf("bad callback name %q", name)
	}
	return name, s[open+1 : len(s)-1], nil
}
