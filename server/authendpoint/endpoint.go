// Package authendpoint is a reference implementation of the authorization
// endpoint private and presence channels call before subscribing.
package authendpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/THPTUHA/pushchan/pkg/helper"
	"github.com/THPTUHA/pushchan/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const DefaultPath = "/pusher/auth"

var callbackPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$.]*$`)

type Config struct {
	Secret         string
	TokenTTL       time.Duration
	PrivatePrefix  string
	PresencePrefix string
	Logger         *logrus.Entry
}

// UserResolver identifies the user asking to join a presence channel.
type UserResolver func(c *gin.Context) (userID string, info any, err error)

type Endpoint struct {
	config      Config
	signer      *Signer
	resolveUser UserResolver
	logger      *logrus.Entry
}

type Option func(*Endpoint)

func WithUserResolver(resolver UserResolver) Option {
	return func(e *Endpoint) {
		e.resolveUser = resolver
	}
}

func New(config Config, opts ...Option) *Endpoint {
	if config.TokenTTL == 0 {
		config.TokenTTL = 10 * time.Minute
	}
	if config.PrivatePrefix == "" {
		config.PrivatePrefix = "private-"
	}
	if config.PresencePrefix == "" {
		config.PresencePrefix = "presence-"
	}
	if config.Logger == nil {
		config.Logger = logger.InitLogger("info", "authendpoint")
	}
	e := &Endpoint{
		config:      config,
		signer:      NewSigner(config.Secret, config.TokenTTL),
		resolveUser: ParamUserResolver,
		logger:      config.Logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Endpoint) Signer() *Signer {
	return e.signer
}

// Register serves the endpoint at path: POST for form requests, GET for
// JSONP script requests.
func (e *Endpoint) Register(routes gin.IRoutes, path string) {
	routes.POST(path, e.Authorize)
	routes.GET(path, e.Authorize)
}

func (e *Endpoint) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	e.Register(r, DefaultPath)
	return r
}

func (e *Endpoint) Authorize(c *gin.Context) {
	connectionID := param(c, "connection_id")
	channel := param(c, "channel_name")
	callback := c.Query("callback")

	if callback != "" && !callbackPattern.MatchString(callback) {
		c.JSON(http.StatusBadRequest, gin.H{"err": "invalid callback"})
		return
	}
	if connectionID == "" || channel == "" {
		c.JSON(http.StatusBadRequest, gin.H{"err": "connection_id and channel_name are required"})
		return
	}
	if ok, whyNot := helper.IsChannelName(channel); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"err": fmt.Sprintf("invalid channel name near %q", whyNot)})
		return
	}

	var channelData string
	switch {
	case strings.HasPrefix(channel, e.config.PresencePrefix):
		userID, info, err := e.resolveUser(c)
		if err != nil {
			e.logger.WithError(err).WithField("channel", channel).Warn("presence auth refused")
			c.JSON(http.StatusForbidden, gin.H{"err": err.Error()})
			return
		}
		raw, err := json.Marshal(gin.H{"user_id": userID, "user_info": info})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
			return
		}
		channelData = string(raw)
	case strings.HasPrefix(channel, e.config.PrivatePrefix):
	default:
		c.JSON(http.StatusBadRequest, gin.H{"err": fmt.Sprintf("channel %s does not need authorization", channel)})
		return
	}

	token, err := e.signer.Sign(connectionID, channel, channelData)
	if err != nil {
		e.logger.WithError(err).Error("sign channel token")
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}

	resp := gin.H{"auth": token}
	if channelData != "" {
		resp["channel_data"] = channelData
	}
	e.logger.WithFields(logrus.Fields{
		"channel":       channel,
		"connection_id": connectionID,
	}).Debug("channel authorized")

	if callback == "" {
		c.JSON(http.StatusOK, resp)
		return
	}
	body, err := json.Marshal(resp)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/javascript; charset=utf-8", []byte(fmt.Sprintf("%s(%s);", callback, body)))
}

// ParamUserResolver reads user_id, and optionally a JSON user_info, from the
// request parameters.
func ParamUserResolver(c *gin.Context) (string, any, error) {
	userID := param(c, "user_id")
	if userID == "" {
		return "", nil, errors.New("user_id is required for presence channels")
	}
	var info any
	if raw := param(c, "user_info"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &info); err != nil {
			return "", nil, fmt.Errorf("user_info: %w", err)
		}
	}
	return userID, info, nil
}

func param(c *gin.Context, key string) string {
	if v, ok := c.GetPostForm(key); ok {
		return v
	}
	return c.Query(key)
}
