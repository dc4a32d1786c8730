package pubsub

import (
	"strings"

	"github.com/THPTUHA/pushchan/pkg/logger"
	"github.com/sirupsen/logrus"
)

// Factory builds channels, picking each channel's kind from its name.
type Factory struct {
	privatePrefix  string
	presencePrefix string
	authorizer     Authorizer
	logger         *logrus.Entry
}

func NewFactory(config Config, authorizer Authorizer) *Factory {
	config = config.withDefaults()
	log := config.Logger
	if log == nil {
		log = logger.InitLogger("info", "pushchan")
	}
	return &Factory{
		privatePrefix:  config.PrivatePrefix,
		presencePrefix: config.PresencePrefix,
		authorizer:     authorizer,
		logger:         log,
	}
}

// KindOf reports the kind a channel with this name gets. Presence is checked
// first so a presence prefix that extends the private one still wins.
func (f *Factory) KindOf(name string) ChannelKind {
	switch {
	case strings.HasPrefix(name, f.presencePrefix):
		return Presence
	case strings.HasPrefix(name, f.privatePrefix):
		return Private
	default:
		return Public
	}
}

// Create builds a channel bound to conn and runs its init hook once the kind
// is settled.
func (f *Factory) Create(name string, conn Connection) *Channel {
	kind := f.KindOf(name)
	var authorizer Authorizer
	if kind.private() {
		authorizer = f.authorizer
	}
	c := newChannel(name, kind, conn, authorizer, f.logger)
	c.init()
	return c
}

func (f *Factory) newGlobalChannel(conn Connection) *Channel {
	c := newChannel("", Public, conn, nil, f.logger)
	c.global = true
	return c
}
