package cmd

import (
	"fmt"
	"strings"

	"github.com/THPTUHA/pushchan/config"
	"github.com/THPTUHA/pushchan/pubsub"
	"github.com/rs/zerolog/log"
)

// newClient validates c before building the client, which panics on a bad
// endpoint or auth transport.
func newClient(c *config.Configs) (*pubsub.Client, error) {
	endpoint, err := c.Endpoint()
	if err != nil {
		return nil, err
	}
	clientConfig := c.ClientConfig()
	if clientConfig.Dial == nil && !strings.HasPrefix(endpoint, "ws") {
		return nil, pubsub.ConfigurationError{Err: fmt.Errorf("unsupported connection endpoint: %s", endpoint)}
	}
	switch c.Auth.Transport {
	case "", pubsub.AuthTransportAjax, pubsub.AuthTransportJSONP:
	default:
		return nil, pubsub.ConfigurationError{Err: fmt.Errorf("unknown auth transport %q", c.Auth.Transport)}
	}
	clientConfig.Logger = c.Logger()

	client := pubsub.NewClient(endpoint, clientConfig)
	client.OnConnected(func(ev pubsub.ConnectedEvent) {
		log.Info().Str("socket_id", ev.SocketID).Msg("Connected")
	})
	client.OnError(func(ev pubsub.ErrorEvent) {
		log.Error().Err(ev.Error).Send()
	})
	return client, nil
}
