package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/THPTUHA/pushchan/pubsub"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/encoding/json"
	"github.com/spf13/cobra"
)

var (
	triggerTimeout time.Duration
	triggerData    string
)

var triggerCmd = &cobra.Command{
	Use:   "trigger <channel> <client-event>",
	Short: "Send a client event on a private or presence channel",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return triggerRun(args[0], args[1])
	},
}

func init() {
	pushchanCmd.AddCommand(triggerCmd)
	triggerCmd.Flags().AddFlagSet(clientFlagSet())
	triggerCmd.Flags().StringVar(&triggerData, "data", "{}", "Event data, JSON")
	triggerCmd.Flags().DurationVar(&triggerTimeout, "timeout", 10*time.Second, "How long to wait for the subscription")
}

func parseTriggerArgs(event, data string) (any, error) {
	if !strings.HasPrefix(event, "client-") {
		return nil, fmt.Errorf("client events must be prefixed with client-: %s", event)
	}
	var payload any
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		return nil, fmt.Errorf("data: %w", err)
	}
	return payload, nil
}

func triggerRun(channel, event string) error {
	payload, err := parseTriggerArgs(event, triggerData)
	if err != nil {
		return err
	}
	client, err := newClient(conf)
	if err != nil {
		return err
	}
	defer client.Close()

	ch := client.Subscribe(channel)
	if !ch.IsPrivate() {
		return fmt.Errorf("client events need a private or presence channel: %s", channel)
	}
	done := make(chan error, 1)
	report := func(err error) {
		select {
		case done <- err:
		default:
		}
	}
	ch.Bind(pubsub.EventSubscriptionSucceeded, func(any) {
		report(nil)
	})
	ch.Bind(pubsub.EventSubscriptionError, func(data any) {
		err, ok := data.(error)
		if !ok {
			err = fmt.Errorf("subscription error: %v", data)
		}
		report(err)
	})

	ctx, cancel := context.WithTimeout(context.Background(), triggerTimeout)
	defer cancel()
	if err := client.Connect(ctx); err != nil {
		return err
	}
	select {
	case err := <-done:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		return errors.New("timed out waiting for subscription")
	}

	ch.Trigger(event, payload)
	log.Info().Str("channel", channel).Str("event", event).Msg("Triggered")
	return nil
}
