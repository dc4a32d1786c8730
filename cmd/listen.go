package cmd

import (
	"context"
	"errors"

	"github.com/THPTUHA/pushchan/pubsub"
	"github.com/oklog/run"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var listenCmd = &cobra.Command{
	Use:   "listen [channel...]",
	Short: "Subscribe to channels and print their events",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listenRun(args...)
	},
}

func init() {
	pushchanCmd.AddCommand(listenCmd)
	listenCmd.Flags().AddFlagSet(clientFlagSet())
}

func listenRun(args ...string) error {
	channels := append(append([]string{}, conf.Client.Channels...), args...)
	if len(channels) == 0 {
		return errors.New("no channel to listen on")
	}

	client, err := newClient(conf)
	if err != nil {
		return err
	}

	lost := make(chan error, 1)
	client.OnDisconnected(func(ev pubsub.DisconnectedEvent) {
		if ev.Err == nil {
			return
		}
		select {
		case lost <- ev.Err:
		default:
		}
	})

	for _, name := range channels {
		name := name
		ch := client.Subscribe(name)
		ch.BindAll(func(event string, data any) {
			log.Info().Str("channel", name).Str("event", event).Interface("data", data).Send()
		})
		ch.Bind(pubsub.EventSubscriptionError, func(data any) {
			log.Error().Str("channel", name).Interface("err", data).Msg("Subscription failed")
		})
		if ch.IsPresence() {
			ch.Bind(pubsub.EventSubscriptionSucceeded, func(data any) {
				if members, ok := data.(*pubsub.Members); ok {
					log.Info().Str("channel", name).Int("members", members.Count()).Msg("Joined")
				}
			})
		}
	}

	var g run.Group
	{
		ctx, cancel := context.WithCancel(context.Background())
		g.Add(func() error {
			if err := client.Connect(ctx); err != nil {
				return err
			}
			select {
			case <-ctx.Done():
				return nil
			case err := <-lost:
				return err
			}
		}, func(error) {
			cancel()
			client.Close()
		})
	}
	{
		g.Add(signalActor())
	}
	return g.Run()
}
