package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
)

// signalActor is a run.Group actor that returns on SIGINT or SIGTERM.
func signalActor() (func() error, func(error)) {
	signalCh := make(chan os.Signal, 1)
	closeCh := make(chan struct{})
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	return func() error {
			select {
			case sig := <-signalCh:
				log.Warn().Str("signal", sig.String()).Msg("Shutting down...")
			case <-closeCh:
			}
			return nil
		}, func(error) {
			signal.Stop(signalCh)
			close(closeCh)
		}
}
