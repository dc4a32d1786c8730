package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/THPTUHA/pushchan/server/authendpoint"
	"github.com/gin-gonic/gin"
	"github.com/oklog/run"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var authserverCmd = &cobra.Command{
	Use:   "authserver",
	Short: "Serve the channel authorization endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		return authserverRun()
	},
}

func init() {
	pushchanCmd.AddCommand(authserverCmd)
	authserverCmd.Flags().AddFlagSet(authServerFlagSet())
}

func newAuthRouter() (*gin.Engine, error) {
	if conf.AuthServer.Secret == "" {
		return nil, errors.New("authserver needs a secret")
	}
	path := conf.AuthServer.Path
	if path == "" {
		path = authendpoint.DefaultPath
	}
	endpoint := authendpoint.New(authendpoint.Config{
		Secret:         conf.AuthServer.Secret,
		TokenTTL:       conf.AuthServer.TokenTTL,
		PrivatePrefix:  conf.Client.PrivatePrefix,
		PresencePrefix: conf.Client.PresencePrefix,
		Logger:         conf.Logger(),
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	endpoint.Register(r, path)
	return r, nil
}

func authserverRun() error {
	router, err := newAuthRouter()
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:    conf.AuthServer.Listen,
		Handler: router,
	}

	var g run.Group
	{
		g.Add(func() error {
			log.Info().Str("listen", srv.Addr).Msg("Starting the server...")
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		}, func(error) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				log.Error().Err(err).Send()
			}
		})
	}
	{
		g.Add(signalActor())
	}
	return g.Run()
}
