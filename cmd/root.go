package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/THPTUHA/pushchan/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	configFile string
	conf       = config.Default()
	v          = viper.New()
)

var pushchanCmd = &cobra.Command{
	Use:   "pushchan",
	Short: "Channel client and authorization endpoint for Pusher style servers",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := v.BindPFlags(cmd.Flags()); err != nil {
			return err
		}
		applyOverrides(v, conf)
		initLogging(conf.LogLevel)
		return nil
	},
}

func Execute() {
	if err := pushchanCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	pushchanCmd.PersistentFlags().StringVar(&configFile, "file", "pushchan.yaml", "Config file")
	pushchanCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	pushchanCmd.PersistentFlags().String("log-format", "", "Log format: text or json")
}

// initConfig loads the config file. PUSHCHAN_* environment variables and the
// running command's flags are applied over it before the command runs.
func initConfig() {
	loaded, err := config.Get(configFile)
	switch {
	case err == nil:
		conf = loaded
	case errors.Is(err, fs.ErrNotExist) && !pushchanCmd.PersistentFlags().Changed("file"):
		conf = config.Default()
	default:
		log.Fatal().Err(err).Str("file", configFile).Msg("cannot load config")
	}

	v.SetEnvPrefix("PUSHCHAN")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
}

func initLogging(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

func clientFlagSet() *flag.FlagSet {
	cmdFlags := flag.NewFlagSet("client flagset", flag.ContinueOnError)
	cmdFlags.String("url", "", "WebSocket endpoint, overrides host and key")
	cmdFlags.String("key", "", "Application key")
	cmdFlags.String("host", "", "Server host")
	cmdFlags.StringSlice("channel", nil, "Channel to subscribe, repeatable")
	cmdFlags.String("auth-endpoint", "", "Authorization endpoint for private and presence channels")
	cmdFlags.String("auth-transport", "", "Authorization transport: ajax or jsonp")
	cmdFlags.StringToString("auth-param", nil, "Extra authorization parameter, key=value")
	cmdFlags.String("nats-url", "", "Use a NATS transport instead of WebSocket")
	return cmdFlags
}

func authServerFlagSet() *flag.FlagSet {
	cmdFlags := flag.NewFlagSet("authserver flagset", flag.ContinueOnError)
	cmdFlags.String("listen", "", "Address to listen on")
	cmdFlags.String("secret", "", "Secret used to sign channel tokens")
	cmdFlags.String("path", "", "Endpoint path")
	return cmdFlags
}

// applyOverrides copies every key set by flag or environment over c.
func applyOverrides(v *viper.Viper, c *config.Configs) {
	str := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	str("log-level", &c.LogLevel)
	str("log-format", &c.LogFormat)
	str("url", &c.Client.URL)
	str("key", &c.Client.Key)
	str("host", &c.Client.Host)
	str("auth-endpoint", &c.Auth.Endpoint)
	str("auth-transport", &c.Auth.Transport)
	str("nats-url", &c.Nats.URL)
	str("listen", &c.AuthServer.Listen)
	str("secret", &c.AuthServer.Secret)
	str("path", &c.AuthServer.Path)

	if v.IsSet("channel") {
		c.Client.Channels = v.GetStringSlice("channel")
	}
	if v.IsSet("auth-param") {
		params := v.GetStringMapString("auth-param")
		if c.Auth.Params == nil {
			c.Auth.Params = make(map[string]string, len(params))
		}
		for k, val := range params {
			c.Auth.Params[k] = val
		}
	}
}
