package config

import (
	"fmt"
	"os"
	"time"

	"github.com/THPTUHA/pushchan/pkg/logger"
	"github.com/THPTUHA/pushchan/pubsub"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

var (
	DefaultHost       = "ws.pusherapp.com"
	DefaultAuthListen = ":8080"
	DefaultTokenTTL   = 10 * time.Minute
)

type Configs struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	Node      string `yaml:"node"`

	Client struct {
		URL            string        `yaml:"url"`
		Host           string        `yaml:"host"`
		Key            string        `yaml:"key"`
		Secure         bool          `yaml:"secure"`
		PrivatePrefix  string        `yaml:"private_prefix"`
		PresencePrefix string        `yaml:"presence_prefix"`
		WriteTimeout   time.Duration `yaml:"write_timeout"`
		Channels       []string      `yaml:"channels"`
	}
	Auth struct {
		Transport  string            `yaml:"transport"`
		Endpoint   string            `yaml:"endpoint"`
		Headers    map[string]string `yaml:"headers"`
		Params     map[string]string `yaml:"params"`
		Timeout    time.Duration     `yaml:"timeout"`
		MaxRetries int               `yaml:"max_retries"`
		PoolSize   int               `yaml:"pool_size"`
	}
	AuthServer struct {
		Listen   string        `yaml:"listen"`
		Path     string        `yaml:"path"`
		Secret   string        `yaml:"secret"`
		TokenTTL time.Duration `yaml:"token_ttl"`
	}
	Nats struct {
		URL           string        `yaml:"url"`
		Inbound       string        `yaml:"inbound"`
		Outbound      string        `yaml:"outbound"`
		Name          string        `yaml:"name"`
		ReconnectWait time.Duration `yaml:"reconnect_wait"`
		MaxReconnects int           `yaml:"max_reconnects"`
	}
}

func Default() *Configs {
	c := &Configs{LogLevel: "info", LogFormat: logger.FormatText, Node: "pushchan"}
	c.Client.Host = DefaultHost
	c.Client.Secure = true
	c.Auth.Transport = pubsub.AuthTransportAjax
	c.AuthServer.Listen = DefaultAuthListen
	c.AuthServer.TokenTTL = DefaultTokenTTL
	c.Nats.Inbound = "pushchan.in"
	c.Nats.Outbound = "pushchan.out"
	return c
}

// Get reads a YAML file over the defaults. A missing file is an error.
func Get(f string) (*Configs, error) {
	config := Default()
	file, err := os.ReadFile(f)
	if err != nil {
		return nil, err
	}
	if err := GetYaml(file, config); err != nil {
		return nil, fmt.Errorf("parse %s: %w", f, err)
	}
	return config, nil
}

func GetYaml(f []byte, s interface{}) error {
	return yaml.Unmarshal(f, s)
}

func (c *Configs) Logger() *logrus.Entry {
	return logger.New(logger.Options{Level: c.LogLevel, Node: c.Node, Format: c.LogFormat})
}

// Endpoint is the WebSocket URL the client dials: Client.URL when set,
// otherwise the application URL built from host and key.
func (c *Configs) Endpoint() (string, error) {
	if c.Client.URL != "" {
		return c.Client.URL, nil
	}
	if c.Client.Key == "" {
		return "", pubsub.ConfigurationError{Err: fmt.Errorf("either client url or client key is required")}
	}
	return pubsub.AppURL(c.Client.Host, c.Client.Key, c.Client.Secure), nil
}

// ClientConfig maps the file settings onto the client configuration.
func (c *Configs) ClientConfig() pubsub.Config {
	cfg := pubsub.Config{
		PrivatePrefix:  c.Client.PrivatePrefix,
		PresencePrefix: c.Client.PresencePrefix,
		WriteTimeout:   c.Client.WriteTimeout,
		Auth: pubsub.AuthConfig{
			Transport:  c.Auth.Transport,
			Endpoint:   c.Auth.Endpoint,
			Params:     c.Auth.Params,
			Timeout:    c.Auth.Timeout,
			MaxRetries: c.Auth.MaxRetries,
			PoolSize:   c.Auth.PoolSize,
		},
	}
	if len(c.Auth.Headers) > 0 {
		cfg.Auth.Headers = make(map[string][]string, len(c.Auth.Headers))
		for k, v := range c.Auth.Headers {
			cfg.Auth.Headers[k] = []string{v}
		}
	}
	if c.Nats.URL != "" {
		cfg.Dial = pubsub.NatsDialer(c.Nats.URL, c.Nats.Inbound, c.Nats.Outbound, c.natsOptions()...)
	}
	return cfg
}

func (c *Configs) natsOptions() []nats.Option {
	opts := make([]nats.Option, 0)
	if c.Nats.Name != "" {
		opts = append(opts, nats.Name(c.Nats.Name))
	}
	if c.Nats.MaxReconnects != 0 {
		opts = append(opts, nats.MaxReconnects(c.Nats.MaxReconnects))
	}
	if c.Nats.ReconnectWait != 0 {
		opts = append(opts, nats.ReconnectWait(c.Nats.ReconnectWait))
	}
	return opts
}
