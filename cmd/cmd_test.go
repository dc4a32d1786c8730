package cmd

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/THPTUHA/pushchan/config"
	"github.com/THPTUHA/pushchan/pubsub"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyOverridesFromFlags(t *testing.T) {
	fs := clientFlagSet()
	require.NoError(t, fs.Parse([]string{
		"--url", "ws://127.0.0.1:6001/app/k",
		"--channel", "room1",
		"--channel", "presence-lobby",
		"--auth-param", "user_id=u1",
	}))
	v := viper.New()
	require.NoError(t, v.BindPFlags(fs))

	c := config.Default()
	c.Client.Key = "from-file"
	c.Auth.Params = map[string]string{"team": "a"}
	applyOverrides(v, c)

	assert.Equal(t, "ws://127.0.0.1:6001/app/k", c.Client.URL)
	assert.Equal(t, "from-file", c.Client.Key)
	assert.Equal(t, []string{"room1", "presence-lobby"}, c.Client.Channels)
	assert.Equal(t, map[string]string{"team": "a", "user_id": "u1"}, c.Auth.Params)
	assert.Equal(t, pubsub.AuthTransportAjax, c.Auth.Transport)
}

func TestApplyOverridesFromEnv(t *testing.T) {
	t.Setenv("PUSHCHAN_AUTH_ENDPOINT", "http://localhost/auth")
	t.Setenv("PUSHCHAN_SECRET", "s3cret")

	v := viper.New()
	v.SetEnvPrefix("PUSHCHAN")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	c := config.Default()
	applyOverrides(v, c)
	assert.Equal(t, "http://localhost/auth", c.Auth.Endpoint)
	assert.Equal(t, "s3cret", c.AuthServer.Secret)
	assert.Equal(t, config.DefaultAuthListen, c.AuthServer.Listen)
}

func TestParseTriggerArgs(t *testing.T) {
	payload, err := parseTriggerArgs("client-typing", `{"on":true}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"on": true}, payload)

	_, err = parseTriggerArgs("typing", `{}`)
	assert.Error(t, err)

	_, err = parseTriggerArgs("client-typing", `{`)
	assert.Error(t, err)
}

func TestNewClientValidates(t *testing.T) {
	c := config.Default()
	_, err := newClient(c)
	assert.Error(t, err)

	c.Client.URL = "http://127.0.0.1"
	_, err = newClient(c)
	assert.Error(t, err)

	c.Client.URL = "ws://127.0.0.1"
	c.Auth.Transport = "bogus"
	_, err = newClient(c)
	var cfgErr pubsub.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)

	c.Auth.Transport = pubsub.AuthTransportJSONP
	client, err := newClient(c)
	require.NoError(t, err)
	client.Close()
}

func TestAuthRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	saved := conf
	defer func() { conf = saved }()

	conf = config.Default()
	conf.LogLevel = "error"
	_, err := newAuthRouter()
	assert.Error(t, err)

	conf.AuthServer.Secret = "s3cret"
	router, err := newAuthRouter()
	require.NoError(t, err)
	srv := httptest.NewServer(router)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	form := url.Values{"connection_id": {"1.1"}, "channel_name": {"private-room"}}
	resp, err = http.PostForm(srv.URL+"/pusher/auth", form)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
