package logger

import (
	"bytes"
	"encoding/json"
	"runtime"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLevelAndNode(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: "debug", Node: "channels", Out: &buf})

	assert.Equal(t, logrus.DebugLevel, log.Logger.Level)
	assert.Equal(t, "channels", log.Data["node"])

	log.Debug("hello")
	assert.Contains(t, buf.String(), "hello")
	assert.Contains(t, buf.String(), "node=channels")
}

func TestNewBadLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: "loud", Node: "x", Out: &buf})
	assert.Equal(t, logrus.InfoLevel, log.Logger.Level)

	log.Debug("hidden")
	assert.NotContains(t, buf.String(), "hidden")
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: "info", Node: "auth", Format: FormatJSON, Out: &buf})
	log.WithField("channel", "private-a").Info("authorized")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "authorized", line["msg"])
	assert.Equal(t, "auth", line["node"])
	assert.Equal(t, "private-a", line["channel"])
	assert.Contains(t, line["file"], "logger_test.go:")
}

func TestPrettyCaller(t *testing.T) {
	fn, file := prettyCaller(&runtime.Frame{
		Function: "github.com/THPTUHA/pushchan/pubsub.(*Client).handle",
		File:     "/home/u/go/pkg/mod/github.com/THPTUHA/pushchan/pubsub/client.go",
		Line:     42,
	})
	assert.Equal(t, "pubsub.(*Client).handle()", fn)
	assert.Equal(t, "pubsub/client.go:42", file)

	_, file = prettyCaller(&runtime.Frame{File: "/tmp/build/main.go", Line: 7})
	assert.Equal(t, "main.go:7", file)
}
