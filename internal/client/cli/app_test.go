package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/filedrop/internal/client/config"
)

func newTestApp() (*App, *bytes.Buffer) {
	cfg := &config.Config{}
	cfg.LoadDefaults()

	out := &bytes.Buffer{}
	return &App{config: cfg, uuid: "test-client", out: out}, out
}

func TestRun_NoArgsPrintsUsage(t *testing.T) {
	app, out := newTestApp()

	err := app.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Usage:")
}

func TestRun_UnknownCommand(t *testing.T) {
	app, _ := newTestApp()

	err := app.Run(context.Background(), []string{"frobnicate"})
	assert.ErrorContains(t, err, "unknown command")
}

func TestShare_MissingFileArg(t *testing.T) {
	app, _ := newTestApp()

	err := app.Share(context.Background(), nil)
	assert.ErrorContains(t, err, "usage: share")
}

func TestFetch_MissingCodeArg(t *testing.T) {
	app, _ := newTestApp()

	err := app.Fetch(context.Background(), nil)
	assert.ErrorContains(t, err, "usage: fetch")
}

func TestDetectMimeType(t *testing.T) {
	assert.Contains(t, detectMimeType("notes.txt", nil), "text/plain")
	assert.Contains(t, detectMimeType("image.png", nil), "image/png")

	// no extension: sniff the content
	assert.Contains(t, detectMimeType("README", []byte("plain words")), "text/plain")
}
