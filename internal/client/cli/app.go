// Package cli implements the filedrop command-line client: the share and
// fetch commands, password prompts and transfer progress output.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/filedrop/internal/client/client"
	"github.com/dmitrijs2005/filedrop/internal/client/config"
	"github.com/dmitrijs2005/filedrop/internal/client/identity"
	"github.com/dmitrijs2005/filedrop/internal/client/uploader"
)

type App struct {
	config *config.Config
	client *client.Client
	uuid   string
	out    io.Writer
}

func NewApp(c *config.Config) (*App, error) {
	uuid, err := identity.Load()
	if err != nil {
		return nil, fmt.Errorf("client identity: %w", err)
	}

	return &App{
		config: c,
		client: client.NewClient(c.ServerEndpointAddr),
		uuid:   uuid,
		out:    os.Stdout,
	}, nil
}

// Run dispatches the subcommand named by the first positional argument.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.usage()
		return nil
	}

	switch args[0] {
	case "share":
		return a.Share(ctx, args[1:])
	case "fetch":
		return a.Fetch(ctx, args[1:])
	case "help":
		a.usage()
		return nil
	default:
		a.usage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func (a *App) usage() {
	fmt.Fprintln(a.out, "Usage:")
	fmt.Fprintln(a.out, "  filedrop share [-x] [-e] <file>   share a file (-x encrypt, -e ephemeral)")
	fmt.Fprintln(a.out, "  filedrop fetch [-o file] <code>   fetch a share by its code")
	fmt.Fprintln(a.out, "  filedrop help                     show this message")
	fmt.Fprintln(a.out, "")
	fmt.Fprintln(a.out, "Common flags: -s <server url>, -l <duration>, -c <config file>")
}

func (a *App) newUploader(onProgress func(float64)) *uploader.Uploader {
	return uploader.New(a.client, a.uuid, uploader.Config{
		ChunkSize:      a.config.ChunkSize,
		SuperChunkSize: a.config.SuperChunkSize,
		MaxSize:        a.config.MaxUploadSize,
		OnProgress:     onProgress,
	})
}
