package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/filedrop/internal/flagx"
)

// parseFlags populates selected client Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-s string   server base URL (e.g., "http://localhost:8080")
//	-l string   default share duration (e.g., "1hour", "3day", "never")
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-s", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.ServerEndpointAddr, "s", config.ServerEndpointAddr, "server base URL")
	fs.StringVar(&config.Duration, "l", config.Duration, "default share duration")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
