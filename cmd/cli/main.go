package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/filedrop/internal/client/cli"
	"github.com/dmitrijs2005/filedrop/internal/client/config"
	"github.com/dmitrijs2005/filedrop/internal/flagx"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := cli.NewApp(cfg)

	if err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}

	args := flagx.StripArgs(os.Args[1:], []string{"-s", "-l", "-c", "-config"})

	if err := app.Run(ctx, args); err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}

}
