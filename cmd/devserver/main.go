package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/groupshare/internal/devserver"
	"github.com/dmitrijs2005/groupshare/internal/logging"
)

func main() {

	cfg, err := devserver.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("%v", err)
	}

	logger := logging.New(os.Stdout, logging.ParseLevel(cfg.LogLevel))
	app := devserver.NewApp(cfg, logger)

	if err := app.Run(context.Background()); err != nil {
		log.Printf("%v", err)
	}

}
