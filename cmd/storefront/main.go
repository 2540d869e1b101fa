package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/storefront/internal/buildinfo"
	"github.com/dmitrijs2005/storefront/internal/client/cli"
	"github.com/dmitrijs2005/storefront/internal/client/config"
	"github.com/dmitrijs2005/storefront/internal/logging"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}

	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := cli.NewApp(ctx, cfg, logger, os.Stdin, os.Stdout)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app.Run(ctx)

	if err := app.Close(context.Background()); err != nil {
		logger.Error(context.Background(), "error closing app", "error", err)
	}
}
