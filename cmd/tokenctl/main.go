package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/tokenkeeper/internal/cli"
	"github.com/dmitrijs2005/tokenkeeper/internal/config"
	"github.com/dmitrijs2005/tokenkeeper/internal/logging"
	"github.com/dmitrijs2005/tokenkeeper/internal/tokenstore"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, args, err := config.LoadConfig(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		log.Printf("%v", err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	store, err := tokenstore.New(cfg.Connection,
		tokenstore.WithRepositoryOptions(cfg.RepositoryOptions()),
		tokenstore.WithLogger(logger),
	)
	if err != nil {
		log.Printf("%v", err)
		return 2
	}
	defer store.Close()

	app := cli.NewApp(store, cfg.TokenTTL, os.Stdin, os.Stdout)
	switch err := app.Run(ctx, args); {
	case err == nil:
		return 0
	case errors.Is(err, cli.ErrTokenRejected):
		return 1
	case errors.Is(err, cli.ErrUsage):
		log.Printf("%v", err)
		return 2
	default:
		logger.Error(ctx, "command failed", "error", err)
		return 1
	}
}
