package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"calendar-time-tracking/app"
	"calendar-time-tracking/cli"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run())
}

func run() int {
	var config app.Config
	if err := envconfig.Process("", &config); err != nil {
		log.Fatal(err)
	}
	if err := config.ResolvePaths(); err != nil {
		log.Fatal(err)
	}
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	logger, cleanupLogger, err := app.InitLogger(&config)
	if err != nil {
		log.Panic(err)
	}
	defer cleanupLogger()
	logger.Debug("initializing",
		zap.String("credentials", config.GoogleCalendar.CredentialsPath),
		zap.String("token", config.GoogleCalendar.TokenPath),
		zap.String("addr", config.Server.Addr),
		zap.Duration("cacheTTL", config.Cache.TTL),
	)
	open := func(ctx context.Context) (cli.Tracker, func(), error) {
		a, cleanup, err := app.InitApp(ctx, logger, &config)
		if err != nil {
			return nil, nil, err
		}
		return a, cleanup, nil
	}
	if err := cli.NewRootCmd(open).ExecuteContext(ctx); err != nil {
		logger.Error("failed to run", zap.Error(err))
		return 1
	}
	return 0
}
