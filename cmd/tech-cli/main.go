package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fieldtech/internal/auth"
	"fieldtech/internal/cli"
	"fieldtech/internal/client"
	"fieldtech/internal/config"
	"fieldtech/internal/logger"
	"fieldtech/internal/telemetry"
)

func main() {
	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown := telemetry.Setup("tech-cli", appLogger)
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			appLogger.Warn().Err(err).Msg("failed to flush traces")
		}
	}()

	session, err := auth.NewSession(cfg.Token)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to create session")
	}

	recent, err := cli.OpenRecentStore(cfg.RecentFile)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to open recent tickets")
	}

	app := cli.New(cli.Options{
		API:        client.NewTicketClient(cfg, session, appLogger),
		Session:    session,
		StorageURL: cfg.StorageURL,
		Device:     cfg.Device,
		Recent:     recent,
		Out:        os.Stdout,
		Log:        appLogger,
	})

	if err := app.Run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
