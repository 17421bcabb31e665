package main

import (
	"context"
	"os/signal"
	"syscall"

	cli "github.com/urfave/cli/v3"
)

func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the workflow HTTP API",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			databaseURLFlag(),
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			e, err := newEngine(ctx, command)
			if err != nil {
				return err
			}
			defer e.Close(context.WithoutCancel(ctx))

			e.logger.InfoContext(ctx, "Initializing bundleflow API")

			service, closeService, err := e.workflowService(ctx, command.String("database-url"))
			if err != nil {
				return err
			}
			defer closeService()

			return NewAPI(e.logger, service, e.registry).Start(ctx, command.Int("port"))
		},
	}
}

func databaseURLFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "database-url",
		Usage:   "Workflow store URL (file://, postgres://, redis://)",
		Value:   defaultDatabaseURL,
		Sources: cli.EnvVars("DATABASE_URL"),
	}
}
