package main

import (
	"context"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"
)

const (
	defaultPort        = 9091
	defaultDatabaseURL = "file://./data"
)

func newApp() *cli.Command {
	return &cli.Command{
		Name:                  "bundleflow",
		Usage:                 "Plan and run bundle-based workflow graphs",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "registry-path",
				Usage:   "Module registry document (.json, .yaml); builtin modules are always available",
				Sources: cli.EnvVars("REGISTRY_PATH"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Run event bus (none, gochannel, kafka)",
				Value:   "none",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringSliceFlag{
				Name:    "kafka-brokers",
				Usage:   "Kafka brokers used when --event-bus=kafka",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.DurationFlag{
				Name:    "node-timeout",
				Usage:   "Maximum duration of a single node; 0 disables the bound",
				Sources: cli.EnvVars("NODE_TIMEOUT"),
			},
			&cli.IntFlag{
				Name:    "concurrency",
				Usage:   "Independent nodes executed at once; 1 runs sequentially",
				Value:   1,
				Sources: cli.EnvVars("CONCURRENCY"),
			},
			&cli.BoolFlag{
				Name:    "otel-enabled",
				Usage:   "Export run and node traces over OTLP/HTTP",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
		},
		Commands: []*cli.Command{
			RunCommand(),
			PlanCommand(),
			ValidateCommand(),
			ModulesCommand(),
			ExportCommand(),
			ServeCommand(),
			ScheduleCommand(),
		},
	}
}

func main() {
	err := newApp().Run(context.Background(), os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "bundleflow:", err)
		os.Exit(1)
	}
}
