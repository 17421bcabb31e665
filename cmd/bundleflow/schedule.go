package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukex/bundleflow/pkg/schedule"
	cli "github.com/urfave/cli/v3"
)

var errNoWorkflows = errors.New("at least one --workflow-id is required")

func ScheduleCommand() *cli.Command {
	return &cli.Command{
		Name:  "schedule",
		Usage: "Run stored workflows on a cron expression until interrupted",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "cron",
				Usage:    "Cron expression or descriptor (e.g. \"*/5 * * * *\", \"@hourly\")",
				Required: true,
				Sources:  cli.EnvVars("SCHEDULE_CRON"),
			},
			&cli.StringSliceFlag{
				Name:    "workflow-id",
				Usage:   "Stored workflow to run; repeat for several",
				Sources: cli.EnvVars("SCHEDULE_WORKFLOW_IDS"),
			},
			&cli.StringFlag{
				Name:  "timezone",
				Usage: "IANA time zone the expression is evaluated in",
				Value: "UTC",
			},
			databaseURLFlag(),
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			ids := command.StringSlice("workflow-id")
			if len(ids) == 0 {
				return errNoWorkflows
			}

			err := schedule.Validate(command.String("cron"))
			if err != nil {
				return err
			}

			location, err := time.LoadLocation(command.String("timezone"))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			e, err := newEngine(ctx, command)
			if err != nil {
				return err
			}
			defer e.Close(context.WithoutCancel(ctx))

			service, closeService, err := e.workflowService(ctx, command.String("database-url"))
			if err != nil {
				return err
			}
			defer closeService()

			scheduler := schedule.New(func(ctx context.Context, workflowID string) error {
				run, err := service.Run(ctx, workflowID)
				if run != nil {
					e.logger.InfoContext(ctx, "Scheduled run finished",
						"workflow_id", workflowID,
						"run_id", run.ID,
						"failed", run.Failed(),
					)
				}

				return err
			}, e.logger, schedule.WithLocation(location))

			for _, id := range ids {
				_, err := service.FetchByID(ctx, id)
				if err != nil {
					return err
				}

				err = scheduler.Add(id, command.String("cron"))
				if err != nil {
					return err
				}
			}

			scheduler.Start()

			for _, id := range ids {
				next, _ := scheduler.Next(id)
				e.logger.InfoContext(ctx, "Workflow scheduled", "workflow_id", id, "next", next)
			}

			<-ctx.Done()

			return scheduler.Stop(context.WithoutCancel(ctx))
		},
	}
}
