package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dukex/bundleflow/pkg/cmd"
	"github.com/dukex/bundleflow/pkg/export"
	"github.com/dukex/bundleflow/pkg/models"
	"github.com/dukex/bundleflow/pkg/planner"
	"github.com/dukex/bundleflow/pkg/registry"
	"github.com/dukex/bundleflow/pkg/services"
	cli "github.com/urfave/cli/v3"
)

var errInvalidWorkflow = errors.New("workflow is invalid")

func RunCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Aliases:   []string{"r"},
		Usage:     "Run a workflow document, or a stored workflow with --workflow-id",
		ArgsUsage: "[workflow.json|workflow.yaml]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "workflow-id",
				Usage: "Run a stored workflow instead of a document",
			},
			databaseURLFlag(),
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			e, err := newEngine(ctx, command)
			if err != nil {
				return err
			}
			defer e.Close(ctx)

			var run *models.Run

			if id := command.String("workflow-id"); id != "" {
				service, closeService, err := e.workflowService(ctx, command.String("database-url"))
				if err != nil {
					return err
				}
				defer closeService()

				run, err = service.Run(ctx, id)
				if run == nil {
					return err
				}

				return reportRun(command, run, err)
			}

			workflow, err := loadWorkflow(command.Args().First())
			if err != nil {
				return err
			}

			run, err = services.NewWorkflow(nil, e.registry, e.executor, e.logger).
				Execute(ctx, workflow.Graph(), workflow.Config)
			if run == nil {
				return err
			}

			return reportRun(command, run, err)
		},
	}
}

func reportRun(command *cli.Command, run *models.Run, runErr error) error {
	err := writeJSON(command.Root().Writer, run)
	if err != nil {
		return err
	}

	if runErr != nil {
		return fmt.Errorf("run %s failed: %w", run.ID, runErr)
	}

	return nil
}

func PlanCommand() *cli.Command {
	return &cli.Command{
		Name:      "plan",
		Usage:     "Print the execution order of a workflow document",
		ArgsUsage: "<workflow.json|workflow.yaml>",
		Action: func(_ context.Context, command *cli.Command) error {
			workflow, err := loadWorkflow(command.Args().First())
			if err != nil {
				return err
			}

			graph := workflow.Graph()

			err = graph.Validate()
			if err != nil {
				return err
			}

			order, err := planner.Plan(graph)
			if err != nil {
				return err
			}

			for i, node := range order {
				_, err := fmt.Fprintf(command.Root().Writer, "%d\t%s\t%s\n", i+1, node.ID, node.Module)
				if err != nil {
					return err
				}
			}

			return nil
		},
	}
}

func ValidateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Check a workflow document against the module registry",
		ArgsUsage: "<workflow.json|workflow.yaml>",
		Action: func(_ context.Context, command *cli.Command) error {
			reg, err := loadRegistry(command)
			if err != nil {
				return err
			}

			workflow, err := loadWorkflow(command.Args().First())
			if err != nil {
				return err
			}

			report := services.ValidateGraph(reg, workflow.Graph(), workflow.Config)

			err = writeJSON(command.Root().Writer, report)
			if err != nil {
				return err
			}

			if !report.Valid {
				return errInvalidWorkflow
			}

			return nil
		},
	}
}

func ModulesCommand() *cli.Command {
	return &cli.Command{
		Name:  "modules",
		Usage: "List the modules of the registry",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "app",
				Usage: "Only list modules of this app",
			},
		},
		Action: func(_ context.Context, command *cli.Command) error {
			reg, err := loadRegistry(command)
			if err != nil {
				return err
			}

			modules := reg.Modules()
			if app := command.String("app"); app != "" {
				modules = reg.ModulesByApp(app)
			}

			for _, module := range modules {
				_, err := fmt.Fprintf(command.Root().Writer, "%s\t%s\t%s\n", module.ID, module.App, module.Label)
				if err != nil {
					return err
				}
			}

			return nil
		},
	}
}

func ExportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Render a workflow document as a Make.com blueprint",
		ArgsUsage: "<workflow.json|workflow.yaml>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the blueprint to this file instead of stdout",
			},
			&cli.StringFlag{
				Name:  "zone",
				Usage: "Make zone of the blueprint",
				Value: export.DefaultZone,
			},
		},
		Action: func(_ context.Context, command *cli.Command) error {
			workflow, err := loadWorkflow(command.Args().First())
			if err != nil {
				return err
			}

			blueprint, err := export.Workflow(workflow, export.WithZone(command.String("zone")))
			if err != nil {
				return err
			}

			data, err := blueprint.JSON()
			if err != nil {
				return err
			}

			if output := command.String("output"); output != "" {
				return os.WriteFile(output, data, 0600)
			}

			_, err = command.Root().Writer.Write(append(data, '\n'))

			return err
		},
	}
}

func loadRegistry(command *cli.Command) (*registry.Registry, error) {
	return cmd.NewRegistry(discardLogger(), command.String("registry-path"))
}
