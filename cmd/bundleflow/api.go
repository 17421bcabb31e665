package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/dukex/bundleflow/pkg/registry"
	"github.com/dukex/bundleflow/pkg/services"
	"github.com/dukex/bundleflow/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type API struct {
	logger   *slog.Logger
	service  *services.Workflow
	registry *registry.Registry
	validate *validator.Validate
}

func NewAPI(logger *slog.Logger, service *services.Workflow, registry *registry.Registry) *API {
	return &API{
		logger:   logger.With("module", "api"),
		service:  service,
		registry: registry,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.service, a.validate, a.registry)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("bundleflow API")
	})

	web.Register(app, handlers)

	return app
}

// Start serves until ctx is done, then shuts the server down gracefully.
func (a *API) Start(ctx context.Context, port int) error {
	app := a.App()
	errs := make(chan error, 1)

	go func() {
		errs <- app.Listen(":" + strconv.Itoa(port))
	}()

	a.logger.InfoContext(ctx, "API listening", "port", port)

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		a.logger.Info("Shutting down API")

		return app.ShutdownWithContext(context.WithoutCancel(ctx))
	}
}
