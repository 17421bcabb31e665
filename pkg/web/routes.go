package web

import "github.com/gofiber/fiber/v3"

// Register mounts every API route on router.
func Register(router fiber.Router, handlers *APIHandlers) {
	router.Get("/health", handlers.HealthCheck)

	router.Get("/modules", handlers.GetModules)
	router.Get("/modules/:id", handlers.GetModule)
	router.Get("/apps", handlers.GetApps)

	router.Post("/plan", handlers.Plan)
	router.Post("/runs", handlers.RunGraph)
	router.Post("/validate", handlers.ValidateGraph)
	router.Post("/export", handlers.Export)

	w := router.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Put("/:id", handlers.UpdateWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)
	w.Post("/:id/runs", handlers.RunWorkflow)
	w.Post("/:id/validate", handlers.ValidateWorkflow)
	w.Get("/:id/export", handlers.ExportWorkflow)
}
