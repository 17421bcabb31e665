// Package web provides HTTP handlers and REST API endpoints for modules, graphs and workflows.
package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/dukex/bundleflow/pkg/export"
	"github.com/dukex/bundleflow/pkg/models"
	"github.com/dukex/bundleflow/pkg/planner"
	"github.com/dukex/bundleflow/pkg/registry"
	"github.com/dukex/bundleflow/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

var errInvalidJSON = errors.New("invalid JSON format")

type APIHandlers struct {
	workflowService *services.Workflow
	validator       *validator.Validate
	registry        *registry.Registry
}

func NewAPIHandlers(
	workflowService *services.Workflow,
	validator *validator.Validate,
	registry *registry.Registry,
) *APIHandlers {
	return &APIHandlers{
		workflowService: workflowService,
		validator:       validator,
		registry:        registry,
	}
}

// GetModules lists the registry, optionally filtered with ?app=.
func (h *APIHandlers) GetModules(c fiber.Ctx) error {
	var modules []registry.Module

	if app := c.Query("app"); app != "" {
		modules = h.registry.ModulesByApp(app)
	} else {
		modules = h.registry.Modules()
	}

	if modules == nil {
		modules = []registry.Module{}
	}

	return c.JSON(modules)
}

func (h *APIHandlers) GetModule(c fiber.Ctx) error {
	id := c.Params("id")

	entry, ok := h.registry.Get(id)
	if !ok {
		return notFound(c, "Module "+id+" not found")
	}

	return c.JSON(ModuleResponse{
		Module: registry.Module{ID: id, Entry: entry},
		Schema: entry.Schema(),
	})
}

func (h *APIHandlers) GetApps(c fiber.Ctx) error {
	return c.JSON(h.registry.Apps())
}

func (h *APIHandlers) Plan(c fiber.Ctx) error {
	req, err := h.bindGraph(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	graph := req.Graph()

	err = graph.Validate()
	if err != nil {
		return badRequest(c, err.Error())
	}

	order, err := planner.Plan(graph)
	if err != nil {
		return handleServiceError(c, err)
	}

	ids := make([]string, len(order))
	for i, node := range order {
		ids[i] = node.ID
	}

	return c.JSON(PlanResponse{Order: ids})
}

func (h *APIHandlers) RunGraph(c fiber.Ctx) error {
	req, err := h.bindGraph(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	run, err := h.workflowService.Execute(c.Context(), req.Graph(), req.Config)

	return respondRun(c, run, err)
}

func (h *APIHandlers) ValidateGraph(c fiber.Ctx) error {
	req, err := h.bindGraph(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	return c.JSON(h.workflowService.ValidateGraph(req.Graph(), req.Config))
}

func (h *APIHandlers) Export(c fiber.Ctx) error {
	var req ExportRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, errInvalidJSON.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	blueprint, err := export.Build(req.Graph(), req.Config, export.WithName(req.Name), export.WithZone(req.Zone))
	if err != nil {
		return exportError(c, err)
	}

	return c.JSON(blueprint)
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.workflowService.FetchAll(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflows)
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	workflow, err := h.workflowService.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req WorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, errInvalidJSON.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.workflowService.Create(c.Context(), req.Workflow())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	var req WorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, errInvalidJSON.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := h.workflowService.Update(c.Context(), c.Params("id"), req.Workflow())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	err := h.workflowService.Delete(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) RunWorkflow(c fiber.Ctx) error {
	run, err := h.workflowService.Run(c.Context(), c.Params("id"))

	return respondRun(c, run, err)
}

func (h *APIHandlers) ValidateWorkflow(c fiber.Ctx) error {
	report, err := h.workflowService.Validate(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(report)
}

func (h *APIHandlers) ExportWorkflow(c fiber.Ctx) error {
	workflow, err := h.workflowService.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	blueprint, err := export.Workflow(workflow, export.WithZone(c.Query("zone")))
	if err != nil {
		return exportError(c, err)
	}

	return c.JSON(blueprint)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryCheck, regOk := h.registry.HealthCheck()
	repositoryCheck, repOk := h.workflowService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "bundleflow API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if regOk && repOk {
		status = "healthy"
		message = "bundleflow API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"registry":   registryCheck,
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) bindGraph(c fiber.Ctx) (*GraphRequest, error) {
	var req GraphRequest
	if err := c.Bind().JSON(&req); err != nil {
		return nil, errInvalidJSON
	}

	if err := h.validator.Struct(req); err != nil {
		return nil, err
	}

	return &req, nil
}

// respondRun answers 200 for any run that got past planning, failed or not.
func respondRun(c fiber.Ctx, run *models.Run, err error) error {
	if err == nil {
		return c.JSON(RunResponse{Status: RunStatusSucceeded, Run: run})
	}

	if run == nil || services.IsValidationError(err) || planner.IsCycle(err) {
		return handleServiceError(c, err)
	}

	return c.JSON(RunResponse{Status: RunStatusFailed, Error: err.Error(), Run: run})
}

func exportError(c fiber.Ctx, err error) error {
	if planner.IsCycle(err) {
		return handleServiceError(c, err)
	}

	return badRequest(c, err.Error())
}
