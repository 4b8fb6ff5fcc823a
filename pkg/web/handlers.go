// Package web provides the HTTP surface of the readiness engine. Routing and
// authentication sit in front of it; the tenant id arrives as an explicit
// header, never as ambient state.
package web

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/probata/caseflow/pkg/services"
)

// TenantHeader names the header carrying the tenant id resolved by the
// authentication layer in front of this API.
const TenantHeader = "X-Tenant-ID"

type APIHandlers struct {
	planService *services.Plan
	validator   *validator.Validate
}

func NewAPIHandlers(planService *services.Plan, validator *validator.Validate) *APIHandlers {
	return &APIHandlers{
		planService: planService,
		validator:   validator,
	}
}

// Register mounts every route on the app.
func (h *APIHandlers) Register(app *fiber.App) {
	app.Get("/health", h.HealthCheck)

	cases := app.Group("/cases")
	cases.Get("/:caseID/plan", h.GetPlan)
	cases.Post("/:caseID/plan", h.GeneratePlan)
	cases.Post("/:caseID/plan/recalculate", h.RecalculateReadiness)
	cases.Post("/:caseID/steps/:stepID/override", h.OverrideReadiness)
	cases.Post("/:caseID/steps/:stepID/advance", h.AdvanceStep)
	cases.Get("/:caseID/steps/:stepID/blocked-info", h.GetBlockedInfo)
}

func (h *APIHandlers) tenantID(c fiber.Ctx) string {
	return c.Get(TenantHeader)
}

func (h *APIHandlers) GetPlan(c fiber.Ctx) error {
	tenantID := h.tenantID(c)
	if tenantID == "" {
		return badRequest(c, "Tenant ID header is required")
	}

	caseID := c.Params("caseID")

	steps, err := h.planService.PlanByCase(c.Context(), tenantID, caseID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(PlanResponse{CaseID: caseID, Steps: steps})
}

func (h *APIHandlers) GeneratePlan(c fiber.Ctx) error {
	tenantID := h.tenantID(c)
	if tenantID == "" {
		return badRequest(c, "Tenant ID header is required")
	}

	caseID := c.Params("caseID")

	var req GeneratePlanRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	steps, err := h.planService.GeneratePlan(c.Context(), tenantID, caseID, &req.Template)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(PlanResponse{CaseID: caseID, Steps: steps})
}

func (h *APIHandlers) RecalculateReadiness(c fiber.Ctx) error {
	tenantID := h.tenantID(c)
	if tenantID == "" {
		return badRequest(c, "Tenant ID header is required")
	}

	caseID := c.Params("caseID")

	steps, err := h.planService.RecalculateReadiness(c.Context(), tenantID, caseID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(PlanResponse{CaseID: caseID, Steps: steps})
}

func (h *APIHandlers) OverrideReadiness(c fiber.Ctx) error {
	tenantID := h.tenantID(c)
	if tenantID == "" {
		return badRequest(c, "Tenant ID header is required")
	}

	caseID := c.Params("caseID")
	stepID := c.Params("stepID")

	var req OverrideRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	step, err := h.planService.OverrideReadiness(
		c.Context(), tenantID, caseID, stepID,
		req.TargetStatus, req.Rationale, req.ActorID,
	)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(step)
}

func (h *APIHandlers) AdvanceStep(c fiber.Ctx) error {
	tenantID := h.tenantID(c)
	if tenantID == "" {
		return badRequest(c, "Tenant ID header is required")
	}

	caseID := c.Params("caseID")
	stepID := c.Params("stepID")

	var req AdvanceRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	step, err := h.planService.AdvanceStep(
		c.Context(), tenantID, caseID, stepID,
		req.TargetStatus, req.ActorID,
	)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(step)
}

func (h *APIHandlers) GetBlockedInfo(c fiber.Ctx) error {
	tenantID := h.tenantID(c)
	if tenantID == "" {
		return badRequest(c, "Tenant ID header is required")
	}

	stepID := c.Params("stepID")

	actorID := c.Query("actor_id")
	if actorID == "" {
		return badRequest(c, "actor_id query parameter is required")
	}

	info, err := h.planService.GetBlockedInfo(c.Context(), tenantID, stepID, actorID)
	if err != nil {
		return handleServiceError(c, err)
	}

	if info == nil {
		// Not currently blocked.
		return c.JSON(nil)
	}

	return c.JSON(info)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.planService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Caseflow API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if repOk {
		status = "healthy"
		message = "Caseflow API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
