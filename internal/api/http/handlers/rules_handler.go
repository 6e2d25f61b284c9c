package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/supportdesk/ticketflow/internal/api/dto"
	"github.com/supportdesk/ticketflow/internal/auth"
	"github.com/supportdesk/ticketflow/internal/domain"
	"github.com/supportdesk/ticketflow/internal/service"
	apperrors "github.com/supportdesk/ticketflow/pkg/util"
)

// RulesHandler exposes automation rule administration to supervisors.
type RulesHandler struct {
	service *service.RuleService
}

// NewRulesHandler constructs handler.
func NewRulesHandler(ruleService *service.RuleService) *RulesHandler {
	return &RulesHandler{service: ruleService}
}

// CreateRule POST /staff/rules.
func (h *RulesHandler) CreateRule(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Staff == nil {
		return apperrors.NewUnauthorized("staff required")
	}
	var req dto.RuleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	rule, err := h.service.CreateRule(c.Context(), principal.Staff, ruleInput(req))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": ruleResponse(rule)})
}

// UpdateRule PUT /staff/rules/:id.
func (h *RulesHandler) UpdateRule(c *fiber.Ctx) error {
	var req dto.RuleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	rule, err := h.service.UpdateRule(c.Context(), c.Params("id"), ruleInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ruleResponse(rule)})
}

// ToggleRule POST /staff/rules/:id/toggle.
func (h *RulesHandler) ToggleRule(c *fiber.Ctx) error {
	var req dto.ToggleRuleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	rule, err := h.service.ToggleRule(c.Context(), c.Params("id"), req.IsActive)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ruleResponse(rule)})
}

// DeleteRule DELETE /staff/rules/:id.
func (h *RulesHandler) DeleteRule(c *fiber.Ctx) error {
	if err := h.service.DeleteRule(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetRule GET /staff/rules/:id.
func (h *RulesHandler) GetRule(c *fiber.Ctx) error {
	rule, err := h.service.GetRule(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ruleResponse(rule)})
}

// ListRules GET /staff/rules.
func (h *RulesHandler) ListRules(c *fiber.Ctx) error {
	limit := parseInt(c.Query("limit"), 50)
	offset := parseInt(c.Query("offset"), 0)
	rules, err := h.service.ListRules(c.Context(), limit, offset)
	if err != nil {
		return err
	}
	items := make([]dto.RuleResponse, 0, len(rules))
	for i := range rules {
		items = append(items, ruleResponse(&rules[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListRuleExecutions GET /staff/rules/:id/executions.
func (h *RulesHandler) ListRuleExecutions(c *fiber.Ctx) error {
	limit := parseInt(c.Query("limit"), 50)
	offset := parseInt(c.Query("offset"), 0)
	records, err := h.service.ListRuleExecutions(c.Context(), c.Params("id"), limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": executionResponses(records)})
}

func ruleInput(req dto.RuleRequest) service.RuleInput {
	return service.RuleInput{
		Name:       req.Name,
		Trigger:    req.Trigger,
		Conditions: req.Conditions,
		Actions:    req.Actions,
		IsActive:   req.IsActive,
		Priority:   req.Priority,
	}
}

func ruleResponse(rule *domain.AutomationRule) dto.RuleResponse {
	return dto.RuleResponse{
		ID:         rule.ID,
		Name:       rule.Name,
		Trigger:    rule.Trigger,
		Conditions: rule.Conditions,
		Actions:    rule.Actions,
		IsActive:   rule.IsActive,
		Priority:   rule.Priority,
		CreatedBy:  rule.CreatedBy,
		CreatedAt:  rule.CreatedAt,
		UpdatedAt:  rule.UpdatedAt,
	}
}
