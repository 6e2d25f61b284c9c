package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/supportdesk/ticketflow/internal/api/dto"
	"github.com/supportdesk/ticketflow/internal/auth"
	"github.com/supportdesk/ticketflow/internal/domain"
	"github.com/supportdesk/ticketflow/internal/repository"
	"github.com/supportdesk/ticketflow/internal/service"
	apperrors "github.com/supportdesk/ticketflow/pkg/util"
)

// TicketsHandler manages customer-facing ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Title == "" || req.Description == "" {
		return apperrors.NewValidationError("title, description required", nil)
	}

	input := service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		IssueType:   req.IssueType,
	}
	ticket, err := h.service.CreateTicket(c.Context(), principal.User.ID, input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	filter := parseTicketQuery(c)
	tickets, err := h.service.ListUserTickets(c.Context(), principal.User.ID, filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	ticket, err := h.service.GetTicketForUser(c.Context(), principal.User.ID, c.Params("id"))
	if err != nil {
		return err
	}
	history, err := h.service.ListHistory(c.Context(), ticket.ID, 100, 0)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket, history)})
}

// ReopenTicket POST /tickets/:id/reopen. The only mutation customers hold.
func (h *TicketsHandler) ReopenTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	status := domain.TicketStatusReopened
	actor := service.Actor{Type: domain.SubjectTypeUser, User: principal.User}
	ticket, err := h.service.UpdateTicket(c.Context(), actor, c.Params("id"), domain.TicketChanges{Status: &status})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

func parseTicketQuery(c *fiber.Ctx) repository.TicketFilter {
	filter := repository.TicketFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.TrimSpace(part)))
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			filter.Priorities = append(filter.Priorities, domain.TicketPriority(strings.TrimSpace(part)))
		}
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		filter.SearchTerm = &search
	}
	if from := parseTime(c.Query("created_from")); from != nil {
		filter.CreatedFrom = from
	}
	if to := parseTime(c.Query("created_to")); to != nil {
		filter.CreatedTo = to
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:           ticket.ID,
		Number:       ticket.Number,
		Title:        ticket.Title,
		Status:       ticket.Status,
		Priority:     ticket.Priority,
		IssueType:    ticket.IssueType,
		AssignedToID: ticket.AssignedToID,
		SLADeadline:  ticket.SLADeadline,
		SLABreached:  ticket.SLABreached,
		CreatedAt:    ticket.CreatedAt,
		UpdatedAt:    ticket.UpdatedAt,
	}
}

func ticketDetail(ticket *domain.Ticket, history []domain.TicketHistoryEntry) dto.TicketDetailResponse {
	return dto.TicketDetailResponse{
		ID:           ticket.ID,
		Number:       ticket.Number,
		Title:        ticket.Title,
		Description:  ticket.Description,
		Status:       ticket.Status,
		Priority:     ticket.Priority,
		IssueType:    ticket.IssueType,
		AssignedToID: ticket.AssignedToID,
		CustomerID:   ticket.CustomerID,
		SLADeadline:  ticket.SLADeadline,
		SLABreached:  ticket.SLABreached,
		CreatedAt:    ticket.CreatedAt,
		UpdatedAt:    ticket.UpdatedAt,
		History:      historyResponses(history),
	}
}

func historyResponses(entries []domain.TicketHistoryEntry) []dto.TicketHistoryResponse {
	resp := make([]dto.TicketHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, dto.TicketHistoryResponse{
			ID:        entry.ID,
			ActorID:   entry.ActorID,
			Action:    entry.Action,
			Field:     entry.Field,
			OldValue:  entry.OldValue,
			NewValue:  entry.NewValue,
			CreatedAt: entry.CreatedAt,
		})
	}
	return resp
}

func executionResponses(records []domain.AutomationExecution) []dto.ExecutionResponse {
	resp := make([]dto.ExecutionResponse, 0, len(records))
	for _, record := range records {
		resp = append(resp, dto.ExecutionResponse{
			ID:                record.ID,
			RuleID:            record.RuleID,
			TicketID:          record.TicketID,
			Success:           record.Success,
			Error:             record.Error,
			ConditionsChecked: record.Details.ConditionsChecked,
			ActionsExecuted:   record.Details.ActionsExecuted,
			ExecutedAt:        record.ExecutedAt,
		})
	}
	return resp
}
