package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/supportdesk/ticketflow/internal/api/dto"
	"github.com/supportdesk/ticketflow/internal/auth"
	"github.com/supportdesk/ticketflow/internal/domain"
	"github.com/supportdesk/ticketflow/internal/queue"
	"github.com/supportdesk/ticketflow/internal/service"
	apperrors "github.com/supportdesk/ticketflow/pkg/util"
)

// StaffTicketsHandler manages the staff ticket surface: listing, updating,
// audit trails and the prioritized work queue.
type StaffTicketsHandler struct {
	service *service.TicketService
}

// NewStaffTicketsHandler constructs handler.
func NewStaffTicketsHandler(ticketService *service.TicketService) *StaffTicketsHandler {
	return &StaffTicketsHandler{service: ticketService}
}

// ListTickets GET /staff/tickets.
func (h *StaffTicketsHandler) ListTickets(c *fiber.Ctx) error {
	filter := parseTicketQuery(c)
	if assignee := c.Query("assigned_to"); assignee != "" {
		filter.AssignedToID = &assignee
	}
	tickets, err := h.service.ListTickets(c.Context(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /staff/tickets/:id.
func (h *StaffTicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.service.GetTicket(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	history, err := h.service.ListHistory(c.Context(), ticket.ID, 100, 0)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket, history)})
}

// UpdateTicket PATCH /staff/tickets/:id.
func (h *StaffTicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Staff == nil {
		return apperrors.NewUnauthorized("staff required")
	}
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	patch := domain.TicketChanges{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		IssueType:   req.IssueType,
	}
	switch {
	case req.Unassign:
		var none *string
		patch.AssignedToID = &none
	case req.AssignedToID != nil:
		patch.AssignedToID = &req.AssignedToID
	}
	if patch.Empty() {
		return apperrors.NewValidationError("no fields to update", nil)
	}

	actor := service.Actor{Type: domain.SubjectTypeStaff, Staff: principal.Staff}
	ticket, err := h.service.UpdateTicket(c.Context(), actor, c.Params("id"), patch)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// ListHistory GET /staff/tickets/:id/history.
func (h *StaffTicketsHandler) ListHistory(c *fiber.Ctx) error {
	limit := parseInt(c.Query("limit"), 50)
	offset := parseInt(c.Query("offset"), 0)
	entries, err := h.service.ListHistory(c.Context(), c.Params("id"), limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": historyResponses(entries)})
}

// ListExecutions GET /staff/tickets/:id/executions.
func (h *StaffTicketsHandler) ListExecutions(c *fiber.Ctx) error {
	limit := parseInt(c.Query("limit"), 50)
	offset := parseInt(c.Query("offset"), 0)
	records, err := h.service.ListExecutions(c.Context(), c.Params("id"), limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": executionResponses(records)})
}

// Queue GET /staff/queue. Tickets are scored and bucketed at request time.
func (h *StaffTicketsHandler) Queue(c *fiber.Ctx) error {
	filter := parseTicketQuery(c)
	if filter.Limit < 500 {
		filter.Limit = 500
	}
	if assignee := c.Query("assigned_to"); assignee != "" {
		filter.AssignedToID = &assignee
	}
	tickets, err := h.service.ListTickets(c.Context(), filter)
	if err != nil {
		return err
	}

	now := time.Now()
	buckets := queue.Bucketed(tickets, now)
	response := dto.QueueResponse{
		Urgent:          queueEntries(buckets[queue.SectionUrgent], now),
		ToProcess:       queueEntries(buckets[queue.SectionToProcess], now),
		WaitingCustomer: queueEntries(buckets[queue.SectionWaitingCustomer], now),
		Resolved:        queueEntries(buckets[queue.SectionResolved], now),
		GeneratedAt:     now,
	}
	return c.JSON(fiber.Map{"data": response})
}

func queueEntries(tickets []domain.Ticket, now time.Time) []dto.QueueEntry {
	entries := make([]dto.QueueEntry, 0, len(tickets))
	for i := range tickets {
		entries = append(entries, dto.QueueEntry{
			Ticket: ticketSummary(&tickets[i]),
			Score:  queue.Score(&tickets[i], now),
		})
	}
	return entries
}
