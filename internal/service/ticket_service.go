package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/supportdesk/ticketflow/internal/domain"
	"github.com/supportdesk/ticketflow/internal/events"
	"github.com/supportdesk/ticketflow/internal/repository"
	apperrors "github.com/supportdesk/ticketflow/pkg/util"
)

// Actor identifies who is performing a ticket operation.
type Actor struct {
	Type  domain.SubjectType
	User  *domain.User
	Staff *domain.StaffMember
}

func (a Actor) isStaff() bool {
	return a.Type == domain.SubjectTypeStaff && a.Staff != nil
}

func (a Actor) isCustomer() bool {
	return a.Type == domain.SubjectTypeUser && a.User != nil
}

// StatusPolicy decides whether a status transition is legal. The platform does
// not enforce a fixed transition DAG; swap the policy to tighten it.
type StatusPolicy func(from, to domain.TicketStatus) bool

// DefaultStatusPolicy permits every transition. Role-based authorization is
// what guards terminal tickets: customers may only reopen their own.
func DefaultStatusPolicy(_, _ domain.TicketStatus) bool {
	return true
}

// Notifier matches the notification dispatcher contract.
type Notifier interface {
	Notify(ctx context.Context, userID string, kind domain.NotificationKind, ticketID string, payload map[string]any) error
}

// TicketService coordinates ticket workflows: creation, role-authorized field
// updates with per-field history, notification fan-out and lifecycle events.
type TicketService struct {
	tickets    repository.TicketRepository
	history    repository.TicketHistoryRepository
	staff      repository.StaffRepository
	executions repository.ExecutionRepository
	dispatcher events.Dispatcher
	notifier   Notifier
	policy     StatusPolicy
	slaTargets map[domain.TicketPriority]time.Duration
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo    repository.TicketRepository
	HistoryRepo   repository.TicketHistoryRepository
	StaffRepo     repository.StaffRepository
	ExecutionRepo repository.ExecutionRepository
	Dispatcher    events.Dispatcher
	Notifier      Notifier
	Policy        StatusPolicy
	SLATargets    map[domain.TicketPriority]time.Duration
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	policy := deps.Policy
	if policy == nil {
		policy = DefaultStatusPolicy
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		history:    deps.HistoryRepo,
		staff:      deps.StaffRepo,
		executions: deps.ExecutionRepo,
		dispatcher: deps.Dispatcher,
		notifier:   deps.Notifier,
		policy:     policy,
		slaTargets: deps.SLATargets,
	}
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Priority    domain.TicketPriority
	IssueType   string
}

// CreateTicket creates a ticket for a customer and fires ticket.created.
func (s *TicketService) CreateTicket(ctx context.Context, customerID string, input TicketCreateInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title required", nil)
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}

	ticket := &domain.Ticket{
		Number:      generateTicketNumber(),
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Status:      domain.TicketStatusOpen,
		Priority:    priority,
		IssueType:   strings.TrimSpace(input.IssueType),
		CustomerID:  &customerID,
	}
	if target, ok := s.slaTargets[priority]; ok && target > 0 {
		deadline := time.Now().Add(target)
		ticket.SLADeadline = &deadline
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.history.Create(ctx, &domain.TicketHistoryEntry{
		TicketID: ticket.ID,
		Action:   domain.HistoryActionCreated,
		Field:    "status",
		NewValue: strPtr(string(ticket.Status)),
	}); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    userActor(customerID),
		Payload: events.TicketCreatedPayload{
			Priority:  ticket.Priority,
			IssueType: ticket.IssueType,
			Title:     ticket.Title,
		},
	})
	return ticket, nil
}

// UpdateTicket applies a partial update under role-based authorization.
//
// A customer may only reopen their own ticket: the patch must carry exactly
// status=REOPENED and nothing else. Staff may modify any field. Every changed
// field yields one history entry, written atomically with the ticket row;
// notification fan-out excludes the actor; lifecycle events fire afterwards.
func (s *TicketService) UpdateTicket(ctx context.Context, actor Actor, ticketID string, patch domain.TicketChanges) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}

	if err := s.authorizeUpdate(ctx, actor, ticket, patch); err != nil {
		return nil, err
	}

	if patch.Status != nil && *patch.Status != ticket.Status && !s.policy(ticket.Status, *patch.Status) {
		return nil, apperrors.NewConflict("status transition not allowed", map[string]any{
			"from": ticket.Status,
			"to":   *patch.Status,
		})
	}

	entries := domain.HistoryEntries(ticket, patch, actorID(actor))
	if len(entries) == 0 {
		return ticket, nil
	}

	oldStatus := ticket.Status
	updated, err := s.tickets.ApplyChanges(ctx, ticket.ID, patch, entries)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.notifyChanges(ctx, actor, updated, entries)
	s.publishUpdateEvents(ctx, actor, updated, oldStatus, entries)
	return updated, nil
}

func (s *TicketService) authorizeUpdate(ctx context.Context, actor Actor, ticket *domain.Ticket, patch domain.TicketChanges) error {
	switch {
	case actor.isCustomer():
		if ticket.CustomerID == nil || *ticket.CustomerID != actor.User.ID {
			return apperrors.NewForbidden("not your ticket")
		}
		// Reopen is the only customer mutation.
		if patch.Status == nil || *patch.Status != domain.TicketStatusReopened {
			return apperrors.NewForbidden("customers may only reopen tickets")
		}
		reduced := domain.TicketChanges{Status: patch.Status}
		if reduced != patch {
			return apperrors.NewForbidden("customers may only reopen tickets")
		}
		return nil
	case actor.isStaff():
		if patch.AssignedToID != nil && *patch.AssignedToID != nil {
			return s.validateAssignee(ctx, **patch.AssignedToID)
		}
		return nil
	default:
		return apperrors.NewUnauthorized("actor required")
	}
}

func (s *TicketService) validateAssignee(ctx context.Context, staffID string) error {
	assignee, err := s.staff.GetByID(ctx, staffID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("staff", map[string]any{"staff_id": staffID})
		}
		return apperrors.MapError(err)
	}
	if !assignee.Active {
		return apperrors.NewConflict("assignee inactive", map[string]any{"staff_id": staffID})
	}
	for _, role := range domain.AssignableRoles {
		if assignee.Role == role {
			return nil
		}
	}
	return apperrors.NewConflict("assignee role not assignable", map[string]any{"staff_id": staffID})
}

// notifyChanges fans out to the customer and the assignee for status, priority
// and assignment changes, skipping whoever made the change.
func (s *TicketService) notifyChanges(ctx context.Context, actor Actor, ticket *domain.Ticket, entries []domain.TicketHistoryEntry) {
	if s.notifier == nil {
		return
	}
	kind := notificationKind(entries)
	if kind == "" {
		return
	}
	payload := map[string]any{
		"ticket_number": ticket.Number,
		"status":        string(ticket.Status),
		"priority":      string(ticket.Priority),
	}
	for _, recipient := range s.recipients(actor, ticket) {
		_ = s.notifier.Notify(ctx, recipient, kind, ticket.ID, payload)
	}
}

func (s *TicketService) recipients(actor Actor, ticket *domain.Ticket) []string {
	var out []string
	if ticket.CustomerID != nil && !(actor.isCustomer() && actor.User.ID == *ticket.CustomerID) {
		out = append(out, *ticket.CustomerID)
	}
	if ticket.AssignedToID != nil && !(actor.isStaff() && actor.Staff.ID == *ticket.AssignedToID) {
		out = append(out, *ticket.AssignedToID)
	}
	return out
}

func notificationKind(entries []domain.TicketHistoryEntry) domain.NotificationKind {
	for _, entry := range entries {
		switch entry.Action {
		case domain.HistoryActionStatusChanged:
			return domain.NotifyStatusChanged
		case domain.HistoryActionPriorityChanged:
			return domain.NotifyPriorityChanged
		case domain.HistoryActionAssigned:
			return domain.NotifyTicketAssigned
		}
	}
	return ""
}

func (s *TicketService) publishUpdateEvents(ctx context.Context, actor Actor, ticket *domain.Ticket, oldStatus domain.TicketStatus, entries []domain.TicketHistoryEntry) {
	eventActor := actorFor(actor)
	fields := make([]string, 0, len(entries))
	for _, entry := range entries {
		fields = append(fields, entry.Field)
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketUpdated,
		TicketID: ticket.ID,
		Actor:    eventActor,
		Payload:  events.TicketUpdatedPayload{Fields: fields},
	})

	if ticket.Status == oldStatus {
		return
	}
	statusPayload := events.TicketStatusChangedPayload{OldStatus: oldStatus, NewStatus: ticket.Status}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Actor:    eventActor,
		Payload:  statusPayload,
	})
	switch ticket.Status {
	case domain.TicketStatusResolved:
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketResolved,
			TicketID: ticket.ID,
			Actor:    eventActor,
			Payload:  statusPayload,
		})
	case domain.TicketStatusClosed:
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketClosed,
			TicketID: ticket.ID,
			Actor:    eventActor,
			Payload:  statusPayload,
		})
	}
}

// GetTicketForUser fetches a ticket ensuring ownership.
func (s *TicketService) GetTicketForUser(ctx context.Context, userID, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	if ticket.CustomerID == nil || *ticket.CustomerID != userID {
		return nil, apperrors.NewForbidden("access denied")
	}
	return ticket, nil
}

// GetTicket fetches a ticket for staff.
func (s *TicketService) GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// ListUserTickets returns paginated tickets for a customer.
func (s *TicketService) ListUserTickets(ctx context.Context, userID string, filter repository.TicketFilter) ([]domain.Ticket, error) {
	filter.CustomerID = &userID
	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// ListTickets returns tickets for staff with arbitrary filters.
func (s *TicketService) ListTickets(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// ListHistory returns the audit trail for a ticket.
func (s *TicketService) ListHistory(ctx context.Context, ticketID string, limit, offset int) ([]domain.TicketHistoryEntry, error) {
	entries, err := s.history.ListByTicket(ctx, ticketID, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

// ListExecutions returns automation audit records for a ticket.
func (s *TicketService) ListExecutions(ctx context.Context, ticketID string, limit, offset int) ([]domain.AutomationExecution, error) {
	records, err := s.executions.ListByTicket(ctx, ticketID, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return records, nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func generateTicketNumber() string {
	return "TKT-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func actorID(actor Actor) *string {
	if actor.isStaff() {
		id := actor.Staff.ID
		return &id
	}
	return nil
}

func actorFor(actor Actor) events.Actor {
	switch {
	case actor.isStaff():
		return staffActor(actor.Staff.ID)
	case actor.isCustomer():
		return userActor(actor.User.ID)
	default:
		return events.SystemActor
	}
}

func userActor(userID string) events.Actor {
	return events.Actor{Type: domain.SubjectTypeUser, UserID: &userID}
}

func staffActor(staffID string) events.Actor {
	return events.Actor{Type: domain.SubjectTypeStaff, StaffID: &staffID}
}

func strPtr(v string) *string {
	return &v
}
