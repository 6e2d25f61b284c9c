package automation

import (
	"context"

	"go.uber.org/zap"

	"github.com/supportdesk/ticketflow/internal/domain"
)

// Supported action types. send.* and email.customer are reserved extension
// points: rules may carry them today and the executor accepts them silently.
const (
	ActionAssignLeastWorkload = "assign.least_workload"
	ActionAssignBySkill       = "assign.by_skill"
	ActionNotifySupervisor    = "notify.supervisor"
	ActionNotifyTeam          = "notify.team"
	ActionNotifyAssigned      = "notify.assigned"
	ActionEscalate            = "escalate"
	ActionClose               = "close"
	ActionSendReminder        = "send.reminder"
	ActionSendSurvey          = "send.survey"
	ActionEmailCustomer       = "email.customer"
)

// TicketStore is the slice of ticket persistence the engine needs. ApplyChanges
// must write the field updates and their history entries atomically.
type TicketStore interface {
	ApplyChanges(ctx context.Context, ticketID string, changes domain.TicketChanges, entries []domain.TicketHistoryEntry) (*domain.Ticket, error)
}

// Directory supplies staff lists with current workload counts.
type Directory interface {
	ListStaff(ctx context.Context, roles []domain.StaffRole, activeOnly bool) ([]domain.StaffWorkload, error)
}

// Notifier delivers a structured notification to one user. Fire-and-forget:
// delivery guarantees belong to the dispatcher behind this interface.
type Notifier interface {
	Notify(ctx context.Context, userID string, kind domain.NotificationKind, ticketID string, payload map[string]any) error
}

var supervisorRoles = []domain.StaffRole{domain.StaffRoleSupervisor, domain.StaffRoleAdmin}
var teamRoles = []domain.StaffRole{domain.StaffRoleAgent, domain.StaffRoleSupervisor}
var assigneeRoles = []domain.StaffRole{domain.StaffRoleAgent, domain.StaffRoleSupervisor}

// ActionExecutor performs one named side-effecting action against a ticket.
type ActionExecutor struct {
	store     TicketStore
	directory Directory
	notifier  Notifier
	logger    *zap.Logger
}

// NewActionExecutor constructs the executor.
func NewActionExecutor(store TicketStore, directory Directory, notifier Notifier, logger *zap.Logger) *ActionExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActionExecutor{store: store, directory: directory, notifier: notifier, logger: logger}
}

// Execute runs a single action, mutating the in-memory ticket to reflect any
// store writes so subsequent actions and rules observe the new state. Unknown
// action types are logged and skipped rather than failing the rule.
func (e *ActionExecutor) Execute(ctx context.Context, action domain.AutomationAction, ticket *domain.Ticket) error {
	switch action.Type {
	case ActionAssignLeastWorkload, ActionAssignBySkill:
		return e.assignLeastWorkload(ctx, ticket)
	case ActionNotifySupervisor:
		return e.fanOut(ctx, ticket, supervisorRoles, domain.NotifyEscalated)
	case ActionNotifyTeam:
		return e.fanOut(ctx, ticket, teamRoles, domain.NotifyTeamAlert)
	case ActionNotifyAssigned:
		if ticket.AssignedToID == nil {
			return nil
		}
		return e.notifier.Notify(ctx, *ticket.AssignedToID, domain.NotifyTicketUpdated, ticket.ID, nil)
	case ActionEscalate:
		if err := e.setStatus(ctx, ticket, domain.TicketStatusEscalated); err != nil {
			return err
		}
		return e.fanOut(ctx, ticket, supervisorRoles, domain.NotifyEscalated)
	case ActionClose:
		return e.setStatus(ctx, ticket, domain.TicketStatusClosed)
	case ActionSendReminder, ActionSendSurvey, ActionEmailCustomer:
		e.logger.Debug("stubbed action accepted",
			zap.String("action", action.Type),
			zap.String("ticket_id", ticket.ID))
		return nil
	default:
		e.logger.Warn("unknown action type skipped",
			zap.String("action", action.Type),
			zap.String("ticket_id", ticket.ID))
		return nil
	}
}

// assignLeastWorkload picks the eligible staff member with the fewest open
// assignments, ties broken by directory order. No eligible staff is a no-op:
// no store write, no notification.
func (e *ActionExecutor) assignLeastWorkload(ctx context.Context, ticket *domain.Ticket) error {
	candidates, err := e.directory.ListStaff(ctx, assigneeRoles, true)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		e.logger.Debug("no eligible staff for assignment", zap.String("ticket_id", ticket.ID))
		return nil
	}

	pick := candidates[0]
	for _, candidate := range candidates[1:] {
		if candidate.ActiveAssigned < pick.ActiveAssigned {
			pick = candidate
		}
	}

	assignee := pick.Staff.ID
	assigneePtr := &assignee
	status := domain.TicketStatusInProgress
	changes := domain.TicketChanges{
		AssignedToID: &assigneePtr,
		Status:       &status,
	}
	if err := e.apply(ctx, ticket, changes); err != nil {
		return err
	}
	return e.notifier.Notify(ctx, assignee, domain.NotifyTicketAssigned, ticket.ID, map[string]any{
		"ticket_number": ticket.Number,
		"priority":      string(ticket.Priority),
	})
}

func (e *ActionExecutor) setStatus(ctx context.Context, ticket *domain.Ticket, status domain.TicketStatus) error {
	if ticket.Status == status {
		return nil
	}
	return e.apply(ctx, ticket, domain.TicketChanges{Status: &status})
}

func (e *ActionExecutor) apply(ctx context.Context, ticket *domain.Ticket, changes domain.TicketChanges) error {
	entries := domain.HistoryEntries(ticket, changes, nil)
	updated, err := e.store.ApplyChanges(ctx, ticket.ID, changes, entries)
	if err != nil {
		return err
	}
	*ticket = *updated
	return nil
}

func (e *ActionExecutor) fanOut(ctx context.Context, ticket *domain.Ticket, roles []domain.StaffRole, kind domain.NotificationKind) error {
	staff, err := e.directory.ListStaff(ctx, roles, true)
	if err != nil {
		return err
	}
	payload := map[string]any{
		"ticket_number": ticket.Number,
		"status":        string(ticket.Status),
		"priority":      string(ticket.Priority),
	}
	for _, member := range staff {
		if err := e.notifier.Notify(ctx, member.Staff.ID, kind, ticket.ID, payload); err != nil {
			return err
		}
	}
	return nil
}
