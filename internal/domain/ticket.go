package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen            TicketStatus = "OPEN"
	TicketStatusInProgress      TicketStatus = "IN_PROGRESS"
	TicketStatusWaitingCustomer TicketStatus = "WAITING_CUSTOMER"
	TicketStatusEscalated       TicketStatus = "ESCALATED"
	TicketStatusReopened        TicketStatus = "REOPENED"
	TicketStatusResolved        TicketStatus = "RESOLVED"
	TicketStatusClosed          TicketStatus = "CLOSED"
)

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID           string
	Number       string
	Title        string
	Description  string
	Status       TicketStatus
	Priority     TicketPriority
	IssueType    string
	AssignedToID *string
	CustomerID   *string
	SLADeadline  *time.Time
	SLABreached  bool
	SLAWarned    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsTerminal reports whether the ticket is in a resting state.
func (t *Ticket) IsTerminal() bool {
	return t.Status == TicketStatusResolved || t.Status == TicketStatusClosed
}

// TicketChanges is a partial update applied to a ticket. Nil fields are left
// untouched; each non-nil field yields exactly one history entry.
type TicketChanges struct {
	Title        *string
	Description  *string
	Status       *TicketStatus
	Priority     *TicketPriority
	IssueType    *string
	AssignedToID **string
	SLADeadline  **time.Time
	SLABreached  *bool
	SLAWarned    *bool
}

// Empty reports whether the patch carries no field at all.
func (c TicketChanges) Empty() bool {
	return c.Title == nil && c.Description == nil && c.Status == nil &&
		c.Priority == nil && c.IssueType == nil && c.AssignedToID == nil &&
		c.SLADeadline == nil && c.SLABreached == nil && c.SLAWarned == nil
}
