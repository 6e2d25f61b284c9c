package events

import (
	"time"

	"github.com/supportdesk/ticketflow/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket.created"
	EventTicketUpdated       EventType = "ticket.updated"
	EventTicketStatusChanged EventType = "ticket.status_changed"
	EventTicketResolved      EventType = "ticket.resolved"
	EventTicketClosed        EventType = "ticket.closed"
	EventSLAWarning          EventType = "sla.warning"
	EventSLABreach           EventType = "sla.breach"
)

// triggerByEvent is the fixed event→trigger lookup. Event names outside the
// table resolve to no trigger, which is a no-op rather than an error.
var triggerByEvent = map[EventType]domain.Trigger{
	EventTicketCreated:       domain.TriggerTicketCreated,
	EventTicketUpdated:       domain.TriggerTicketUpdated,
	EventTicketStatusChanged: domain.TriggerTicketStatusChanged,
	EventTicketResolved:      domain.TriggerTicketResolved,
	EventTicketClosed:        domain.TriggerTicketClosed,
	EventSLAWarning:          domain.TriggerSLAWarning,
	EventSLABreach:           domain.TriggerSLABreach,
}

// TriggerFor maps an event type to its automation trigger.
func TriggerFor(eventType EventType) (domain.Trigger, bool) {
	trigger, ok := triggerByEvent[eventType]
	return trigger, ok
}

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type    domain.SubjectType `json:"type"`
	UserID  *string            `json:"user_id,omitempty"`
	StaffID *string            `json:"staff_id,omitempty"`
}

// SystemActor marks changes not attributable to a user or staff member.
var SystemActor = Actor{Type: "SYSTEM"}

// Event represents a ticket lifecycle event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Priority  domain.TicketPriority `json:"priority"`
	IssueType string                `json:"issue_type"`
	Title     string                `json:"title"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketUpdatedPayload lists which fields an update touched.
type TicketUpdatedPayload struct {
	Fields []string `json:"fields"`
}

// SLAPayload payload for warning/breach events.
type SLAPayload struct {
	Deadline time.Time `json:"deadline"`
}
