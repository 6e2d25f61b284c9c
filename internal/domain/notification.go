package domain

// NotificationKind labels outbound notifications. Delivery guarantees belong to
// the notification dispatcher, not to the code that emits them.
type NotificationKind string

const (
	NotifyTicketAssigned  NotificationKind = "ticket.assigned"
	NotifyStatusChanged   NotificationKind = "ticket.status_changed"
	NotifyPriorityChanged NotificationKind = "ticket.priority_changed"
	NotifyTicketUpdated   NotificationKind = "ticket.updated"
	NotifyEscalated       NotificationKind = "ticket.escalated"
	NotifyTeamAlert       NotificationKind = "ticket.team_alert"
	NotifyReminder        NotificationKind = "ticket.reminder"
)
