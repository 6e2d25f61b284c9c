package domain

import "time"

// HistoryAction captures what kind of change a history entry records.
type HistoryAction string

const (
	HistoryActionCreated         HistoryAction = "CREATED"
	HistoryActionStatusChanged   HistoryAction = "STATUS_CHANGED"
	HistoryActionPriorityChanged HistoryAction = "PRIORITY_CHANGED"
	HistoryActionAssigned        HistoryAction = "ASSIGNED"
	HistoryActionUpdated         HistoryAction = "UPDATED"
)

// TicketHistoryEntry is an immutable audit trail entry, one per changed field.
// ActorID is nil for system or customer originated changes.
type TicketHistoryEntry struct {
	ID        string
	TicketID  string
	ActorID   *string
	Action    HistoryAction
	Field     string
	OldValue  *string
	NewValue  *string
	CreatedAt time.Time
}
