package domain

import (
	"strconv"
	"time"
)

// HistoryEntries diffs a pending patch against the ticket's current values and
// returns one entry per field that actually changes. Call before the patch is
// applied. ActorID nil marks a system or customer originated change.
func HistoryEntries(ticket *Ticket, changes TicketChanges, actorID *string) []TicketHistoryEntry {
	var entries []TicketHistoryEntry
	add := func(action HistoryAction, field string, oldValue, newValue *string) {
		entries = append(entries, TicketHistoryEntry{
			TicketID: ticket.ID,
			ActorID:  actorID,
			Action:   action,
			Field:    field,
			OldValue: oldValue,
			NewValue: newValue,
		})
	}

	if changes.Status != nil && *changes.Status != ticket.Status {
		add(HistoryActionStatusChanged, "status", strPtr(string(ticket.Status)), strPtr(string(*changes.Status)))
	}
	if changes.Priority != nil && *changes.Priority != ticket.Priority {
		add(HistoryActionPriorityChanged, "priority", strPtr(string(ticket.Priority)), strPtr(string(*changes.Priority)))
	}
	if changes.AssignedToID != nil && !strPtrEqual(*changes.AssignedToID, ticket.AssignedToID) {
		add(HistoryActionAssigned, "assignedToId", ticket.AssignedToID, *changes.AssignedToID)
	}
	if changes.Title != nil && *changes.Title != ticket.Title {
		add(HistoryActionUpdated, "title", strPtr(ticket.Title), changes.Title)
	}
	if changes.Description != nil && *changes.Description != ticket.Description {
		add(HistoryActionUpdated, "description", strPtr(ticket.Description), changes.Description)
	}
	if changes.IssueType != nil && *changes.IssueType != ticket.IssueType {
		add(HistoryActionUpdated, "issueType", strPtr(ticket.IssueType), changes.IssueType)
	}
	if changes.SLADeadline != nil && !timePtrEqual(*changes.SLADeadline, ticket.SLADeadline) {
		add(HistoryActionUpdated, "slaDeadline", timeStr(ticket.SLADeadline), timeStr(*changes.SLADeadline))
	}
	if changes.SLABreached != nil && *changes.SLABreached != ticket.SLABreached {
		add(HistoryActionUpdated, "slaBreached", strPtr(strconv.FormatBool(ticket.SLABreached)), strPtr(strconv.FormatBool(*changes.SLABreached)))
	}
	return entries
}

func strPtr(v string) *string {
	return &v
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func timeStr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	return strPtr(t.UTC().Format(time.RFC3339))
}
