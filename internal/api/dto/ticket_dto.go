package dto

import (
	"time"

	"github.com/supportdesk/ticketflow/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Priority    domain.TicketPriority `json:"priority"`
	IssueType   string                `json:"issue_type"`
}

// UpdateTicketRequest is the staff partial-update payload. Absent fields are
// left untouched; assigned_to_id and sla_deadline distinguish "absent" from
// "set to null" via double indirection on the service side.
type UpdateTicketRequest struct {
	Title        *string                `json:"title"`
	Description  *string                `json:"description"`
	Status       *domain.TicketStatus   `json:"status"`
	Priority     *domain.TicketPriority `json:"priority"`
	IssueType    *string                `json:"issue_type"`
	AssignedToID *string                `json:"assigned_to_id"`
	Unassign     bool                   `json:"unassign,omitempty"`
}

// ReopenTicketRequest is the single mutation customers may request.
type ReopenTicketRequest struct {
	Reason string `json:"reason,omitempty"`
}

// TicketSummary response.
type TicketSummary struct {
	ID           string                `json:"id"`
	Number       string                `json:"number"`
	Title        string                `json:"title"`
	Status       domain.TicketStatus   `json:"status"`
	Priority     domain.TicketPriority `json:"priority"`
	IssueType    string                `json:"issue_type"`
	AssignedToID *string               `json:"assigned_to_id"`
	SLADeadline  *time.Time            `json:"sla_deadline"`
	SLABreached  bool                  `json:"sla_breached"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info including its audit trail.
type TicketDetailResponse struct {
	ID           string                  `json:"id"`
	Number       string                  `json:"number"`
	Title        string                  `json:"title"`
	Description  string                  `json:"description"`
	Status       domain.TicketStatus     `json:"status"`
	Priority     domain.TicketPriority   `json:"priority"`
	IssueType    string                  `json:"issue_type"`
	AssignedToID *string                 `json:"assigned_to_id"`
	CustomerID   *string                 `json:"customer_id"`
	SLADeadline  *time.Time              `json:"sla_deadline"`
	SLABreached  bool                    `json:"sla_breached"`
	CreatedAt    time.Time               `json:"created_at"`
	UpdatedAt    time.Time               `json:"updated_at"`
	History      []TicketHistoryResponse `json:"history"`
}

// TicketHistoryResponse represents one audit trail entry.
type TicketHistoryResponse struct {
	ID        string               `json:"id"`
	ActorID   *string              `json:"actor_id"`
	Action    domain.HistoryAction `json:"action"`
	Field     string               `json:"field"`
	OldValue  *string              `json:"old_value"`
	NewValue  *string              `json:"new_value"`
	CreatedAt time.Time            `json:"created_at"`
}

// ExecutionResponse represents one automation audit record.
type ExecutionResponse struct {
	ID                string    `json:"id"`
	RuleID            string    `json:"rule_id"`
	TicketID          string    `json:"ticket_id"`
	Success           bool      `json:"success"`
	Error             *string   `json:"error,omitempty"`
	ConditionsChecked int       `json:"conditions_checked"`
	ActionsExecuted   int       `json:"actions_executed"`
	ExecutedAt        time.Time `json:"executed_at"`
}

// QueueEntry is one scored ticket in the work queue.
type QueueEntry struct {
	Ticket TicketSummary `json:"ticket"`
	Score  float64       `json:"score"`
}

// QueueResponse groups queue entries into display sections.
type QueueResponse struct {
	Urgent          []QueueEntry `json:"urgent"`
	ToProcess       []QueueEntry `json:"toProcess"`
	WaitingCustomer []QueueEntry `json:"waitingCustomer"`
	Resolved        []QueueEntry `json:"resolved"`
	GeneratedAt     time.Time    `json:"generated_at"`
}
