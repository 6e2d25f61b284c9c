package domain

import "time"

// Trigger enumerates the canonical lifecycle events automation rules react to.
type Trigger string

const (
	TriggerTicketCreated       Trigger = "TICKET_CREATED"
	TriggerTicketUpdated       Trigger = "TICKET_UPDATED"
	TriggerTicketStatusChanged Trigger = "TICKET_STATUS_CHANGED"
	TriggerTicketResolved      Trigger = "TICKET_RESOLVED"
	TriggerTicketClosed        Trigger = "TICKET_CLOSED"
	TriggerSLAWarning          Trigger = "SLA_WARNING"
	TriggerSLABreach           Trigger = "SLA_BREACH"
)

// ConditionOperator enumerates supported comparison operators.
type ConditionOperator string

const (
	OpEq       ConditionOperator = "eq"
	OpNeq      ConditionOperator = "neq"
	OpGt       ConditionOperator = "gt"
	OpLt       ConditionOperator = "lt"
	OpGte      ConditionOperator = "gte"
	OpLte      ConditionOperator = "lte"
	OpContains ConditionOperator = "contains"
	OpIn       ConditionOperator = "in"
)

// TicketField enumerates the fields conditions may reference. New fields are a
// compile-time concern: add a constant here and a case to the accessor.
type TicketField string

const (
	FieldPriority     TicketField = "priority"
	FieldStatus       TicketField = "status"
	FieldIssueType    TicketField = "issueType"
	FieldAssignedToID TicketField = "assignedToId"
	FieldCustomerID   TicketField = "customerId"
	FieldSLABreached  TicketField = "slaBreached"
	FieldTitle        TicketField = "title"
	FieldDescription  TicketField = "description"
)

// AutomationCondition is one declarative predicate over a ticket field.
type AutomationCondition struct {
	Field TicketField       `json:"field"`
	Op    ConditionOperator `json:"op"`
	Value any               `json:"value"`
}

// AutomationAction names a side effect plus optional parameters. Actions are
// data, never code: the engine interprets the type string.
type AutomationAction struct {
	Type   string         `json:"type"`
	Params map[string]any `json:"params,omitempty"`
}

// AutomationRule couples a trigger with ordered conditions and actions.
// Higher priority runs first; the engine reads rules fresh on every firing.
type AutomationRule struct {
	ID         string
	Name       string
	Trigger    Trigger
	Conditions []AutomationCondition
	Actions    []AutomationAction
	IsActive   bool
	Priority   int
	CreatedBy  *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
