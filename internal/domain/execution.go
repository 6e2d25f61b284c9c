package domain

import "time"

// ExecutionDetails summarizes what one rule evaluation did.
type ExecutionDetails struct {
	ConditionsChecked int `json:"conditions_checked"`
	ActionsExecuted   int `json:"actions_executed"`
}

// AutomationExecution is the append-only audit record of evaluating one rule
// against one ticket for one trigger firing.
type AutomationExecution struct {
	ID         string
	RuleID     string
	TicketID   string
	Success    bool
	Error      *string
	Details    ExecutionDetails
	ExecutedAt time.Time
}
