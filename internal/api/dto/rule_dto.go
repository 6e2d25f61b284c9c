package dto

import (
	"time"

	"github.com/supportdesk/ticketflow/internal/domain"
)

// RuleRequest is the create/update payload for automation rules.
type RuleRequest struct {
	Name       string                       `json:"name"`
	Trigger    domain.Trigger               `json:"trigger"`
	Conditions []domain.AutomationCondition `json:"conditions"`
	Actions    []domain.AutomationAction    `json:"actions"`
	IsActive   *bool                        `json:"is_active"`
	Priority   int                          `json:"priority"`
}

// ToggleRuleRequest flips the active flag.
type ToggleRuleRequest struct {
	IsActive bool `json:"is_active"`
}

// RuleResponse represents one automation rule.
type RuleResponse struct {
	ID         string                       `json:"id"`
	Name       string                       `json:"name"`
	Trigger    domain.Trigger               `json:"trigger"`
	Conditions []domain.AutomationCondition `json:"conditions"`
	Actions    []domain.AutomationAction    `json:"actions"`
	IsActive   bool                         `json:"is_active"`
	Priority   int                          `json:"priority"`
	CreatedBy  *string                      `json:"created_by"`
	CreatedAt  time.Time                    `json:"created_at"`
	UpdatedAt  time.Time                    `json:"updated_at"`
}
