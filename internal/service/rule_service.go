package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/supportdesk/ticketflow/internal/domain"
	"github.com/supportdesk/ticketflow/internal/repository"
	apperrors "github.com/supportdesk/ticketflow/pkg/util"
)

// RuleService is the staff surface for authoring automation rules. The engine
// never goes through this service: it reads active rules straight from the
// repository on every trigger firing.
type RuleService struct {
	rules      repository.RuleRepository
	executions repository.ExecutionRepository
}

// NewRuleService builds the service.
func NewRuleService(rules repository.RuleRepository, executions repository.ExecutionRepository) *RuleService {
	return &RuleService{rules: rules, executions: executions}
}

// RuleInput describes rule creation/update payload.
type RuleInput struct {
	Name       string
	Trigger    domain.Trigger
	Conditions []domain.AutomationCondition
	Actions    []domain.AutomationAction
	IsActive   *bool
	Priority   int
}

var validTriggers = map[domain.Trigger]struct{}{
	domain.TriggerTicketCreated:       {},
	domain.TriggerTicketUpdated:       {},
	domain.TriggerTicketStatusChanged: {},
	domain.TriggerTicketResolved:      {},
	domain.TriggerTicketClosed:        {},
	domain.TriggerSLAWarning:          {},
	domain.TriggerSLABreach:           {},
}

var validOperators = map[domain.ConditionOperator]struct{}{
	domain.OpEq: {}, domain.OpNeq: {}, domain.OpGt: {}, domain.OpLt: {},
	domain.OpGte: {}, domain.OpLte: {}, domain.OpContains: {}, domain.OpIn: {},
}

func validateRuleInput(input RuleInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return apperrors.NewValidationError("name required", nil)
	}
	if _, ok := validTriggers[input.Trigger]; !ok {
		return apperrors.NewValidationError("unknown trigger", map[string]any{"trigger": input.Trigger})
	}
	for _, cond := range input.Conditions {
		if _, ok := validOperators[cond.Op]; !ok {
			return apperrors.NewValidationError("unknown operator", map[string]any{"op": cond.Op})
		}
	}
	for _, action := range input.Actions {
		if strings.TrimSpace(action.Type) == "" {
			return apperrors.NewValidationError("action type required", nil)
		}
	}
	return nil
}

// CreateRule persists a new rule authored by a staff member.
func (s *RuleService) CreateRule(ctx context.Context, staff *domain.StaffMember, input RuleInput) (*domain.AutomationRule, error) {
	if staff == nil {
		return nil, apperrors.NewUnauthorized("staff required")
	}
	if err := validateRuleInput(input); err != nil {
		return nil, err
	}

	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}
	rule := &domain.AutomationRule{
		Name:       strings.TrimSpace(input.Name),
		Trigger:    input.Trigger,
		Conditions: input.Conditions,
		Actions:    input.Actions,
		IsActive:   active,
		Priority:   input.Priority,
		CreatedBy:  &staff.ID,
	}
	if err := s.rules.Create(ctx, rule); err != nil {
		return nil, apperrors.MapError(err)
	}
	return rule, nil
}

// UpdateRule replaces a rule's definition.
func (s *RuleService) UpdateRule(ctx context.Context, id string, input RuleInput) (*domain.AutomationRule, error) {
	if err := validateRuleInput(input); err != nil {
		return nil, err
	}
	rule, err := s.getRule(ctx, id)
	if err != nil {
		return nil, err
	}
	rule.Name = strings.TrimSpace(input.Name)
	rule.Trigger = input.Trigger
	rule.Conditions = input.Conditions
	rule.Actions = input.Actions
	rule.Priority = input.Priority
	if input.IsActive != nil {
		rule.IsActive = *input.IsActive
	}
	if err := s.rules.Update(ctx, rule); err != nil {
		return nil, apperrors.MapError(err)
	}
	return rule, nil
}

// ToggleRule flips a rule's active flag; the next trigger firing sees it.
func (s *RuleService) ToggleRule(ctx context.Context, id string, active bool) (*domain.AutomationRule, error) {
	rule, err := s.getRule(ctx, id)
	if err != nil {
		return nil, err
	}
	rule.IsActive = active
	if err := s.rules.Update(ctx, rule); err != nil {
		return nil, apperrors.MapError(err)
	}
	return rule, nil
}

// DeleteRule removes a rule.
func (s *RuleService) DeleteRule(ctx context.Context, id string) error {
	if err := s.rules.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("rule", map[string]any{"rule_id": id})
		}
		return apperrors.MapError(err)
	}
	return nil
}

// GetRule fetches one rule.
func (s *RuleService) GetRule(ctx context.Context, id string) (*domain.AutomationRule, error) {
	return s.getRule(ctx, id)
}

// ListRules returns rules ordered the way the engine evaluates them.
func (s *RuleService) ListRules(ctx context.Context, limit, offset int) ([]domain.AutomationRule, error) {
	rules, err := s.rules.List(ctx, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return rules, nil
}

// ListRuleExecutions returns the audit records produced by one rule.
func (s *RuleService) ListRuleExecutions(ctx context.Context, ruleID string, limit, offset int) ([]domain.AutomationExecution, error) {
	records, err := s.executions.ListByRule(ctx, ruleID, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return records, nil
}

func (s *RuleService) getRule(ctx context.Context, id string) (*domain.AutomationRule, error) {
	rule, err := s.rules.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("rule", map[string]any{"rule_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return rule, nil
}
