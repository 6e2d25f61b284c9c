package service

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supportdesk/ticketflow/internal/domain"
	apperrors "github.com/supportdesk/ticketflow/pkg/util"
)

type memRules struct {
	rules map[string]*domain.AutomationRule
}

func newMemRules() *memRules {
	return &memRules{rules: map[string]*domain.AutomationRule{}}
}

func (m *memRules) Create(_ context.Context, rule *domain.AutomationRule) error {
	if rule.ID == "" {
		rule.ID = "rule-" + rule.Name
	}
	m.rules[rule.ID] = rule
	return nil
}

func (m *memRules) Update(_ context.Context, rule *domain.AutomationRule) error {
	if _, ok := m.rules[rule.ID]; !ok {
		return pgx.ErrNoRows
	}
	m.rules[rule.ID] = rule
	return nil
}

func (m *memRules) Delete(_ context.Context, id string) error {
	if _, ok := m.rules[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.rules, id)
	return nil
}

func (m *memRules) GetByID(_ context.Context, id string) (*domain.AutomationRule, error) {
	rule, ok := m.rules[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *rule
	return &copied, nil
}

func (m *memRules) List(context.Context, int, int) ([]domain.AutomationRule, error) {
	var out []domain.AutomationRule
	for _, rule := range m.rules {
		out = append(out, *rule)
	}
	return out, nil
}

func (m *memRules) GetActiveRules(context.Context, domain.Trigger) ([]domain.AutomationRule, error) {
	return nil, nil
}

func validInput() RuleInput {
	return RuleInput{
		Name:    "auto-assign urgent",
		Trigger: domain.TriggerTicketCreated,
		Conditions: []domain.AutomationCondition{
			{Field: domain.FieldPriority, Op: domain.OpEq, Value: "URGENT"},
		},
		Actions: []domain.AutomationAction{
			{Type: "assign.least_workload"},
		},
		Priority: 10,
	}
}

func supervisor() *domain.StaffMember {
	return &domain.StaffMember{ID: "sup-1", Role: domain.StaffRoleSupervisor, Active: true}
}

func TestCreateRuleDefaultsActive(t *testing.T) {
	svc := NewRuleService(newMemRules(), memExecutions{})

	rule, err := svc.CreateRule(context.Background(), supervisor(), validInput())
	require.NoError(t, err)
	assert.True(t, rule.IsActive)
	require.NotNil(t, rule.CreatedBy)
	assert.Equal(t, "sup-1", *rule.CreatedBy)
}

func TestCreateRuleValidation(t *testing.T) {
	svc := NewRuleService(newMemRules(), memExecutions{})

	cases := []struct {
		name   string
		mutate func(*RuleInput)
	}{
		{"empty name", func(in *RuleInput) { in.Name = "  " }},
		{"unknown trigger", func(in *RuleInput) { in.Trigger = "TICKET_LEVITATED" }},
		{"unknown operator", func(in *RuleInput) { in.Conditions[0].Op = "matches" }},
		{"empty action type", func(in *RuleInput) { in.Actions[0].Type = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := validInput()
			tc.mutate(&input)
			_, err := svc.CreateRule(context.Background(), supervisor(), input)
			require.Error(t, err)
			var domainErr *apperrors.DomainError
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
		})
	}
}

func TestCreateRuleRequiresStaff(t *testing.T) {
	svc := NewRuleService(newMemRules(), memExecutions{})
	_, err := svc.CreateRule(context.Background(), nil, validInput())
	require.Error(t, err)
}

func TestToggleRule(t *testing.T) {
	rules := newMemRules()
	svc := NewRuleService(rules, memExecutions{})

	rule, err := svc.CreateRule(context.Background(), supervisor(), validInput())
	require.NoError(t, err)

	toggled, err := svc.ToggleRule(context.Background(), rule.ID, false)
	require.NoError(t, err)
	assert.False(t, toggled.IsActive)
	assert.False(t, rules.rules[rule.ID].IsActive)
}

func TestDeleteMissingRuleIsNotFound(t *testing.T) {
	svc := NewRuleService(newMemRules(), memExecutions{})
	err := svc.DeleteRule(context.Background(), "nope")
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
}
