package automation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/supportdesk/ticketflow/internal/domain"
	"github.com/supportdesk/ticketflow/internal/observability"
)

type fakeRules struct {
	rules []domain.AutomationRule
	err   error
}

func (f *fakeRules) GetActiveRules(_ context.Context, _ domain.Trigger) ([]domain.AutomationRule, error) {
	return f.rules, f.err
}

type fakeAudit struct {
	executions []domain.AutomationExecution
	err        error
}

func (f *fakeAudit) AppendExecution(_ context.Context, execution *domain.AutomationExecution) error {
	if f.err != nil {
		return f.err
	}
	f.executions = append(f.executions, *execution)
	return nil
}

type fakeStore struct {
	applied []domain.TicketChanges
	err     error
}

func (f *fakeStore) ApplyChanges(_ context.Context, _ string, changes domain.TicketChanges, _ []domain.TicketHistoryEntry) (*domain.Ticket, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.applied = append(f.applied, changes)
	ticket := sampleTicket()
	applyTestChanges(ticket, changes)
	return ticket, nil
}

func applyTestChanges(ticket *domain.Ticket, changes domain.TicketChanges) {
	if changes.Status != nil {
		ticket.Status = *changes.Status
	}
	if changes.Priority != nil {
		ticket.Priority = *changes.Priority
	}
	if changes.AssignedToID != nil {
		ticket.AssignedToID = *changes.AssignedToID
	}
}

type fakeDirectory struct {
	staff []domain.StaffWorkload
	err   error
}

func (f *fakeDirectory) ListStaff(_ context.Context, _ []domain.StaffRole, _ bool) ([]domain.StaffWorkload, error) {
	return f.staff, f.err
}

type sentNotification struct {
	UserID string
	Kind   domain.NotificationKind
}

type fakeNotifier struct {
	sent []sentNotification
	err  error
}

func (f *fakeNotifier) Notify(_ context.Context, userID string, kind domain.NotificationKind, _ string, _ map[string]any) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentNotification{UserID: userID, Kind: kind})
	return nil
}

func newTestEngine(rules *fakeRules, audit *fakeAudit, store *fakeStore, directory *fakeDirectory, notifier *fakeNotifier) *Engine {
	executor := NewActionExecutor(store, directory, notifier, zap.NewNop())
	return NewEngine(rules, audit, executor, Evaluator{}, zap.NewNop(), observability.NewMetrics())
}

func matchAllRule(id string, priority int, actions ...domain.AutomationAction) domain.AutomationRule {
	return domain.AutomationRule{
		ID:       id,
		Name:     "rule-" + id,
		Trigger:  domain.TriggerTicketCreated,
		Actions:  actions,
		IsActive: true,
		Priority: priority,
	}
}

func TestProcessTriggerAuditsEveryRule(t *testing.T) {
	rules := &fakeRules{rules: []domain.AutomationRule{
		matchAllRule("r1", 20),
		matchAllRule("r2", 10, domain.AutomationAction{Type: ActionClose}),
		matchAllRule("r3", 5),
	}}
	audit := &fakeAudit{}
	engine := newTestEngine(rules, audit, &fakeStore{}, &fakeDirectory{}, &fakeNotifier{})

	engine.ProcessTrigger(context.Background(), domain.TriggerTicketCreated, sampleTicket())

	require.Len(t, audit.executions, 3)
	assert.Equal(t, "r1", audit.executions[0].RuleID)
	assert.Equal(t, "r2", audit.executions[1].RuleID)
	assert.Equal(t, "r3", audit.executions[2].RuleID)
	for _, execution := range audit.executions {
		assert.True(t, execution.Success)
		assert.Equal(t, "ticket-1", execution.TicketID)
	}
	assert.Equal(t, 1, audit.executions[1].Details.ActionsExecuted)
}

func TestProcessTriggerFailingRuleDoesNotStopOthers(t *testing.T) {
	rules := &fakeRules{rules: []domain.AutomationRule{
		matchAllRule("r1", 20, domain.AutomationAction{Type: ActionNotifyTeam}),
		matchAllRule("r2", 10, domain.AutomationAction{Type: ActionNotifyTeam}),
	}}
	audit := &fakeAudit{}
	directory := &fakeDirectory{err: errors.New("directory down")}
	engine := newTestEngine(rules, audit, &fakeStore{}, directory, &fakeNotifier{})

	engine.ProcessTrigger(context.Background(), domain.TriggerTicketCreated, sampleTicket())

	require.Len(t, audit.executions, 2)
	assert.False(t, audit.executions[0].Success)
	require.NotNil(t, audit.executions[0].Error)
	assert.Contains(t, *audit.executions[0].Error, "directory down")
	assert.False(t, audit.executions[1].Success)

	successes, failures := engine.metrics.RuleOutcomes()
	assert.Equal(t, int64(0), successes)
	assert.Equal(t, int64(2), failures)
}

func TestProcessTriggerNonMatchingRuleIsAuditedAsSuccess(t *testing.T) {
	rule := matchAllRule("r1", 0, domain.AutomationAction{Type: ActionClose})
	rule.Conditions = []domain.AutomationCondition{
		{Field: domain.FieldPriority, Op: domain.OpEq, Value: "LOW"},
	}
	audit := &fakeAudit{}
	store := &fakeStore{}
	engine := newTestEngine(&fakeRules{rules: []domain.AutomationRule{rule}}, audit, store, &fakeDirectory{}, &fakeNotifier{})

	engine.ProcessTrigger(context.Background(), domain.TriggerTicketCreated, sampleTicket())

	require.Len(t, audit.executions, 1)
	assert.True(t, audit.executions[0].Success)
	assert.Equal(t, 1, audit.executions[0].Details.ConditionsChecked)
	assert.Equal(t, 0, audit.executions[0].Details.ActionsExecuted)
	assert.Empty(t, store.applied, "non-matching rule must not execute actions")
}

func TestProcessTriggerRuleLoadFailure(t *testing.T) {
	audit := &fakeAudit{}
	engine := newTestEngine(&fakeRules{err: errors.New("db down")}, audit, &fakeStore{}, &fakeDirectory{}, &fakeNotifier{})

	engine.ProcessTrigger(context.Background(), domain.TriggerTicketCreated, sampleTicket())

	assert.Empty(t, audit.executions)
}

func TestProcessTriggerNilTicket(t *testing.T) {
	audit := &fakeAudit{}
	engine := newTestEngine(&fakeRules{rules: []domain.AutomationRule{matchAllRule("r1", 0)}}, audit, &fakeStore{}, &fakeDirectory{}, &fakeNotifier{})

	engine.ProcessTrigger(context.Background(), domain.TriggerTicketCreated, nil)

	assert.Empty(t, audit.executions)
}

type panickingStore struct{}

func (panickingStore) ApplyChanges(context.Context, string, domain.TicketChanges, []domain.TicketHistoryEntry) (*domain.Ticket, error) {
	panic("boom")
}

func TestProcessTriggerRecoversPanic(t *testing.T) {
	rules := &fakeRules{rules: []domain.AutomationRule{
		matchAllRule("r1", 20, domain.AutomationAction{Type: ActionClose}),
		matchAllRule("r2", 10),
	}}
	audit := &fakeAudit{}
	executor := NewActionExecutor(panickingStore{}, &fakeDirectory{}, &fakeNotifier{}, zap.NewNop())
	engine := NewEngine(rules, audit, executor, Evaluator{}, zap.NewNop(), nil)

	engine.ProcessTrigger(context.Background(), domain.TriggerTicketCreated, sampleTicket())

	require.Len(t, audit.executions, 2)
	assert.False(t, audit.executions[0].Success)
	require.NotNil(t, audit.executions[0].Error)
	assert.Contains(t, *audit.executions[0].Error, "panicked")
	assert.True(t, audit.executions[1].Success)
}

func TestProcessTriggerLaterRulesSeeEarlierMutations(t *testing.T) {
	escalated := matchAllRule("r1", 20, domain.AutomationAction{Type: ActionEscalate})
	closeEscalated := matchAllRule("r2", 10, domain.AutomationAction{Type: ActionClose})
	closeEscalated.Conditions = []domain.AutomationCondition{
		{Field: domain.FieldStatus, Op: domain.OpEq, Value: "ESCALATED"},
	}

	store := &fakeStore{}
	audit := &fakeAudit{}
	engine := newTestEngine(&fakeRules{rules: []domain.AutomationRule{escalated, closeEscalated}}, audit, store, &fakeDirectory{}, &fakeNotifier{})

	ticket := sampleTicket()
	engine.ProcessTrigger(context.Background(), domain.TriggerTicketCreated, ticket)

	require.Len(t, audit.executions, 2)
	assert.True(t, audit.executions[1].Success)
	assert.Equal(t, 1, audit.executions[1].Details.ActionsExecuted, "second rule must observe the escalated status")
	assert.Equal(t, domain.TicketStatusClosed, ticket.Status)
}
