package automation

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/supportdesk/ticketflow/internal/domain"
	"github.com/supportdesk/ticketflow/internal/observability"
)

// RuleSource loads the rules to evaluate for one trigger firing. Rules are
// read fresh on every firing: a toggled is_active flag takes effect on the
// next trigger, never from a cache.
type RuleSource interface {
	GetActiveRules(ctx context.Context, trigger domain.Trigger) ([]domain.AutomationRule, error)
}

// AuditLog persists one execution record per rule evaluated.
type AuditLog interface {
	AppendExecution(ctx context.Context, execution *domain.AutomationExecution) error
}

// Engine orchestrates rule selection, condition evaluation, action execution
// and audit logging for a trigger firing.
//
// Callers must not process two triggers for the same ticket concurrently;
// rules for one ticket run strictly in order so that later rules observe the
// mutations earlier rules made. Triggers for different tickets are independent
// and safe to process in parallel.
type Engine struct {
	rules     RuleSource
	audit     AuditLog
	executor  *ActionExecutor
	evaluator Evaluator
	logger    *zap.Logger
	metrics   *observability.Metrics
}

// NewEngine constructs the engine.
func NewEngine(rules RuleSource, audit AuditLog, executor *ActionExecutor, evaluator Evaluator, logger *zap.Logger, metrics *observability.Metrics) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		rules:     rules,
		audit:     audit,
		executor:  executor,
		evaluator: evaluator,
		logger:    logger,
		metrics:   metrics,
	}
}

// ProcessTrigger evaluates every active rule for the trigger against the
// ticket. It never propagates failures to the caller: each rule runs inside
// its own failure boundary, degrading to an audited failure record, and
// processing always continues with the next rule.
func (e *Engine) ProcessTrigger(ctx context.Context, trigger domain.Trigger, ticket *domain.Ticket) {
	if ticket == nil {
		return
	}
	e.metrics.RecordTriggerFired(string(trigger))

	rules, err := e.rules.GetActiveRules(ctx, trigger)
	if err != nil {
		e.logger.Error("automation: load rules failed",
			zap.String("trigger", string(trigger)),
			zap.String("ticket_id", ticket.ID),
			zap.Error(err))
		return
	}

	for _, rule := range rules {
		details, ruleErr := e.runRule(ctx, &rule, ticket)
		e.metrics.RecordRuleOutcome(ruleErr == nil)

		execution := &domain.AutomationExecution{
			RuleID:   rule.ID,
			TicketID: ticket.ID,
			Success:  ruleErr == nil,
			Details:  details,
		}
		if ruleErr != nil {
			msg := ruleErr.Error()
			execution.Error = &msg
			e.logger.Warn("automation: rule failed",
				zap.String("rule_id", rule.ID),
				zap.String("rule_name", rule.Name),
				zap.String("ticket_id", ticket.ID),
				zap.Error(ruleErr))
		}
		if err := e.audit.AppendExecution(ctx, execution); err != nil {
			e.logger.Error("automation: audit write failed",
				zap.String("rule_id", rule.ID),
				zap.String("ticket_id", ticket.ID),
				zap.Error(err))
		}
	}
}

// runRule evaluates and executes a single rule. Panics inside condition or
// action code are converted into rule failures so one bad rule cannot take
// down trigger processing.
func (e *Engine) runRule(ctx context.Context, rule *domain.AutomationRule, ticket *domain.Ticket) (details domain.ExecutionDetails, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("rule panicked: %v", r)
		}
	}()

	details.ConditionsChecked = len(rule.Conditions)
	matched, err := e.evaluator.Evaluate(rule.Conditions, ticket)
	if err != nil {
		return details, fmt.Errorf("evaluate conditions: %w", err)
	}
	if !matched {
		return details, nil
	}

	for _, action := range rule.Actions {
		if err := e.executor.Execute(ctx, action, ticket); err != nil {
			return details, fmt.Errorf("action %s: %w", action.Type, err)
		}
		details.ActionsExecuted++
	}
	return details, nil
}
