package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/supportdesk/ticketflow/internal/domain"
)

// RuleRepository handles persistence for automation rules. The engine reads
// rules through GetActiveRules only and always sees fresh rows.
type RuleRepository interface {
	Create(ctx context.Context, rule *domain.AutomationRule) error
	Update(ctx context.Context, rule *domain.AutomationRule) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.AutomationRule, error)
	List(ctx context.Context, limit, offset int) ([]domain.AutomationRule, error)
	GetActiveRules(ctx context.Context, trigger domain.Trigger) ([]domain.AutomationRule, error)
}

type ruleRepository struct {
	pool *pgxpool.Pool
}

// NewRuleRepository instantiates the repository.
func NewRuleRepository(pool *pgxpool.Pool) RuleRepository {
	return &ruleRepository{pool: pool}
}

const ruleColumns = `id, name, trigger_event, conditions, actions, is_active, priority, created_by, created_at, updated_at`

func (r *ruleRepository) Create(ctx context.Context, rule *domain.AutomationRule) error {
	conditions, actions, err := marshalRuleBody(rule)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO automation_rules (name, trigger_event, conditions, actions, is_active, priority, created_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		rule.Name,
		rule.Trigger,
		conditions,
		actions,
		rule.IsActive,
		rule.Priority,
		rule.CreatedBy,
	).Scan(&rule.ID, &rule.CreatedAt, &rule.UpdatedAt)
}

func (r *ruleRepository) Update(ctx context.Context, rule *domain.AutomationRule) error {
	conditions, actions, err := marshalRuleBody(rule)
	if err != nil {
		return err
	}
	const query = `
        UPDATE automation_rules
        SET name=$1, trigger_event=$2, conditions=$3, actions=$4, is_active=$5, priority=$6, updated_at=NOW()
        WHERE id=$7`
	cmd, err := r.pool.Exec(ctx, query,
		rule.Name,
		rule.Trigger,
		conditions,
		actions,
		rule.IsActive,
		rule.Priority,
		rule.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ruleRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM automation_rules WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ruleRepository) GetByID(ctx context.Context, id string) (*domain.AutomationRule, error) {
	query := fmt.Sprintf(`SELECT %s FROM automation_rules WHERE id=$1`, ruleColumns)
	var rule domain.AutomationRule
	if err := scanRule(r.pool.QueryRow(ctx, query, id), &rule); err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *ruleRepository) List(ctx context.Context, limit, offset int) ([]domain.AutomationRule, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	query := fmt.Sprintf(`SELECT %s FROM automation_rules ORDER BY priority DESC, created_at ASC LIMIT %d OFFSET %d`,
		ruleColumns, limit, offset)
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRules(rows)
}

// GetActiveRules returns active rules for the trigger ordered by descending
// priority, ties broken by creation order so evaluation is stable.
func (r *ruleRepository) GetActiveRules(ctx context.Context, trigger domain.Trigger) ([]domain.AutomationRule, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM automation_rules
        WHERE trigger_event=$1 AND is_active=true
        ORDER BY priority DESC, created_at ASC`, ruleColumns)
	rows, err := r.pool.Query(ctx, query, trigger)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRules(rows)
}

func marshalRuleBody(rule *domain.AutomationRule) ([]byte, []byte, error) {
	conditions, err := json.Marshal(rule.Conditions)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal conditions: %w", err)
	}
	actions, err := json.Marshal(rule.Actions)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal actions: %w", err)
	}
	return conditions, actions, nil
}

func scanRule(row pgx.Row, rule *domain.AutomationRule) error {
	var conditions, actions []byte
	if err := row.Scan(
		&rule.ID,
		&rule.Name,
		&rule.Trigger,
		&conditions,
		&actions,
		&rule.IsActive,
		&rule.Priority,
		&rule.CreatedBy,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	); err != nil {
		return err
	}
	if err := json.Unmarshal(conditions, &rule.Conditions); err != nil {
		return fmt.Errorf("unmarshal conditions: %w", err)
	}
	if err := json.Unmarshal(actions, &rule.Actions); err != nil {
		return fmt.Errorf("unmarshal actions: %w", err)
	}
	return nil
}

func scanRules(rows pgx.Rows) ([]domain.AutomationRule, error) {
	var result []domain.AutomationRule
	for rows.Next() {
		var rule domain.AutomationRule
		if err := scanRule(rows, &rule); err != nil {
			return nil, err
		}
		result = append(result, rule)
	}
	return result, rows.Err()
}
