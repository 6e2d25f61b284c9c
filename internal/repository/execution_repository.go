package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/supportdesk/ticketflow/internal/domain"
)

// ExecutionRepository stores append-only automation audit records.
type ExecutionRepository interface {
	Create(ctx context.Context, execution *domain.AutomationExecution) error
	ListByTicket(ctx context.Context, ticketID string, limit, offset int) ([]domain.AutomationExecution, error)
	ListByRule(ctx context.Context, ruleID string, limit, offset int) ([]domain.AutomationExecution, error)
}

type executionRepository struct {
	pool *pgxpool.Pool
}

// NewExecutionRepository builds the repository.
func NewExecutionRepository(pool *pgxpool.Pool) ExecutionRepository {
	return &executionRepository{pool: pool}
}

func (r *executionRepository) Create(ctx context.Context, execution *domain.AutomationExecution) error {
	details, err := json.Marshal(execution.Details)
	if err != nil {
		return fmt.Errorf("marshal details: %w", err)
	}
	const query = `
        INSERT INTO automation_executions (rule_id, ticket_id, success, error, details)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, executed_at`
	return r.pool.QueryRow(ctx, query,
		execution.RuleID,
		execution.TicketID,
		execution.Success,
		execution.Error,
		details,
	).Scan(&execution.ID, &execution.ExecutedAt)
}

func (r *executionRepository) ListByTicket(ctx context.Context, ticketID string, limit, offset int) ([]domain.AutomationExecution, error) {
	return r.list(ctx, "ticket_id", ticketID, limit, offset)
}

func (r *executionRepository) ListByRule(ctx context.Context, ruleID string, limit, offset int) ([]domain.AutomationExecution, error) {
	return r.list(ctx, "rule_id", ruleID, limit, offset)
}

func (r *executionRepository) list(ctx context.Context, column, value string, limit, offset int) ([]domain.AutomationExecution, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	query := fmt.Sprintf(`
        SELECT id, rule_id, ticket_id, success, error, details, executed_at
        FROM automation_executions WHERE %s=$1
        ORDER BY executed_at DESC LIMIT %d OFFSET %d`, column, limit, offset)
	rows, err := r.pool.Query(ctx, query, value)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanExecutions(rows)
}

func scanExecutions(rows pgx.Rows) ([]domain.AutomationExecution, error) {
	var result []domain.AutomationExecution
	for rows.Next() {
		var execution domain.AutomationExecution
		var details []byte
		if err := rows.Scan(
			&execution.ID,
			&execution.RuleID,
			&execution.TicketID,
			&execution.Success,
			&execution.Error,
			&details,
			&execution.ExecutedAt,
		); err != nil {
			return nil, err
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &execution.Details); err != nil {
				return nil, fmt.Errorf("unmarshal details: %w", err)
			}
		}
		result = append(result, execution)
	}
	return result, rows.Err()
}
