package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/supportdesk/ticketflow/internal/domain"
)

// TicketHistoryRepository stores audit entries. Writes that must be atomic with
// a ticket update go through TicketRepository.ApplyChanges instead.
type TicketHistoryRepository interface {
	Create(ctx context.Context, entry *domain.TicketHistoryEntry) error
	ListByTicket(ctx context.Context, ticketID string, limit, offset int) ([]domain.TicketHistoryEntry, error)
}

type ticketHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewTicketHistoryRepository builds repository.
func NewTicketHistoryRepository(pool *pgxpool.Pool) TicketHistoryRepository {
	return &ticketHistoryRepository{pool: pool}
}

func (r *ticketHistoryRepository) Create(ctx context.Context, entry *domain.TicketHistoryEntry) error {
	const query = `
        INSERT INTO ticket_history (ticket_id, actor_id, action, field, old_value, new_value)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		entry.TicketID,
		entry.ActorID,
		entry.Action,
		entry.Field,
		entry.OldValue,
		entry.NewValue,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *ticketHistoryRepository) ListByTicket(ctx context.Context, ticketID string, limit, offset int) ([]domain.TicketHistoryEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, ticket_id, actor_id, action, field, old_value, new_value, created_at
        FROM ticket_history WHERE ticket_id=$1 ORDER BY created_at ASC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, ticketID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketHistoryEntry
	for rows.Next() {
		var entry domain.TicketHistoryEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.ActorID,
			&entry.Action,
			&entry.Field,
			&entry.OldValue,
			&entry.NewValue,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
