package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/supportdesk/ticketflow/internal/domain"
)

// TicketFilter captures listing parameters.
type TicketFilter struct {
	CustomerID   *string
	AssignedToID *string
	Statuses     []domain.TicketStatus
	Priorities   []domain.TicketPriority
	SearchTerm   *string
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
	Limit        int
	Offset       int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByNumber(ctx context.Context, number string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	// ApplyChanges updates the ticket and appends the given history entries in
	// a single transaction, returning the updated row.
	ApplyChanges(ctx context.Context, ticketID string, changes domain.TicketChanges, entries []domain.TicketHistoryEntry) (*domain.Ticket, error)
	// CountActiveAssigned counts non-terminal tickets assigned to a staff member.
	CountActiveAssigned(ctx context.Context, staffID string) (int, error)
	// ListSLACandidates returns non-terminal tickets whose deadline falls inside
	// the warning window (and have not been warned) or is already past due
	// (and have not been marked breached).
	ListSLACandidates(ctx context.Context, now time.Time, warningWindow time.Duration) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, ticket_number, title, description, status, priority, issue_type,
               assigned_to_id, customer_id, sla_deadline, sla_breached, sla_warned, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (ticket_number, title, description, status, priority, issue_type,
            assigned_to_id, customer_id, sla_deadline, sla_breached, sla_warned)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.Number,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.IssueType,
		ticket.AssignedToID,
		ticket.CustomerID,
		ticket.SLADeadline,
		ticket.SLABreached,
		ticket.SLAWarned,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1`, ticketColumns)
	return r.fetchSingle(ctx, r.pool, query, id)
}

func (r *ticketRepository) GetByNumber(ctx context.Context, number string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE ticket_number=$1`, ticketColumns)
	return r.fetchSingle(ctx, r.pool, query, number)
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *ticketRepository) fetchSingle(ctx context.Context, q rowQuerier, query string, arg any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := scanTicket(q.QueryRow(ctx, query, arg), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func scanTicket(row pgx.Row, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.Number,
		&ticket.Title,
		&ticket.Description,
		&ticket.Status,
		&ticket.Priority,
		&ticket.IssueType,
		&ticket.AssignedToID,
		&ticket.CustomerID,
		&ticket.SLADeadline,
		&ticket.SLABreached,
		&ticket.SLAWarned,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	)
}

func (r *ticketRepository) ApplyChanges(ctx context.Context, ticketID string, changes domain.TicketChanges, entries []domain.TicketHistoryEntry) (*domain.Ticket, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	lockQuery := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1 FOR UPDATE`, ticketColumns)
	ticket, err := r.fetchSingle(ctx, tx, lockQuery, ticketID)
	if err != nil {
		return nil, err
	}

	applyTicketChanges(ticket, changes)

	const update = `
        UPDATE tickets SET title=$1, description=$2, status=$3, priority=$4, issue_type=$5,
            assigned_to_id=$6, sla_deadline=$7, sla_breached=$8, sla_warned=$9, updated_at=NOW()
        WHERE id=$10
        RETURNING updated_at`
	if err := tx.QueryRow(ctx, update,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.IssueType,
		ticket.AssignedToID,
		ticket.SLADeadline,
		ticket.SLABreached,
		ticket.SLAWarned,
		ticket.ID,
	).Scan(&ticket.UpdatedAt); err != nil {
		return nil, err
	}

	const insertHistory = `
        INSERT INTO ticket_history (ticket_id, actor_id, action, field, old_value, new_value)
        VALUES ($1,$2,$3,$4,$5,$6)`
	for i := range entries {
		entry := &entries[i]
		if _, err := tx.Exec(ctx, insertHistory,
			ticket.ID,
			entry.ActorID,
			entry.Action,
			entry.Field,
			entry.OldValue,
			entry.NewValue,
		); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ticket, nil
}

func applyTicketChanges(ticket *domain.Ticket, changes domain.TicketChanges) {
	if changes.Title != nil {
		ticket.Title = *changes.Title
	}
	if changes.Description != nil {
		ticket.Description = *changes.Description
	}
	if changes.Status != nil {
		ticket.Status = *changes.Status
	}
	if changes.Priority != nil {
		ticket.Priority = *changes.Priority
	}
	if changes.IssueType != nil {
		ticket.IssueType = *changes.IssueType
	}
	if changes.AssignedToID != nil {
		ticket.AssignedToID = *changes.AssignedToID
	}
	if changes.SLADeadline != nil {
		ticket.SLADeadline = *changes.SLADeadline
	}
	if changes.SLABreached != nil {
		ticket.SLABreached = *changes.SLABreached
	}
	if changes.SLAWarned != nil {
		ticket.SLAWarned = *changes.SLAWarned
	}
}

func (r *ticketRepository) CountActiveAssigned(ctx context.Context, staffID string) (int, error) {
	const query = `
        SELECT COUNT(*) FROM tickets
        WHERE assigned_to_id=$1 AND status NOT IN ('RESOLVED','CLOSED')`
	var count int
	if err := r.pool.QueryRow(ctx, query, staffID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ticketRepository) ListSLACandidates(ctx context.Context, now time.Time, warningWindow time.Duration) ([]domain.Ticket, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM tickets
        WHERE sla_deadline IS NOT NULL
          AND status NOT IN ('RESOLVED','CLOSED')
          AND ((sla_breached = false AND sla_deadline <= $1)
            OR (sla_warned = false AND sla_deadline <= $2))
        ORDER BY sla_deadline ASC`, ticketColumns)
	rows, err := r.pool.Query(ctx, query, now, now.Add(warningWindow))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := fmt.Sprintf(`SELECT %s FROM tickets`, ticketColumns)
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		clauses = append(clauses, fmt.Sprintf("customer_id=$%d", len(args)))
	}
	if filter.AssignedToID != nil {
		args = append(args, *filter.AssignedToID)
		clauses = append(clauses, fmt.Sprintf("assigned_to_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(description) LIKE %s)", placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
