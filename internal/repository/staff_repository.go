package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/supportdesk/ticketflow/internal/domain"
)

// StaffRepository handles persistence for staff members and doubles as the
// directory source for assignment decisions.
type StaffRepository interface {
	Create(ctx context.Context, staff *domain.StaffMember) error
	Update(ctx context.Context, staff *domain.StaffMember) error
	GetByID(ctx context.Context, id string) (*domain.StaffMember, error)
	GetByEmail(ctx context.Context, email string) (*domain.StaffMember, error)
	List(ctx context.Context, filter StaffFilter) ([]domain.StaffMember, error)
	// ListWithWorkload returns staff in the given roles together with the count
	// of non-terminal tickets currently assigned to each, ordered by creation
	// time so tie-breaking is deterministic.
	ListWithWorkload(ctx context.Context, roles []domain.StaffRole, activeOnly bool) ([]domain.StaffWorkload, error)
}

// StaffFilter defines query params for staff listing.
type StaffFilter struct {
	Role   *domain.StaffRole
	Active *bool
	Limit  int
	Offset int
}

type staffRepository struct {
	pool *pgxpool.Pool
}

// NewStaffRepository instantiates the repository.
func NewStaffRepository(pool *pgxpool.Pool) StaffRepository {
	return &staffRepository{pool: pool}
}

const staffColumns = `id, name, email, password_hash, role, active_flag, created_at, updated_at`

func (r *staffRepository) Create(ctx context.Context, staff *domain.StaffMember) error {
	const query = `
        INSERT INTO staff_members (name, email, password_hash, role, active_flag)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		staff.Name,
		staff.Email,
		staff.PasswordHash,
		staff.Role,
		staff.Active,
	).Scan(&staff.ID, &staff.CreatedAt, &staff.UpdatedAt)
}

func (r *staffRepository) Update(ctx context.Context, staff *domain.StaffMember) error {
	const query = `
        UPDATE staff_members
        SET name=$1, email=$2, password_hash=$3, role=$4, active_flag=$5, updated_at=NOW()
        WHERE id=$6`
	cmd, err := r.pool.Exec(ctx, query,
		staff.Name,
		staff.Email,
		staff.PasswordHash,
		staff.Role,
		staff.Active,
		staff.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *staffRepository) GetByID(ctx context.Context, id string) (*domain.StaffMember, error) {
	query := fmt.Sprintf(`SELECT %s FROM staff_members WHERE id=$1`, staffColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *staffRepository) GetByEmail(ctx context.Context, email string) (*domain.StaffMember, error) {
	query := fmt.Sprintf(`SELECT %s FROM staff_members WHERE email=$1`, staffColumns)
	return r.fetchSingle(ctx, query, email)
}

func (r *staffRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.StaffMember, error) {
	var staff domain.StaffMember
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&staff.ID,
		&staff.Name,
		&staff.Email,
		&staff.PasswordHash,
		&staff.Role,
		&staff.Active,
		&staff.CreatedAt,
		&staff.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &staff, nil
}

func (r *staffRepository) List(ctx context.Context, filter StaffFilter) ([]domain.StaffMember, error) {
	query := fmt.Sprintf(`SELECT %s FROM staff_members`, staffColumns)
	args := []any{}
	clauses := []string{}

	if filter.Role != nil {
		args = append(args, *filter.Role)
		clauses = append(clauses, fmt.Sprintf("role=$%d", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		clauses = append(clauses, fmt.Sprintf("active_flag=$%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	query += " ORDER BY created_at ASC"
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StaffMember
	for rows.Next() {
		var staff domain.StaffMember
		if err := rows.Scan(
			&staff.ID,
			&staff.Name,
			&staff.Email,
			&staff.PasswordHash,
			&staff.Role,
			&staff.Active,
			&staff.CreatedAt,
			&staff.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, staff)
	}
	return result, rows.Err()
}

func (r *staffRepository) ListWithWorkload(ctx context.Context, roles []domain.StaffRole, activeOnly bool) ([]domain.StaffWorkload, error) {
	if len(roles) == 0 {
		return nil, nil
	}
	args := []any{}
	placeholders := make([]string, len(roles))
	for i, role := range roles {
		args = append(args, role)
		placeholders[i] = fmt.Sprintf("$%d", len(args))
	}
	query := fmt.Sprintf(`
        SELECT s.id, s.name, s.email, s.password_hash, s.role, s.active_flag, s.created_at, s.updated_at,
               COUNT(t.id) AS active_assigned
        FROM staff_members s
        LEFT JOIN tickets t ON t.assigned_to_id = s.id AND t.status NOT IN ('RESOLVED','CLOSED')
        WHERE s.role IN (%s)`, strings.Join(placeholders, ","))
	if activeOnly {
		query += " AND s.active_flag = true"
	}
	query += `
        GROUP BY s.id
        ORDER BY s.created_at ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StaffWorkload
	for rows.Next() {
		var entry domain.StaffWorkload
		if err := rows.Scan(
			&entry.Staff.ID,
			&entry.Staff.Name,
			&entry.Staff.Email,
			&entry.Staff.PasswordHash,
			&entry.Staff.Role,
			&entry.Staff.Active,
			&entry.Staff.CreatedAt,
			&entry.Staff.UpdatedAt,
			&entry.ActiveAssigned,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
