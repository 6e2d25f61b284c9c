package service

import (
	"context"

	"github.com/supportdesk/ticketflow/internal/domain"
	"github.com/supportdesk/ticketflow/internal/repository"
)

// DirectoryService supplies staff lists with current active-ticket counts.
// It is the directory source for assignment actions and notification fan-out.
type DirectoryService struct {
	staff repository.StaffRepository
}

// NewDirectoryService builds the service.
func NewDirectoryService(staff repository.StaffRepository) *DirectoryService {
	return &DirectoryService{staff: staff}
}

// ListStaff returns staff members in the given roles along with their current
// open-assignment counts, in stable directory order.
func (d *DirectoryService) ListStaff(ctx context.Context, roles []domain.StaffRole, activeOnly bool) ([]domain.StaffWorkload, error) {
	return d.staff.ListWithWorkload(ctx, roles, activeOnly)
}
