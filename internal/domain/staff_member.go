package domain

import "time"

// StaffRole enumerates internal operator roles.
type StaffRole string

const (
	StaffRoleAgent      StaffRole = "AGENT"
	StaffRoleSupervisor StaffRole = "SUPERVISOR"
	StaffRoleAdmin      StaffRole = "ADMIN"
)

// AssignableRoles are the roles a ticket may be assigned to.
var AssignableRoles = []StaffRole{StaffRoleAgent, StaffRoleSupervisor, StaffRoleAdmin}

// StaffMember models a support agent, supervisor or administrator.
type StaffMember struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         StaffRole
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// StaffWorkload pairs a staff member with their current open assignment count.
type StaffWorkload struct {
	Staff          StaffMember
	ActiveAssigned int
}
