package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supportdesk/ticketflow/internal/domain"
	"github.com/supportdesk/ticketflow/internal/events"
	"github.com/supportdesk/ticketflow/internal/repository"
	apperrors "github.com/supportdesk/ticketflow/pkg/util"
)

type memTickets struct {
	tickets map[string]*domain.Ticket
	history []domain.TicketHistoryEntry
}

func newMemTickets(tickets ...*domain.Ticket) *memTickets {
	m := &memTickets{tickets: map[string]*domain.Ticket{}}
	for _, ticket := range tickets {
		m.tickets[ticket.ID] = ticket
	}
	return m
}

func (m *memTickets) Create(_ context.Context, ticket *domain.Ticket) error {
	if ticket.ID == "" {
		ticket.ID = "ticket-" + ticket.Number
	}
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	copied := *ticket
	m.tickets[ticket.ID] = &copied
	return nil
}

func (m *memTickets) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	ticket, ok := m.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *ticket
	return &copied, nil
}

func (m *memTickets) GetByNumber(_ context.Context, number string) (*domain.Ticket, error) {
	for _, ticket := range m.tickets {
		if ticket.Number == number {
			copied := *ticket
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memTickets) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	var out []domain.Ticket
	for _, ticket := range m.tickets {
		if filter.CustomerID != nil {
			if ticket.CustomerID == nil || *ticket.CustomerID != *filter.CustomerID {
				continue
			}
		}
		out = append(out, *ticket)
	}
	return out, nil
}

func (m *memTickets) ApplyChanges(_ context.Context, ticketID string, changes domain.TicketChanges, entries []domain.TicketHistoryEntry) (*domain.Ticket, error) {
	ticket, ok := m.tickets[ticketID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
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
	if changes.SLABreached != nil {
		ticket.SLABreached = *changes.SLABreached
	}
	if changes.SLAWarned != nil {
		ticket.SLAWarned = *changes.SLAWarned
	}
	ticket.UpdatedAt = time.Now()
	m.history = append(m.history, entries...)
	copied := *ticket
	return &copied, nil
}

func (m *memTickets) CountActiveAssigned(context.Context, string) (int, error) {
	return 0, nil
}

func (m *memTickets) ListSLACandidates(context.Context, time.Time, time.Duration) ([]domain.Ticket, error) {
	return nil, nil
}

type memHistory struct {
	entries []domain.TicketHistoryEntry
}

func (m *memHistory) Create(_ context.Context, entry *domain.TicketHistoryEntry) error {
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memHistory) ListByTicket(_ context.Context, ticketID string, _, _ int) ([]domain.TicketHistoryEntry, error) {
	var out []domain.TicketHistoryEntry
	for _, entry := range m.entries {
		if entry.TicketID == ticketID {
			out = append(out, entry)
		}
	}
	return out, nil
}

type memStaff struct {
	members map[string]*domain.StaffMember
}

func (m *memStaff) Create(_ context.Context, staff *domain.StaffMember) error {
	m.members[staff.ID] = staff
	return nil
}

func (m *memStaff) Update(_ context.Context, staff *domain.StaffMember) error {
	m.members[staff.ID] = staff
	return nil
}

func (m *memStaff) GetByID(_ context.Context, id string) (*domain.StaffMember, error) {
	staff, ok := m.members[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return staff, nil
}

func (m *memStaff) GetByEmail(_ context.Context, email string) (*domain.StaffMember, error) {
	for _, staff := range m.members {
		if staff.Email == email {
			return staff, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memStaff) List(context.Context, repository.StaffFilter) ([]domain.StaffMember, error) {
	return nil, nil
}

func (m *memStaff) ListWithWorkload(context.Context, []domain.StaffRole, bool) ([]domain.StaffWorkload, error) {
	return nil, nil
}

type memExecutions struct{}

func (memExecutions) Create(context.Context, *domain.AutomationExecution) error { return nil }
func (memExecutions) ListByTicket(context.Context, string, int, int) ([]domain.AutomationExecution, error) {
	return nil, nil
}
func (memExecutions) ListByRule(context.Context, string, int, int) ([]domain.AutomationExecution, error) {
	return nil, nil
}

type recordingDispatcher struct {
	published []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.published = append(d.published, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) types() []events.EventType {
	out := make([]events.EventType, 0, len(d.published))
	for _, event := range d.published {
		out = append(out, event.Type)
	}
	return out
}

type recordingNotifier struct {
	recipients []string
}

func (n *recordingNotifier) Notify(_ context.Context, userID string, _ domain.NotificationKind, _ string, _ map[string]any) error {
	n.recipients = append(n.recipients, userID)
	return nil
}

func ptr[T any](v T) *T { return &v }

func fixtureTicket() *domain.Ticket {
	return &domain.Ticket{
		ID:         "t1",
		Number:     "TKT-ABCD1234",
		Title:      "vpn broken",
		Status:     domain.TicketStatusOpen,
		Priority:   domain.TicketPriorityMedium,
		CustomerID: ptr("cust-1"),
	}
}

func newFixtureService(tickets *memTickets, staff *memStaff, dispatcher *recordingDispatcher, notifier *recordingNotifier) (*TicketService, *memHistory) {
	history := &memHistory{}
	if staff == nil {
		staff = &memStaff{members: map[string]*domain.StaffMember{}}
	}
	svc := NewTicketService(TicketDependencies{
		TicketRepo:    tickets,
		HistoryRepo:   history,
		StaffRepo:     staff,
		ExecutionRepo: memExecutions{},
		Dispatcher:    dispatcher,
		Notifier:      notifier,
		SLATargets: map[domain.TicketPriority]time.Duration{
			domain.TicketPriorityUrgent: 4 * time.Hour,
			domain.TicketPriorityMedium: 24 * time.Hour,
		},
	})
	return svc, history
}

func customerActor(id string) Actor {
	return Actor{Type: domain.SubjectTypeUser, User: &domain.User{ID: id}}
}

func staffActorFor(staff *domain.StaffMember) Actor {
	return Actor{Type: domain.SubjectTypeStaff, Staff: staff}
}

func TestCreateTicketDefaultsAndEvent(t *testing.T) {
	tickets := newMemTickets()
	dispatcher := &recordingDispatcher{}
	svc, history := newFixtureService(tickets, nil, dispatcher, &recordingNotifier{})

	ticket, err := svc.CreateTicket(context.Background(), "cust-1", TicketCreateInput{
		Title:       "  need help  ",
		Description: "something broke",
	})
	require.NoError(t, err)

	assert.Equal(t, "need help", ticket.Title)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
	assert.Regexp(t, `^TKT-[0-9A-F]{8}$`, ticket.Number)
	require.NotNil(t, ticket.SLADeadline)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), *ticket.SLADeadline, time.Minute)

	require.Len(t, history.entries, 1)
	assert.Equal(t, domain.HistoryActionCreated, history.entries[0].Action)

	require.Len(t, dispatcher.published, 1)
	assert.Equal(t, events.EventTicketCreated, dispatcher.published[0].Type)
}

func TestCreateTicketRequiresTitle(t *testing.T) {
	svc, _ := newFixtureService(newMemTickets(), nil, &recordingDispatcher{}, &recordingNotifier{})
	_, err := svc.CreateTicket(context.Background(), "cust-1", TicketCreateInput{Description: "no title"})
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
}

func TestCustomerMayOnlyReopenOwnTicket(t *testing.T) {
	ticket := fixtureTicket()
	ticket.Status = domain.TicketStatusResolved
	tickets := newMemTickets(ticket)
	dispatcher := &recordingDispatcher{}
	svc, _ := newFixtureService(tickets, nil, dispatcher, &recordingNotifier{})

	updated, err := svc.UpdateTicket(context.Background(), customerActor("cust-1"), "t1", domain.TicketChanges{
		Status: ptr(domain.TicketStatusReopened),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusReopened, updated.Status)
	assert.Contains(t, dispatcher.types(), events.EventTicketStatusChanged)
}

func TestCustomerCannotTouchOtherFields(t *testing.T) {
	cases := []domain.TicketChanges{
		{Priority: ptr(domain.TicketPriorityUrgent)},
		{Status: ptr(domain.TicketStatusClosed)},
		{Status: ptr(domain.TicketStatusReopened), Priority: ptr(domain.TicketPriorityUrgent)},
		{Title: ptr("new title")},
	}
	for _, patch := range cases {
		ticket := fixtureTicket()
		svc, _ := newFixtureService(newMemTickets(ticket), nil, &recordingDispatcher{}, &recordingNotifier{})
		_, err := svc.UpdateTicket(context.Background(), customerActor("cust-1"), "t1", patch)
		require.Error(t, err)
		var domainErr *apperrors.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "FORBIDDEN", domainErr.Code)
	}
}

func TestCustomerCannotReopenForeignTicket(t *testing.T) {
	svc, _ := newFixtureService(newMemTickets(fixtureTicket()), nil, &recordingDispatcher{}, &recordingNotifier{})
	_, err := svc.UpdateTicket(context.Background(), customerActor("cust-2"), "t1", domain.TicketChanges{
		Status: ptr(domain.TicketStatusReopened),
	})
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "FORBIDDEN", domainErr.Code)
}

func TestStaffUpdateWritesOneEntryPerField(t *testing.T) {
	ticket := fixtureTicket()
	tickets := newMemTickets(ticket)
	agent := &domain.StaffMember{ID: "agent-1", Role: domain.StaffRoleAgent, Active: true}
	staff := &memStaff{members: map[string]*domain.StaffMember{"agent-1": agent}}
	dispatcher := &recordingDispatcher{}
	svc, _ := newFixtureService(tickets, staff, dispatcher, &recordingNotifier{})

	updated, err := svc.UpdateTicket(context.Background(), staffActorFor(agent), "t1", domain.TicketChanges{
		Status:       ptr(domain.TicketStatusInProgress),
		Priority:     ptr(domain.TicketPriorityHigh),
		AssignedToID: ptr(ptr("agent-1")),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, updated.Status)
	assert.Equal(t, domain.TicketPriorityHigh, updated.Priority)

	require.Len(t, tickets.history, 3)
	fields := map[string]bool{}
	for _, entry := range tickets.history {
		fields[entry.Field] = true
		require.NotNil(t, entry.ActorID)
		assert.Equal(t, "agent-1", *entry.ActorID)
	}
	assert.True(t, fields["status"])
	assert.True(t, fields["priority"])
	assert.True(t, fields["assignedToId"])
}

func TestStaffUpdateRejectsInactiveAssignee(t *testing.T) {
	ticket := fixtureTicket()
	inactive := &domain.StaffMember{ID: "agent-2", Role: domain.StaffRoleAgent, Active: false}
	actor := &domain.StaffMember{ID: "sup-1", Role: domain.StaffRoleSupervisor, Active: true}
	staff := &memStaff{members: map[string]*domain.StaffMember{"agent-2": inactive, "sup-1": actor}}
	svc, _ := newFixtureService(newMemTickets(ticket), staff, &recordingDispatcher{}, &recordingNotifier{})

	_, err := svc.UpdateTicket(context.Background(), staffActorFor(actor), "t1", domain.TicketChanges{
		AssignedToID: ptr(ptr("agent-2")),
	})
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "CONFLICT", domainErr.Code)
}

func TestNoOpUpdateWritesNothing(t *testing.T) {
	ticket := fixtureTicket()
	tickets := newMemTickets(ticket)
	agent := &domain.StaffMember{ID: "agent-1", Role: domain.StaffRoleAgent, Active: true}
	staff := &memStaff{members: map[string]*domain.StaffMember{"agent-1": agent}}
	dispatcher := &recordingDispatcher{}
	svc, _ := newFixtureService(tickets, staff, dispatcher, &recordingNotifier{})

	updated, err := svc.UpdateTicket(context.Background(), staffActorFor(agent), "t1", domain.TicketChanges{
		Status: ptr(domain.TicketStatusOpen),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, updated.Status)
	assert.Empty(t, tickets.history)
	assert.Empty(t, dispatcher.published)
}

func TestResolvedAndClosedEmitDedicatedEvents(t *testing.T) {
	agent := &domain.StaffMember{ID: "agent-1", Role: domain.StaffRoleAgent, Active: true}
	staff := &memStaff{members: map[string]*domain.StaffMember{"agent-1": agent}}

	ticket := fixtureTicket()
	dispatcher := &recordingDispatcher{}
	svc, _ := newFixtureService(newMemTickets(ticket), staff, dispatcher, &recordingNotifier{})

	_, err := svc.UpdateTicket(context.Background(), staffActorFor(agent), "t1", domain.TicketChanges{
		Status: ptr(domain.TicketStatusResolved),
	})
	require.NoError(t, err)
	assert.Equal(t, []events.EventType{
		events.EventTicketUpdated,
		events.EventTicketStatusChanged,
		events.EventTicketResolved,
	}, dispatcher.types())
}

func TestNotificationSkipsTheActor(t *testing.T) {
	ticket := fixtureTicket()
	ticket.AssignedToID = ptr("agent-1")
	agent := &domain.StaffMember{ID: "agent-1", Role: domain.StaffRoleAgent, Active: true}
	staff := &memStaff{members: map[string]*domain.StaffMember{"agent-1": agent}}
	notifier := &recordingNotifier{}
	svc, _ := newFixtureService(newMemTickets(ticket), staff, &recordingDispatcher{}, notifier)

	_, err := svc.UpdateTicket(context.Background(), staffActorFor(agent), "t1", domain.TicketChanges{
		Status: ptr(domain.TicketStatusWaitingCustomer),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"cust-1"}, notifier.recipients, "the acting assignee must not be notified")
}

func TestUpdateTicketNotFound(t *testing.T) {
	agent := &domain.StaffMember{ID: "agent-1", Role: domain.StaffRoleAgent, Active: true}
	staff := &memStaff{members: map[string]*domain.StaffMember{"agent-1": agent}}
	svc, _ := newFixtureService(newMemTickets(), staff, &recordingDispatcher{}, &recordingNotifier{})

	_, err := svc.UpdateTicket(context.Background(), staffActorFor(agent), "missing", domain.TicketChanges{
		Status: ptr(domain.TicketStatusClosed),
	})
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
}

func TestStatusPolicyRejection(t *testing.T) {
	agent := &domain.StaffMember{ID: "agent-1", Role: domain.StaffRoleAgent, Active: true}
	staff := &memStaff{members: map[string]*domain.StaffMember{"agent-1": agent}}
	history := &memHistory{}
	svc := NewTicketService(TicketDependencies{
		TicketRepo:    newMemTickets(fixtureTicket()),
		HistoryRepo:   history,
		StaffRepo:     staff,
		ExecutionRepo: memExecutions{},
		Dispatcher:    &recordingDispatcher{},
		Policy: func(from, to domain.TicketStatus) bool {
			return !(from == domain.TicketStatusOpen && to == domain.TicketStatusClosed)
		},
	})

	_, err := svc.UpdateTicket(context.Background(), staffActorFor(agent), "t1", domain.TicketChanges{
		Status: ptr(domain.TicketStatusClosed),
	})
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "CONFLICT", domainErr.Code)
}

func TestGetTicketForUserEnforcesOwnership(t *testing.T) {
	svc, _ := newFixtureService(newMemTickets(fixtureTicket()), nil, &recordingDispatcher{}, &recordingNotifier{})

	ticket, err := svc.GetTicketForUser(context.Background(), "cust-1", "t1")
	require.NoError(t, err)
	assert.Equal(t, "t1", ticket.ID)

	_, err = svc.GetTicketForUser(context.Background(), "cust-2", "t1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, pgx.ErrNoRows))
}
