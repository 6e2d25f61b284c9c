package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/supportdesk/ticketflow/internal/config"
	"github.com/supportdesk/ticketflow/internal/domain"
	"github.com/supportdesk/ticketflow/internal/events"
	"github.com/supportdesk/ticketflow/internal/repository"
)

type fakeTicketRepo struct {
	candidates []domain.Ticket
	applied    map[string]domain.TicketChanges
}

func (f *fakeTicketRepo) Create(context.Context, *domain.Ticket) error { return nil }

func (f *fakeTicketRepo) GetByID(context.Context, string) (*domain.Ticket, error) {
	return nil, nil
}

func (f *fakeTicketRepo) GetByNumber(context.Context, string) (*domain.Ticket, error) {
	return nil, nil
}

func (f *fakeTicketRepo) ListWithFilter(context.Context, repository.TicketFilter) ([]domain.Ticket, error) {
	return nil, nil
}

func (f *fakeTicketRepo) ApplyChanges(_ context.Context, ticketID string, changes domain.TicketChanges, _ []domain.TicketHistoryEntry) (*domain.Ticket, error) {
	if f.applied == nil {
		f.applied = map[string]domain.TicketChanges{}
	}
	f.applied[ticketID] = changes
	return &domain.Ticket{ID: ticketID}, nil
}

func (f *fakeTicketRepo) CountActiveAssigned(context.Context, string) (int, error) {
	return 0, nil
}

func (f *fakeTicketRepo) ListSLACandidates(context.Context, time.Time, time.Duration) ([]domain.Ticket, error) {
	return f.candidates, nil
}

type recordingDispatcher struct {
	published []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.published = append(d.published, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func slaTicket(id string, deadline time.Time, warned, breached bool) domain.Ticket {
	return domain.Ticket{
		ID:          id,
		Status:      domain.TicketStatusOpen,
		SLADeadline: &deadline,
		SLAWarned:   warned,
		SLABreached: breached,
	}
}

func slaTestConfig() config.SLAConfig {
	return config.SLAConfig{ScanIntervalSeconds: 60, WarningWindowMinutes: 60}
}

func TestScanMarksBreachedTickets(t *testing.T) {
	now := time.Now()
	repo := &fakeTicketRepo{candidates: []domain.Ticket{
		slaTicket("past-due", now.Add(-time.Minute), false, false),
	}}
	dispatcher := &recordingDispatcher{}
	worker := NewSLAWorker(repo, dispatcher, zap.NewNop(), slaTestConfig())

	worker.Scan(context.Background())

	changes, ok := repo.applied["past-due"]
	require.True(t, ok)
	require.NotNil(t, changes.SLABreached)
	assert.True(t, *changes.SLABreached)
	require.NotNil(t, changes.SLAWarned, "a breach implies the warning window passed")

	require.Len(t, dispatcher.published, 1)
	assert.Equal(t, events.EventSLABreach, dispatcher.published[0].Type)
	assert.Equal(t, "past-due", dispatcher.published[0].TicketID)
}

func TestScanWarnsInsideWindow(t *testing.T) {
	now := time.Now()
	repo := &fakeTicketRepo{candidates: []domain.Ticket{
		slaTicket("closing-in", now.Add(30*time.Minute), false, false),
	}}
	dispatcher := &recordingDispatcher{}
	worker := NewSLAWorker(repo, dispatcher, zap.NewNop(), slaTestConfig())

	worker.Scan(context.Background())

	changes, ok := repo.applied["closing-in"]
	require.True(t, ok)
	assert.Nil(t, changes.SLABreached)
	require.NotNil(t, changes.SLAWarned)
	assert.True(t, *changes.SLAWarned)

	require.Len(t, dispatcher.published, 1)
	assert.Equal(t, events.EventSLAWarning, dispatcher.published[0].Type)
}

func TestScanSkipsAlreadyFlaggedTickets(t *testing.T) {
	now := time.Now()
	repo := &fakeTicketRepo{candidates: []domain.Ticket{
		slaTicket("already-warned", now.Add(30*time.Minute), true, false),
		slaTicket("already-breached", now.Add(-time.Hour), true, true),
	}}
	dispatcher := &recordingDispatcher{}
	worker := NewSLAWorker(repo, dispatcher, zap.NewNop(), slaTestConfig())

	worker.Scan(context.Background())

	assert.Empty(t, repo.applied)
	assert.Empty(t, dispatcher.published)
}
