package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/supportdesk/ticketflow/internal/domain"
)

func TestTriggerForKnownEvents(t *testing.T) {
	cases := map[EventType]domain.Trigger{
		EventTicketCreated:       domain.TriggerTicketCreated,
		EventTicketUpdated:       domain.TriggerTicketUpdated,
		EventTicketStatusChanged: domain.TriggerTicketStatusChanged,
		EventTicketResolved:      domain.TriggerTicketResolved,
		EventTicketClosed:        domain.TriggerTicketClosed,
		EventSLAWarning:          domain.TriggerSLAWarning,
		EventSLABreach:           domain.TriggerSLABreach,
	}
	for eventType, want := range cases {
		trigger, ok := TriggerFor(eventType)
		require.True(t, ok, eventType)
		assert.Equal(t, want, trigger)
	}
}

func TestTriggerForUnknownEvent(t *testing.T) {
	_, ok := TriggerFor("ticket.yeeted")
	assert.False(t, ok)
}

func TestDispatcherRunsHandlersInOrderAndSurvivesFailures(t *testing.T) {
	dispatcher := NewInMemoryDispatcher(zap.NewNop())

	var calls []string
	dispatcher.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		calls = append(calls, "first")
		return errors.New("handler blew up")
	})
	dispatcher.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		calls = append(calls, "second")
		return nil
	})
	dispatcher.Subscribe(EventTicketClosed, func(context.Context, Event) error {
		calls = append(calls, "other")
		return nil
	})

	err := dispatcher.Publish(context.Background(), Event{Type: EventTicketCreated, TicketID: "t1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestPublishAssignsEventID(t *testing.T) {
	dispatcher := NewInMemoryDispatcher(nil)

	var got Event
	dispatcher.Subscribe(EventTicketCreated, func(_ context.Context, event Event) error {
		got = event
		return nil
	})
	require.NoError(t, dispatcher.Publish(context.Background(), Event{Type: EventTicketCreated}))
	assert.NotEmpty(t, got.ID)
}
