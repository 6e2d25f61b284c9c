package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/supportdesk/ticketflow/internal/automation"
	"github.com/supportdesk/ticketflow/internal/events"
	"github.com/supportdesk/ticketflow/internal/repository"
)

// AutomationBinder connects the event dispatcher to the automation engine. For
// every ticket lifecycle event it resolves the trigger, reloads the ticket so
// rules evaluate current state, and runs the engine under a per-ticket lock.
type AutomationBinder struct {
	engine  *automation.Engine
	tickets repository.TicketRepository
	locks   *ticketLocks
	logger  *zap.Logger
}

// NewAutomationBinder builds the binder.
func NewAutomationBinder(engine *automation.Engine, tickets repository.TicketRepository, logger *zap.Logger) *AutomationBinder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AutomationBinder{
		engine:  engine,
		tickets: tickets,
		locks:   newTicketLocks(),
		logger:  logger,
	}
}

// Bind subscribes the binder to every event that maps to a trigger.
func (b *AutomationBinder) Bind(dispatcher events.Dispatcher) {
	for _, eventType := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketUpdated,
		events.EventTicketStatusChanged,
		events.EventTicketResolved,
		events.EventTicketClosed,
		events.EventSLAWarning,
		events.EventSLABreach,
	} {
		dispatcher.Subscribe(eventType, b.handle)
	}
}

func (b *AutomationBinder) handle(ctx context.Context, event events.Event) error {
	trigger, ok := events.TriggerFor(event.Type)
	if !ok {
		return nil
	}

	release := b.locks.Lock(event.TicketID)
	defer release()

	ticket, err := b.tickets.GetByID(ctx, event.TicketID)
	if err != nil {
		b.logger.Warn("automation: ticket reload failed",
			zap.String("ticket_id", event.TicketID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		return err
	}

	b.engine.ProcessTrigger(ctx, trigger, ticket)
	return nil
}
