package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/supportdesk/ticketflow/internal/config"
	"github.com/supportdesk/ticketflow/internal/domain"
	"github.com/supportdesk/ticketflow/internal/events"
	"github.com/supportdesk/ticketflow/internal/repository"
)

// SLAWorker periodically scans open tickets against their deadlines. A ticket
// entering the warning window fires sla.warning once; a ticket past its
// deadline fires sla.breach once. The sla_warned and sla_breached flags are the
// dedupe markers, persisted before the event is published.
type SLAWorker struct {
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.SLAConfig
}

// NewSLAWorker builds the worker.
func NewSLAWorker(tickets repository.TicketRepository, dispatcher events.Dispatcher, logger *zap.Logger, cfg config.SLAConfig) *SLAWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SLAWorker{tickets: tickets, dispatcher: dispatcher, logger: logger, cfg: cfg}
}

// Run scans on the configured interval until ctx is cancelled.
func (w *SLAWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.ScanInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Scan(ctx)
		}
	}
}

// Scan runs one pass over SLA candidates.
func (w *SLAWorker) Scan(ctx context.Context) {
	now := time.Now()
	candidates, err := w.tickets.ListSLACandidates(ctx, now, w.cfg.WarningWindow())
	if err != nil {
		w.logger.Error("sla scan failed", zap.Error(err))
		return
	}

	for _, ticket := range candidates {
		if ticket.SLADeadline == nil {
			continue
		}
		switch {
		case !ticket.SLABreached && !now.Before(*ticket.SLADeadline):
			w.mark(ctx, ticket, events.EventSLABreach)
		case !ticket.SLAWarned && now.Add(w.cfg.WarningWindow()).After(*ticket.SLADeadline):
			w.mark(ctx, ticket, events.EventSLAWarning)
		}
	}
}

func (w *SLAWorker) mark(ctx context.Context, ticket domain.Ticket, eventType events.EventType) {
	flag := true
	var changes domain.TicketChanges
	if eventType == events.EventSLABreach {
		changes.SLABreached = &flag
		// A breach implies the warning window has long passed.
		if !ticket.SLAWarned {
			changes.SLAWarned = &flag
		}
	} else {
		changes.SLAWarned = &flag
	}

	if _, err := w.tickets.ApplyChanges(ctx, ticket.ID, changes, nil); err != nil {
		w.logger.Error("sla flag update failed",
			zap.String("ticket_id", ticket.ID),
			zap.String("event_type", string(eventType)),
			zap.Error(err))
		return
	}

	event := events.Event{
		Type:      eventType,
		TicketID:  ticket.ID,
		Actor:     events.SystemActor,
		Timestamp: time.Now(),
		Payload:   events.SLAPayload{Deadline: *ticket.SLADeadline},
	}
	if err := w.dispatcher.Publish(ctx, event); err != nil {
		w.logger.Warn("sla event publish failed",
			zap.String("ticket_id", ticket.ID),
			zap.Error(err))
	}

	w.logger.Info("sla flag set",
		zap.String("ticket_id", ticket.ID),
		zap.String("event_type", string(eventType)),
		zap.Time("deadline", *ticket.SLADeadline))
}
