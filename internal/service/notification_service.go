package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/supportdesk/ticketflow/internal/config"
	"github.com/supportdesk/ticketflow/internal/domain"
	"github.com/supportdesk/ticketflow/internal/persistence"
)

// OutboxKey is the Redis list notifications are pushed onto; the notification
// worker consumes it.
const OutboxKey = "notifications:outbox"

// Notification is the structured message handed to the dispatcher.
type Notification struct {
	ID        string                  `json:"id"`
	UserID    string                  `json:"user_id"`
	Kind      domain.NotificationKind `json:"kind"`
	TicketID  string                  `json:"ticket_id"`
	Payload   map[string]any          `json:"payload,omitempty"`
	CreatedAt time.Time               `json:"created_at"`
}

// NotificationService is the notification dispatcher: it logs every
// notification and enqueues it on a Redis outbox for delivery. Enqueueing is
// fire-and-forget; a Redis outage degrades to log-only delivery rather than
// failing the caller.
type NotificationService struct {
	redis  *persistence.Redis
	logger *zap.Logger
	cfg    config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(redis *persistence.Redis, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{redis: redis, logger: logger, cfg: cfg}
}

// Notify delivers a structured notification to one user.
func (n *NotificationService) Notify(ctx context.Context, userID string, kind domain.NotificationKind, ticketID string, payload map[string]any) error {
	notification := Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      kind,
		TicketID:  ticketID,
		Payload:   payload,
		CreatedAt: time.Now(),
	}
	n.logger.Info("notification",
		zap.String("user_id", userID),
		zap.String("kind", string(kind)),
		zap.String("ticket_id", ticketID))

	if n.redis == nil || n.redis.Client == nil {
		return nil
	}
	body, err := json.Marshal(notification)
	if err != nil {
		n.logger.Warn("notification marshal failed", zap.Error(err))
		return nil
	}
	if err := n.redis.Client.LPush(ctx, OutboxKey, body).Err(); err != nil {
		n.logger.Warn("notification enqueue failed", zap.Error(err))
	}
	return nil
}
