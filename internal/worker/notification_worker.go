package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/supportdesk/ticketflow/internal/config"
	"github.com/supportdesk/ticketflow/internal/persistence"
	"github.com/supportdesk/ticketflow/internal/service"
)

// NotificationWorker drains the Redis notification outbox and delivers each
// message. Delivery is a stub: messages are written to the log with the
// configured sender identity; wiring a real email or webhook provider replaces
// deliver only.
type NotificationWorker struct {
	redis  *persistence.Redis
	logger *zap.Logger
	cfg    config.NotificationConfig
}

// NewNotificationWorker builds the worker.
func NewNotificationWorker(redis *persistence.Redis, logger *zap.Logger, cfg config.NotificationConfig) *NotificationWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationWorker{redis: redis, logger: logger, cfg: cfg}
}

// Run blocks consuming the outbox until ctx is cancelled.
func (w *NotificationWorker) Run(ctx context.Context) {
	if w.redis == nil || w.redis.Client == nil {
		w.logger.Info("notification worker disabled: no redis connection")
		return
	}

	for {
		if ctx.Err() != nil {
			return
		}

		result, err := w.redis.Client.BRPop(ctx, 5*time.Second, service.OutboxKey).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			w.logger.Warn("notification outbox read failed", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		// BRPop returns [key, value].
		if len(result) != 2 {
			continue
		}
		w.deliver(result[1])
	}
}

func (w *NotificationWorker) deliver(raw string) {
	var notification service.Notification
	if err := json.Unmarshal([]byte(raw), &notification); err != nil {
		w.logger.Warn("notification decode failed", zap.Error(err))
		return
	}

	w.logger.Info("notification delivered",
		zap.String("notification_id", notification.ID),
		zap.String("user_id", notification.UserID),
		zap.String("kind", string(notification.Kind)),
		zap.String("ticket_id", notification.TicketID),
		zap.String("email_from", w.cfg.EmailFrom))

	if w.cfg.WebhookURL != "" {
		w.logger.Debug("webhook delivery skipped: provider not configured",
			zap.String("webhook_url", w.cfg.WebhookURL))
	}
}
