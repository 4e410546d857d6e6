package service

import (
	"context"
	"time"

	"github.com/Freeeeeet/skillswap/internal/metrics"
	"go.uber.org/zap"
)

const notifyTimeout = 5 * time.Second

// dispatcher отправляет уведомления по принципу best-effort:
// ошибки логируются и никогда не влияют на результат доменной операции
type dispatcher struct {
	sink    Notifier
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func (d dispatcher) send(ctx context.Context, userID int64, title, message string) {
	if d.sink == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	if err := d.sink.Notify(ctx, userID, title, message); err != nil {
		d.metrics.NotificationFailed()
		d.logger.Warn("Failed to notify user",
			zap.Int64("user_id", userID),
			zap.String("title", title),
			zap.Error(err),
		)
	}
}
