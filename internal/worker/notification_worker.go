package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/helpdesk-line/repair-service/internal/service"
)

// StartNotificationWorker registers notification handlers.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}

// RetryRunner is the part of the notification service the retry loop needs.
type RetryRunner interface {
	RetryFailedNotifications(ctx context.Context) (service.RetrySummary, error)
}

// StartRetryLoop runs a retry pass every interval until ctx is done. A zero
// interval disables the loop. The returned channel closes once the loop exits.
func StartRetryLoop(ctx context.Context, runner RetryRunner, interval time.Duration, logger *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	if runner == nil || interval <= 0 {
		close(done)
		return done
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		logger.Info("notification retry loop started", zap.Duration("interval", interval))
		for {
			select {
			case <-ctx.Done():
				logger.Info("notification retry loop stopped")
				return
			case <-ticker.C:
				if _, err := runner.RetryFailedNotifications(ctx); err != nil {
					logger.Warn("notification retry pass failed", zap.Error(err))
				}
			}
		}
	}()
	return done
}
