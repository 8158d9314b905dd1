package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/example/meetsched/internal/domain/scheduling"
	"github.com/example/meetsched/internal/logging"
	"github.com/example/meetsched/internal/metrics"
)

func RedisOpt(addr, password string, db int) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: addr, Password: password, DB: db}
}

// NewServer builds an asynq server that only consumes the notification queue.
func NewServer(opt asynq.RedisConnOpt, concurrency int, logger *zap.Logger) *asynq.Server {
	if concurrency <= 0 {
		concurrency = 10
	}
	return asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{QueueNotifications: 1},
		Logger:      logger.Named("asynq").Sugar(),
	})
}

// Handler delivers queued notifications through deliver. Malformed payloads
// are dropped without retry.
func Handler(deliver scheduling.Notifier, m *metrics.Metrics, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		n, err := parseNotification(t)
		if err != nil {
			logger.Error("dropping notification task", zap.Error(err))
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
		err = deliver.Send(ctx, n)
		m.Notification(err)
		if err != nil {
			logger.Warn("notification delivery failed", logging.UserHash(n.To), zap.Error(err))
			return err
		}
		logger.Info("notification delivered", logging.UserHash(n.To))
		return nil
	}
}

func NewMux(deliver scheduling.Notifier, m *metrics.Metrics, logger *zap.Logger) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeNotificationSend, Handler(deliver, m, logger))
	return mux
}

// Run processes tasks until ctx is done, then shuts the server down.
func Run(ctx context.Context, srv *asynq.Server, mux *asynq.ServeMux) error {
	if err := srv.Start(mux); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	<-ctx.Done()
	srv.Shutdown()
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil
	}
	return ctx.Err()
}
