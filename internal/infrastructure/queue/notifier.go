package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/example/meetsched/internal/domain/scheduling"
	"github.com/example/meetsched/internal/logging"
)

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Notifier hands notifications to the queue; a worker delivers them.
type Notifier struct {
	client Enqueuer
	logger *zap.Logger
}

var _ scheduling.Notifier = (*Notifier)(nil)

func NewNotifier(client Enqueuer, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{client: client, logger: logger}
}

func (n *Notifier) Send(ctx context.Context, msg scheduling.Notification) error {
	task, err := NewNotificationTask(msg)
	if err != nil {
		return err
	}
	info, err := n.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}
	n.logger.Debug("notification queued", zap.String("task_id", info.ID), logging.UserHash(msg.To))
	return nil
}

// Inline delivers notifications in the background without a queue. Used
// when no Redis is configured; nothing is retried.
type Inline struct {
	next    scheduling.Notifier
	logger  *zap.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

var _ scheduling.Notifier = (*Inline)(nil)

func NewInline(next scheduling.Notifier, logger *zap.Logger) *Inline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Inline{next: next, logger: logger, timeout: 30 * time.Second}
}

func (i *Inline) Send(ctx context.Context, msg scheduling.Notification) error {
	i.wg.Add(1)
	go func() {
		defer i.wg.Done()
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), i.timeout)
		defer cancel()
		if err := i.next.Send(sctx, msg); err != nil {
			i.logger.Warn("notification delivery failed", logging.UserHash(msg.To), zap.Error(err))
		}
	}()
	return nil
}

// Wait blocks until every in-flight delivery finished.
func (i *Inline) Wait() { i.wg.Wait() }
