package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/example/meetsched/internal/domain/scheduling"
	"github.com/example/meetsched/internal/infrastructure/mail"
	"github.com/example/meetsched/internal/infrastructure/queue"
	"github.com/example/meetsched/internal/metrics"
)

func newWorkerCmd() *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Deliver queued notifications through the owners' Gmail accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := openApp(ctx, false)
			if err != nil {
				return err
			}
			defer a.Close()
			if a.cfg.Redis.Addr == "" {
				return fmt.Errorf("REDIS_ADDR is required for the worker")
			}
			tokens, err := a.googleTokens()
			if err != nil {
				return err
			}

			m := metrics.New()
			redis := queue.RedisOpt(a.cfg.Redis.Addr, a.cfg.Redis.Password, a.cfg.Redis.DB)
			if concurrency > 0 {
				a.cfg.WorkerConcurrency = concurrency
			}

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error { return runWorker(ctx, a, redis, mail.NewGmailSender(tokens), m) })
			if a.cfg.MetricsAddr != "" {
				g.Go(func() error { return metrics.Serve(ctx, a.cfg.MetricsAddr, m) })
			}
			return g.Wait()
		},
	}
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "parallel deliveries (default WORKER_CONCURRENCY)")
	return cmd
}

func runWorker(ctx context.Context, a *app, redis asynq.RedisClientOpt, deliver scheduling.Notifier, m *metrics.Metrics) error {
	logger := a.logger.Named("worker")
	srv := queue.NewServer(redis, a.cfg.WorkerConcurrency, logger)
	logger.Info("worker started", zap.String("queue", queue.QueueNotifications))
	return queue.Run(ctx, srv, queue.NewMux(deliver, m, logger))
}
