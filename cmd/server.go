package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/example/meetsched/internal/application/booking"
	"github.com/example/meetsched/internal/auth"
	"github.com/example/meetsched/internal/domain/scheduling"
	"github.com/example/meetsched/internal/infrastructure/cache"
	"github.com/example/meetsched/internal/infrastructure/google"
	"github.com/example/meetsched/internal/infrastructure/mail"
	"github.com/example/meetsched/internal/infrastructure/queue"
	"github.com/example/meetsched/internal/metrics"
	"github.com/example/meetsched/internal/web"
)

func newServerCmd() *cobra.Command {
	var migrateUp, withWorker bool

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Serve the booking API, the owner console and /metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := openApp(ctx, migrateUp)
			if err != nil {
				return err
			}
			defer a.Close()

			tokens, err := a.googleTokens()
			if err != nil {
				return err
			}
			if a.cfg.Production() {
				gin.SetMode(gin.ReleaseMode)
			}

			m := metrics.New()
			calendar := google.NewCalendar(tokens, a.cfg.Google.SendUpdates)
			sender := mail.NewGmailSender(tokens)

			g, ctx := errgroup.WithContext(ctx)

			var notifier scheduling.Notifier
			if a.cfg.Redis.Addr != "" {
				redis := queue.RedisOpt(a.cfg.Redis.Addr, a.cfg.Redis.Password, a.cfg.Redis.DB)
				client := asynq.NewClient(redis)
				defer client.Close()
				notifier = queue.NewNotifier(client, a.logger.Named("queue"))
				if withWorker {
					g.Go(func() error { return runWorker(ctx, a, redis, sender, m) })
				}
			} else {
				a.logger.Warn("REDIS_ADDR not set, sending notifications inline without retries")
				inline := queue.NewInline(sender, a.logger.Named("notify"))
				defer inline.Wait()
				notifier = inline
			}

			store, err := cache.New(a.store, a.cfg.CacheMeetingTypes, a.logger.Named("cache"))
			if err != nil {
				return err
			}

			resolver := &booking.Resolver{
				Store:     store,
				Busy:      calendar,
				Events:    calendar,
				Notifier:  notifier,
				Logger:    a.logger.Named("resolver"),
				Metrics:   m,
				MaxWindow: a.cfg.Booking.MaxWindow,
				MinNotice: a.cfg.Booking.MinNotice,
			}
			ws := &web.Server{
				Resolver:           resolver,
				Owners:             a.store.Owners,
				MeetingTypes:       a.store.MeetingTypes,
				Bookings:           a.store.Bookings,
				Sessions:           auth.NewSessions(a.cfg.SessionHashKey, a.cfg.SessionBlockKey, a.cfg.Production()),
				Google:             tokens,
				Health:             a.db.Ping,
				Logger:             a.logger.Named("http"),
				RateLimitPerMinute: a.cfg.RateLimitPerMinute,
			}

			g.Go(func() error { return web.Start(ctx, a.cfg.ListenAddr, ws.Routes(), a.logger) })
			if a.cfg.MetricsAddr != "" {
				g.Go(func() error {
					a.logger.Info("metrics listening", zap.String("addr", a.cfg.MetricsAddr))
					return metrics.Serve(ctx, a.cfg.MetricsAddr, m)
				})
			}
			return g.Wait()
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "run database migrations on startup")
	cmd.Flags().Lookup("migrate").NoOptDefVal = "true"
	cmd.Flags().BoolVar(&withWorker, "worker", false, "also process queued notifications in this process")
	return cmd
}
