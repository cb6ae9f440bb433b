// Package scheduler собирает приложение планировщика: ежедневный перенос
// дат списания и рассылку напоминаний о пробных периодах и платежах.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/subly/internal/cache"
	"github.com/magabrotheeeer/subly/internal/config"
	"github.com/magabrotheeeer/subly/internal/http/handlers/health"
	"github.com/magabrotheeeer/subly/internal/lib/clock"
	"github.com/magabrotheeeer/subly/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/subly/internal/lib/sl"
	"github.com/magabrotheeeer/subly/internal/lib/smtp"
	"github.com/magabrotheeeer/subly/internal/lib/webpush"
	"github.com/magabrotheeeer/subly/internal/metrics"
	"github.com/magabrotheeeer/subly/internal/migrations"
	"github.com/magabrotheeeer/subly/internal/reminder"
	mailqueueservice "github.com/magabrotheeeer/subly/internal/services/mailqueue"
	pushservice "github.com/magabrotheeeer/subly/internal/services/push"
	schedulerservice "github.com/magabrotheeeer/subly/internal/services/scheduler"
	senderservice "github.com/magabrotheeeer/subly/internal/services/sender"
	"github.com/magabrotheeeer/subly/internal/storage/repository"
)

// App представляет приложение планировщика.
type App struct {
	triggers *Triggers
	server   *http.Server
	db       *repository.Storage
	cache    *cache.Cache
	conn     *amqp.Connection
	ch       *amqp.Channel
	logger   *slog.Logger
}

func waitForDB(ctx context.Context, db *repository.Storage) error {
	for range 10 {
		err := repository.CheckDatabaseReady(ctx, db)
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(3 * time.Second):
		}
	}
	return fmt.Errorf("database not ready after retries")
}

// New создает новый экземпляр приложения планировщика.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	app := &App{logger: logger}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	app.db, err = repository.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}
	if err := migrations.Run(app.db.DB, cfg.MigrationsPath); err != nil {
		app.close()
		return nil, err
	}
	if err := waitForDB(ctx, app.db); err != nil {
		app.close()
		return nil, err
	}

	trialRegistry, paymentRegistry, err := app.registries(ctx, cfg)
	if err != nil {
		app.close()
		return nil, err
	}

	email, err := app.emailDispatcher(ctx, cfg)
	if err != nil {
		app.close()
		return nil, err
	}

	push := pushservice.NewService(app.db, webpush.New(cfg.Push), cfg.Push.Enabled(), cfg.FrontendURL, logger)

	m := metrics.New(prometheus.DefaultRegisterer)
	clk := clock.New(loc)
	opts := schedulerservice.Options{Workers: cfg.Workers, NotifyTimeout: cfg.NotifyTimeout}

	rollover := schedulerservice.NewRolloverService(app.db, clk, logger, m, opts)
	trial := schedulerservice.NewTrialReminderService(app.db, email, trialRegistry, clk, logger, m, opts)
	payment := schedulerservice.NewPaymentReminderService(app.db, push, paymentRegistry, clk, logger, m, opts)

	jobs := []Job{
		{Name: metrics.SweepRollover, Spec: cfg.RolloverSpec, Run: rollover.Run},
		{Name: metrics.SweepTrialReminder, Spec: cfg.TrialReminderSpec, Run: trial.Run, Startup: trial.Sweep},
		{Name: metrics.SweepPaymentReminder, Spec: cfg.PaymentReminderSpec, Run: payment.Run, Startup: payment.Sweep},
	}
	app.triggers, err = NewTriggers(loc, jobs, !cfg.IsProduction(), cfg.StartupDelay, logger)
	if err != nil {
		app.close()
		return nil, err
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID, middleware.Recoverer)
	router.Get("/health", health.New(logger, app.db.DB).ServeHTTP)
	router.Handle("/metrics", promhttp.Handler())

	app.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return app, nil
}

// registries создает реестры отправленных напоминаний для двух рассылок.
func (a *App) registries(ctx context.Context, cfg *config.Config) (reminder.Registry, reminder.Registry, error) {
	if cfg.DedupBackend != config.DedupRedis {
		return reminder.NewMemoryRegistry(), reminder.NewMemoryRegistry(), nil
	}
	c, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, nil, fmt.Errorf("redis not initialized: %w", err)
	}
	a.cache = c
	a.logger.Info("reminder registry stored in redis", slog.String("address", cfg.AddressRedis))
	return reminder.NewRedisRegistry(c.Db, "trial", reminder.DefaultRedisTTL),
		reminder.NewRedisRegistry(c.Db, "payment", reminder.DefaultRedisTTL), nil
}

// emailDispatcher отправляет письма напрямую по SMTP или через очередь.
func (a *App) emailDispatcher(ctx context.Context, cfg *config.Config) (schedulerservice.EmailDispatcher, error) {
	if cfg.EmailDelivery != config.DeliveryQueue {
		return senderservice.NewSenderService(smtp.NewTransport(cfg.SMTP, a.logger), cfg.FrontendURL, a.logger), nil
	}
	conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}
	a.conn = conn

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}
	a.ch = ch
	return mailqueueservice.NewPublisher(ch, a.logger), nil
}

// Run запускает расписание и HTTP-сервер метрик до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	a.triggers.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("metrics server starting", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case runErr = <-errCh:
	case <-ctx.Done():
	}

	a.logger.Info("shutting down scheduler service")
	timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := a.server.Shutdown(timeoutCtx); err != nil {
		a.logger.Error("failed to shutdown metrics server", sl.Err(err))
	}

	a.triggers.Stop()
	a.close()
	return runErr
}

func (a *App) close() {
	if a.ch != nil {
		if err := a.ch.Close(); err != nil {
			a.logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.logger.Error("failed to close connection", sl.Err(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("failed to close redis", sl.Err(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("failed to close storage", sl.Err(err))
		}
	}
}
