// Package sender собирает приложение notification-sender: потребителя очереди
// писем, который доставляет их по SMTP.
package sender

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/subly/internal/config"
	"github.com/magabrotheeeer/subly/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/subly/internal/lib/sl"
	"github.com/magabrotheeeer/subly/internal/lib/smtp"
	senderservice "github.com/magabrotheeeer/subly/internal/services/sender"
)

type App struct {
	conn          *amqp.Connection
	ch            *amqp.Channel
	senderService *senderservice.SenderService
	logger        *slog.Logger
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	transport := smtp.NewTransport(cfg.SMTP, logger)
	senderService := senderservice.NewSenderService(transport, cfg.FrontendURL, logger)

	return &App{
		conn:          conn,
		ch:            ch,
		senderService: senderService,
		logger:        logger,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	done, err := rabbitmq.ConsumerMessage(ctx, a.ch, rabbitmq.QueueTrialReminder,
		a.senderService.HandleTrialReminderMessage, a.logger)
	if err != nil {
		a.logger.Error("failed to start trial reminder consumer",
			slog.String("queue", rabbitmq.QueueTrialReminder), sl.Err(err))
		a.close()
		return err
	}
	a.logger.Info("consuming", slog.String("queue", rabbitmq.QueueTrialReminder))

	select {
	case <-ctx.Done():
	case <-done:
		a.logger.Warn("consumer stopped, channel closed")
	}
	a.logger.Info("sender service shutting down gracefully")

	<-done
	a.close()
	return nil
}

func (a *App) close() {
	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
}
