// Package services публикует письма-напоминания в очередь RabbitMQ, откуда
// их забирает notification-sender.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/subly/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/subly/internal/models"
)

// Publisher отправляет напоминания через очередь вместо прямого SMTP.
// Успешная публикация считается успешной отправкой.
type Publisher struct {
	ch  rabbitmq.Channel
	log *slog.Logger
}

// NewPublisher создает новый экземпляр Publisher.
func NewPublisher(ch rabbitmq.Channel, log *slog.Logger) *Publisher {
	return &Publisher{ch: ch, log: log}
}

// SendTrialReminder публикует TrialReminderMessage с ключом trial_reminder.
func (p *Publisher) SendTrialReminder(ctx context.Context, c *models.Candidate, daysLeft int) error {
	const op = "services.mailqueue.SendTrialReminder"
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	msg := models.NewTrialReminderMessage(c, daysLeft)
	if err := rabbitmq.PublishMessage(p.ch, rabbitmq.ExchangeNotifications, rabbitmq.RoutingKeyTrialReminder, msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	p.log.Debug("trial reminder queued",
		slog.String("subscription_id", c.Subscription.ID.String()), slog.Int("days_left", daysLeft))
	return nil
}
