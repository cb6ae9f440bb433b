package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/subly/internal/lib/sl"
)

// ErrPermanent сообщение не может быть обработано ни при какой повторной
// доставке (битый JSON, адрес отклонен почтовым сервером).
var ErrPermanent = errors.New("message cannot be processed")

// Permanent помечает ошибку обработчика как постоянную.
func Permanent(err error) error {
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// Handler обрабатывает тело сообщения. Ошибка возвращает сообщение в очередь,
// ошибка с ErrPermanent отклоняет его в dead-letter очередь.
type Handler func(ctx context.Context, body []byte) error

// maxInFlight ограничивает число одновременно обрабатываемых сообщений.
const maxInFlight = 10

// ConsumerMessage запускает потребителя очереди queueName. Обработка идет в
// фоне до отмены ctx или закрытия канала; done закрывается, когда все
// начатые обработчики завершились.
func ConsumerMessage(ctx context.Context, ch *amqp.Channel, queueName string,
	handler Handler, log *slog.Logger) (<-chan struct{}, error) {
	const op = "rabbitmq.ConsumerMessage"
	delivery, err := ch.Consume(
		queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		Consume(ctx, delivery, handler, log)
	}()
	return done, nil
}

// Consume читает deliveries и подтверждает успешно обработанные сообщения.
func Consume(ctx context.Context, deliveries <-chan amqp.Delivery, handler Handler, log *slog.Logger) {
	var wg sync.WaitGroup
	defer wg.Wait()

	sem := make(chan struct{}, maxInFlight)
	for {
		select {
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			sem <- struct{}{}
			wg.Add(1)
			go func(d amqp.Delivery) {
				defer wg.Done()
				defer func() { <-sem }()
				err := handler(ctx, d.Body)
				switch {
				case errors.Is(err, ErrPermanent):
					log.Error("failed to handle message, dead-lettering",
						slog.String("routing_key", d.RoutingKey), sl.Err(err))
					if nackErr := d.Nack(false, false); nackErr != nil {
						log.Error("failed to reject message", sl.Err(nackErr))
					}
					return
				case err != nil:
					log.Error("failed to handle message, requeueing",
						slog.String("routing_key", d.RoutingKey), sl.Err(err))
					if nackErr := d.Nack(false, true); nackErr != nil {
						log.Error("failed to nack message", sl.Err(nackErr))
					}
					return
				}
				if ackErr := d.Ack(false); ackErr != nil {
					log.Error("failed to ack message", sl.Err(ackErr))
				}
			}(d)
		case <-ctx.Done():
			return
		}
	}
}
