// Package services рассылает push-уведомления на все активные устройства
// пользователя и деактивирует устройства, от которых отказался push-сервис.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/subly/internal/lib/sl"
	"github.com/magabrotheeeer/subly/internal/lib/translations"
	"github.com/magabrotheeeer/subly/internal/models"
)

// Repository доступ к устройствам пользователя.
type Repository interface {
	ListActivePushSubscriptions(ctx context.Context, userUID uuid.UUID) ([]*models.PushSubscription, error)
	DeactivatePushSubscription(ctx context.Context, id int64) error
}

// Transport отправляет один payload на одно устройство и возвращает
// HTTP-статус push-сервиса.
type Transport interface {
	Send(ctx context.Context, sub *models.PushSubscription, payload []byte) (int, error)
}

// Payload тело уведомления, которое читает service worker.
type Payload struct {
	Title string      `json:"title"`
	Body  string      `json:"body"`
	Icon  string      `json:"icon"`
	Badge string      `json:"badge"`
	Tag   string      `json:"tag"`
	Data  PayloadData `json:"data"`
}

type PayloadData struct {
	Type             string          `json:"type"`
	SubscriptionID   string          `json:"subscriptionId"`
	SubscriptionName string          `json:"subscriptionName"`
	Amount           decimal.Decimal `json:"amount"`
	DaysUntil        int             `json:"daysUntil"`
	URL              string          `json:"url"`
}

// Service рассылает push-напоминания.
type Service struct {
	repo        Repository
	transport   Transport
	enabled     bool
	frontendURL string
	log         *slog.Logger
}

// NewService создает новый экземпляр Service. Если enabled == false
// (не заданы VAPID-ключи), отправка отключена и любая рассылка
// возвращает нулевой результат.
func NewService(repo Repository, transport Transport, enabled bool, frontendURL string, log *slog.Logger) *Service {
	if !enabled {
		log.Warn("VAPID keys are not configured, push notifications disabled")
	}
	return &Service{
		repo:        repo,
		transport:   transport,
		enabled:     enabled,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		log:         log,
	}
}

// PaymentPayload собирает уведомление о предстоящем списании.
func (s *Service) PaymentPayload(c *models.Candidate, daysUntil int) Payload {
	sub := c.Subscription
	currency := sub.Currency
	if currency == "" {
		currency = c.Owner.Currency
	}
	amount := sub.MyCost()
	text := translations.UpcomingPayment(c.Owner.Language, sub.Name, daysUntil, amount, currency)

	defaultIcon := s.frontendURL + "/icon-192.png"
	icon := sub.IconURL
	if icon == "" {
		icon = defaultIcon
	}
	return Payload{
		Title: text.Title,
		Body:  text.Body,
		Icon:  icon,
		Badge: defaultIcon,
		Tag:   "payment-" + sub.ID.String(),
		Data: PayloadData{
			Type:             "payment",
			SubscriptionID:   sub.ID.String(),
			SubscriptionName: sub.Name,
			Amount:           amount,
			DaysUntil:        daysUntil,
			URL:              "/",
		},
	}
}

// SendPaymentReminder отправляет напоминание о платеже на все устройства
// владельца подписки.
func (s *Service) SendPaymentReminder(ctx context.Context, c *models.Candidate, daysUntil int) (Result, error) {
	const op = "services.push.SendPaymentReminder"
	if !s.enabled {
		s.log.Debug("push disabled, skipping", slog.String("subscription_id", c.Subscription.ID.String()))
		return Result{}, nil
	}
	body, err := json.Marshal(s.PaymentPayload(c, daysUntil))
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}
	res, err := s.sendToUser(ctx, c.Owner.UUID, body)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

func (s *Service) sendToUser(ctx context.Context, userUID uuid.UUID, payload []byte) (Result, error) {
	devices, err := s.repo.ListActivePushSubscriptions(ctx, userUID)
	if err != nil {
		return Result{}, err
	}
	if len(devices) == 0 {
		s.log.Debug("no active push subscriptions", slog.String("user_uid", userUID.String()))
		return Result{}, nil
	}

	var res Result
	for _, device := range devices {
		status, err := s.transport.Send(ctx, device, payload)
		switch {
		case err != nil:
			res.FailureCount++
			s.log.Error("failed to send push", slog.Int64("device_id", device.ID), sl.Err(err))
		case status == http.StatusGone || status == http.StatusNotFound:
			res.FailureCount++
			if err := s.repo.DeactivatePushSubscription(ctx, device.ID); err != nil {
				s.log.Error("failed to deactivate push subscription",
					slog.Int64("device_id", device.ID), sl.Err(err))
				continue
			}
			s.log.Info("push subscription expired, deactivated",
				slog.Int64("device_id", device.ID), slog.Int("status", status))
		case status >= http.StatusBadRequest:
			res.FailureCount++
			s.log.Error("push service rejected notification",
				slog.Int64("device_id", device.ID), slog.Int("status", status))
		default:
			res.SuccessCount++
		}
	}
	return res, nil
}
