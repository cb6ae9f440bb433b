package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"github.com/magabrotheeeer/subly/internal/lib/clock"
	"github.com/magabrotheeeer/subly/internal/lib/dates"
	"github.com/magabrotheeeer/subly/internal/lib/sl"
	"github.com/magabrotheeeer/subly/internal/metrics"
	"github.com/magabrotheeeer/subly/internal/models"
	"github.com/magabrotheeeer/subly/internal/reminder"
	pushservice "github.com/magabrotheeeer/subly/internal/services/push"
)

// ErrNotDelivered ни одно устройство пользователя не приняло уведомление.
var ErrNotDelivered = errors.New("push not delivered to any device")

// PaymentRepository источник кандидатов на напоминание о платеже.
type PaymentRepository interface {
	FindPaymentCandidates(ctx context.Context) ([]*models.Candidate, error)
}

// PushDispatcher отправляет push-напоминание на все устройства владельца.
type PushDispatcher interface {
	SendPaymentReminder(ctx context.Context, candidate *models.Candidate, daysUntil int) (pushservice.Result, error)
}

// PaymentReminderDue возвращает число дней до списания, если оно ровно
// совпадает со сроком напоминания, выбранным пользователем.
func PaymentReminderDue(c *models.Candidate, today time.Time) (int, bool) {
	if c == nil {
		return 0, false
	}
	sub := c.Subscription
	if !sub.IsActive || sub.IsTrial || !c.Owner.PushNotificationsEnabled {
		return 0, false
	}
	days := dates.DaysUntil(today, sub.NextBillingDate)
	if days != c.Owner.ReminderLeadDays() {
		return 0, false
	}
	return days, true
}

// PaymentReminderService рассылает push-напоминания о предстоящих платежах.
type PaymentReminderService struct {
	repo  PaymentRepository
	push  PushDispatcher
	clock clock.Clock
	log   *slog.Logger
	sweep reminderSweep
}

// NewPaymentReminderService создает новый экземпляр PaymentReminderService.
func NewPaymentReminderService(repo PaymentRepository, push PushDispatcher, registry reminder.Registry,
	clk clock.Clock, log *slog.Logger, m *metrics.Metrics, opts Options) *PaymentReminderService {
	log = log.With(slog.String("sweep", metrics.SweepPaymentReminder))
	return &PaymentReminderService{
		repo:  repo,
		push:  push,
		clock: clk,
		log:   log,
		sweep: reminderSweep{
			registry: registry,
			log:      log,
			metrics:  m,
			kind:     metrics.KindPayment,
			opts:     opts.withDefaults(),
		},
	}
}

// Run очищает реестр и выполняет обход. Вызывается ежедневным триггером.
func (s *PaymentReminderService) Run(ctx context.Context) int {
	s.sweep.reset(ctx)
	return s.Sweep(ctx)
}

// Sweep выполняет обход без очистки реестра и возвращает число
// подписок, по которым уведомление дошло хотя бы до одного устройства.
func (s *PaymentReminderService) Sweep(ctx context.Context) int {
	started := time.Now()
	today := s.clock.Now()
	s.log.Info("checking payment reminders")

	candidates, err := s.repo.FindPaymentCandidates(ctx)
	if err != nil {
		s.log.Error("failed to find payment candidates", sl.Err(err))
		s.sweep.metrics.ObserveSweep(metrics.SweepPaymentReminder, started, true)
		return 0
	}

	jobs := lo.FilterMap(candidates, func(c *models.Candidate, _ int) (reminderJob, bool) {
		days, ok := PaymentReminderDue(c, today)
		return reminderJob{candidate: c, days: days}, ok
	})
	s.log.Info("found payment candidates", slog.Int("count", len(candidates)), slog.Int("due", len(jobs)))

	sent := s.sweep.dispatch(ctx, jobs, func(ctx context.Context, job reminderJob) error {
		res, err := s.push.SendPaymentReminder(ctx, job.candidate, job.days)
		if err != nil {
			return err
		}
		if !res.Attempted() {
			return errNotEligible
		}
		if !res.Delivered() {
			return ErrNotDelivered
		}
		return nil
	})

	s.log.Info("payment reminders finished", slog.Int("sent", sent))
	s.sweep.metrics.ObserveSweep(metrics.SweepPaymentReminder, started, false)
	return sent
}
