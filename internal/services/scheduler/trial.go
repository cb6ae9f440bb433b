package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"github.com/magabrotheeeer/subly/internal/lib/clock"
	"github.com/magabrotheeeer/subly/internal/lib/dates"
	"github.com/magabrotheeeer/subly/internal/lib/sl"
	"github.com/magabrotheeeer/subly/internal/metrics"
	"github.com/magabrotheeeer/subly/internal/models"
	"github.com/magabrotheeeer/subly/internal/reminder"
)

// TrialReminderDays за сколько дней до конца пробного периода отправляется письмо.
var TrialReminderDays = []int{3, 1}

// TrialRepository источник кандидатов на напоминание о пробном периоде.
type TrialRepository interface {
	FindTrialCandidates(ctx context.Context) ([]*models.Candidate, error)
}

// EmailDispatcher отправляет письмо об окончании пробного периода.
type EmailDispatcher interface {
	SendTrialReminder(ctx context.Context, candidate *models.Candidate, daysLeft int) error
}

// TrialReminderDue возвращает число дней до конца пробного периода, если
// сегодня по подписке положено письмо.
func TrialReminderDue(c *models.Candidate, today time.Time) (int, bool) {
	if c == nil {
		return 0, false
	}
	sub := c.Subscription
	if !sub.IsActive || !sub.IsTrial || sub.TrialEndDate == nil {
		return 0, false
	}
	if !c.Owner.EmailNotifications || c.Owner.Email == "" {
		return 0, false
	}
	days := dates.DaysUntil(today, *sub.TrialEndDate)
	if days <= 0 || !lo.Contains(TrialReminderDays, days) {
		return 0, false
	}
	return days, true
}

// TrialReminderService рассылает письма об окончании пробных периодов.
type TrialReminderService struct {
	repo  TrialRepository
	email EmailDispatcher
	clock clock.Clock
	log   *slog.Logger
	sweep reminderSweep
}

// NewTrialReminderService создает новый экземпляр TrialReminderService.
func NewTrialReminderService(repo TrialRepository, email EmailDispatcher, registry reminder.Registry,
	clk clock.Clock, log *slog.Logger, m *metrics.Metrics, opts Options) *TrialReminderService {
	log = log.With(slog.String("sweep", metrics.SweepTrialReminder))
	return &TrialReminderService{
		repo:  repo,
		email: email,
		clock: clk,
		log:   log,
		sweep: reminderSweep{
			registry: registry,
			log:      log,
			metrics:  m,
			kind:     metrics.KindTrial,
			opts:     opts.withDefaults(),
		},
	}
}

// Run очищает реестр отправленных напоминаний и выполняет обход.
// Вызывается ежедневным триггером.
func (s *TrialReminderService) Run(ctx context.Context) int {
	s.sweep.reset(ctx)
	return s.Sweep(ctx)
}

// Sweep выполняет обход без очистки реестра и возвращает число отправленных писем.
func (s *TrialReminderService) Sweep(ctx context.Context) int {
	started := time.Now()
	today := s.clock.Now()
	s.log.Info("checking trial reminders")

	candidates, err := s.repo.FindTrialCandidates(ctx)
	if err != nil {
		s.log.Error("failed to find trial candidates", sl.Err(err))
		s.sweep.metrics.ObserveSweep(metrics.SweepTrialReminder, started, true)
		return 0
	}

	jobs := lo.FilterMap(candidates, func(c *models.Candidate, _ int) (reminderJob, bool) {
		days, ok := TrialReminderDue(c, today)
		return reminderJob{candidate: c, days: days}, ok
	})
	s.log.Info("found trial candidates", slog.Int("count", len(candidates)), slog.Int("due", len(jobs)))

	sent := s.sweep.dispatch(ctx, jobs, func(ctx context.Context, job reminderJob) error {
		return s.email.SendTrialReminder(ctx, job.candidate, job.days)
	})

	s.log.Info("trial reminders finished", slog.Int("sent", sent))
	s.sweep.metrics.ObserveSweep(metrics.SweepTrialReminder, started, false)
	return sent
}
