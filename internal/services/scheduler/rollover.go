package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/subly/internal/lib/clock"
	"github.com/magabrotheeeer/subly/internal/lib/dates"
	"github.com/magabrotheeeer/subly/internal/lib/sl"
	"github.com/magabrotheeeer/subly/internal/metrics"
	"github.com/magabrotheeeer/subly/internal/models"
)

// RolloverRepository доступ к подпискам для переноса дат списаний.
type RolloverRepository interface {
	FindOverdueSubscriptions(ctx context.Context, now time.Time) ([]*models.Subscription, error)
	UpdateNextBillingDate(ctx context.Context, id uuid.UUID, date time.Time) error
}

// RolloverPlan новая дата списания для одной подписки.
type RolloverPlan struct {
	SubscriptionID uuid.UUID
	From           time.Time
	Next           time.Time
	Periods        int
}

// PlanRollover вычисляет первую дату списания строго после now.
// Шаг k считается от исходной даты, поэтому 31-е число не "съезжает"
// на 28-е после февраля. Календарные месяцы считаются в локации now.
// Возвращает false, если подписка неактивна, не просрочена или у нее
// неизвестный период.
func PlanRollover(sub *models.Subscription, now time.Time) (RolloverPlan, bool) {
	if sub == nil || !sub.IsActive || !sub.NextBillingDate.Before(now) {
		return RolloverPlan{}, false
	}

	var step func(time.Time, int) time.Time
	switch sub.BillingCycle {
	case models.BillingMonthly:
		step = dates.AddMonths
	case models.BillingAnnual:
		step = dates.AddYears
	default:
		return RolloverPlan{}, false
	}

	orig := sub.NextBillingDate.In(now.Location())
	k := 1
	next := step(orig, k)
	for !next.After(now) {
		k++
		next = step(orig, k)
	}
	return RolloverPlan{
		SubscriptionID: sub.ID,
		From:           orig,
		Next:           next,
		Periods:        k,
	}, true
}

// RolloverService переносит просроченные даты списаний на следующий период.
type RolloverService struct {
	repo    RolloverRepository
	clock   clock.Clock
	log     *slog.Logger
	metrics *metrics.Metrics
	opts    Options
}

// NewRolloverService создает новый экземпляр RolloverService.
func NewRolloverService(repo RolloverRepository, clk clock.Clock, log *slog.Logger,
	m *metrics.Metrics, opts Options) *RolloverService {
	return &RolloverService{
		repo:    repo,
		clock:   clk,
		log:     log,
		metrics: m,
		opts:    opts.withDefaults(),
	}
}

// Run выполняет один обход и возвращает количество перенесенных подписок.
func (s *RolloverService) Run(ctx context.Context) int {
	started := time.Now()
	now := s.clock.Now()
	log := s.log.With(slog.String("sweep", metrics.SweepRollover))
	log.Info("starting billing date rollover", slog.Time("now", now))

	subs, err := s.repo.FindOverdueSubscriptions(ctx, now)
	if err != nil {
		log.Error("failed to find overdue subscriptions", sl.Err(err))
		s.metrics.ObserveSweep(metrics.SweepRollover, started, true)
		return 0
	}

	plans := make([]RolloverPlan, 0, len(subs))
	for _, sub := range subs {
		plan, ok := PlanRollover(sub, now)
		if !ok {
			if sub != nil && !sub.BillingCycle.Valid() {
				log.Warn("unknown billing cycle, skipping",
					slog.String("subscription_id", sub.ID.String()),
					slog.String("billing_cycle", string(sub.BillingCycle)))
			}
			continue
		}
		plans = append(plans, plan)
	}

	updated := forEach(ctx, s.opts.Workers, plans, func(ctx context.Context, plan RolloverPlan) bool {
		if err := s.repo.UpdateNextBillingDate(ctx, plan.SubscriptionID, plan.Next); err != nil {
			log.Error("failed to update next billing date",
				slog.String("subscription_id", plan.SubscriptionID.String()), sl.Err(err))
			s.metrics.RolloverFailed()
			return false
		}
		log.Debug("billing date advanced",
			slog.String("subscription_id", plan.SubscriptionID.String()),
			slog.Time("from", plan.From),
			slog.Time("next", plan.Next),
			slog.Int("periods", plan.Periods))
		s.metrics.RolloverApplied()
		return true
	})

	log.Info("billing date rollover finished",
		slog.Int("found", len(subs)), slog.Int("updated", updated))
	s.metrics.ObserveSweep(metrics.SweepRollover, started, false)
	return updated
}
