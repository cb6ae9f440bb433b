package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/magabrotheeeer/subly/internal/lib/sl"
	"github.com/magabrotheeeer/subly/internal/metrics"
	"github.com/magabrotheeeer/subly/internal/models"
	"github.com/magabrotheeeer/subly/internal/reminder"
)

// errNotEligible напоминание некуда отправить (например, у владельца нет
// устройств). Такое напоминание не считается ошибкой отправки.
var errNotEligible = errors.New("reminder has no delivery target")

// reminderJob подписка, по которой сегодня положено напоминание.
type reminderJob struct {
	candidate *models.Candidate
	days      int
}

func (j reminderJob) key() reminder.Key {
	return reminder.NewKey(j.candidate.Subscription.ID, j.days)
}

func (j reminderJob) attrs() []any {
	return []any{
		slog.String("subscription_id", j.candidate.Subscription.ID.String()),
		slog.String("subscription", j.candidate.Subscription.Name),
		slog.Int("days", j.days),
	}
}

type reminderSweep struct {
	registry reminder.Registry
	log      *slog.Logger
	metrics  *metrics.Metrics
	kind     string
	opts     Options
}

// dispatch отправляет напоминания, которых еще нет в реестре, и помечает
// успешно отправленные. Возвращает число отправленных напоминаний.
func (r reminderSweep) dispatch(ctx context.Context, jobs []reminderJob,
	send func(context.Context, reminderJob) error) int {
	return forEach(ctx, r.opts.Workers, jobs, func(ctx context.Context, job reminderJob) bool {
		key := job.key()
		sent, err := r.registry.HasSent(ctx, key)
		if err != nil {
			r.log.Error("failed to check reminder registry", append(job.attrs(), sl.Err(err))...)
			r.metrics.ReminderFailed(r.kind)
			return false
		}
		if sent {
			r.log.Debug("reminder already sent today", job.attrs()...)
			return false
		}

		sendCtx, cancel := context.WithTimeout(ctx, r.opts.NotifyTimeout)
		err = send(sendCtx, job)
		cancel()
		if errors.Is(err, errNotEligible) {
			r.log.Debug("reminder skipped", append(job.attrs(), sl.Err(err))...)
			return false
		}
		if err != nil {
			r.log.Error("failed to send reminder", append(job.attrs(), sl.Err(err))...)
			r.metrics.ReminderFailed(r.kind)
			return false
		}

		if err := r.registry.MarkSent(ctx, key); err != nil {
			r.log.Warn("failed to mark reminder as sent", append(job.attrs(), sl.Err(err))...)
		}
		r.log.Info("reminder sent", job.attrs()...)
		r.metrics.ReminderSent(r.kind)
		return true
	})
}

// reset очищает реестр перед ежедневным обходом.
func (r reminderSweep) reset(ctx context.Context) {
	if err := r.registry.ResetAll(ctx); err != nil {
		r.log.Error("failed to reset reminder registry", sl.Err(err))
	}
}
