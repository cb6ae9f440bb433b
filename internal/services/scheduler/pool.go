// Package services содержит ежедневные обходы планировщика: перенос дат
// списаний, напоминания об окончании пробного периода и о предстоящих платежах.
//
// Каждый обход разделен на чистый расчет (PlanRollover, TrialReminderDue,
// PaymentReminderDue) и шаг с вводом-выводом. Ошибки отдельных подписок
// логируются и не прерывают обход.
package services

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultNotifyTimeout ограничивает одну исходящую отправку.
const DefaultNotifyTimeout = 10 * time.Second

// Options общие настройки обходов.
type Options struct {
	Workers       int
	NotifyTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Workers < 1 {
		o.Workers = 1
	}
	if o.NotifyTimeout <= 0 {
		o.NotifyTimeout = DefaultNotifyTimeout
	}
	return o
}

// forEach обрабатывает items не более чем workers горутинами и возвращает
// число элементов, для которых fn вернула true. fn не возвращает ошибку,
// поэтому сбой одного элемента не отменяет остальные.
func forEach[T any](ctx context.Context, workers int, items []T, fn func(context.Context, T) bool) int {
	var done atomic.Int64
	var g errgroup.Group
	g.SetLimit(workers)
	for _, item := range items {
		g.Go(func() error {
			if fn(ctx, item) {
				done.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()
	return int(done.Load())
}
