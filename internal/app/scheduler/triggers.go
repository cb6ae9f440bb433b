package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Job ежедневная задача планировщика. Run выполняется по расписанию Spec.
// Startup выполняется один раз через startupDelay после старта, если запуск
// при старте включен; nil означает Run.
type Job struct {
	Name    string
	Spec    string
	Run     func(ctx context.Context) int
	Startup func(ctx context.Context) int
}

// Triggers запускает задачи по cron-расписанию в часовом поясе планировщика.
type Triggers struct {
	cron         *cron.Cron
	jobs         []Job
	runOnStartup bool
	startupDelay time.Duration
	log          *slog.Logger

	stop chan struct{}
	wg   sync.WaitGroup
	ctx  context.Context
}

// NewTriggers регистрирует задачи. Возвращает ошибку, если расписание
// какой-либо задачи не разбирается.
func NewTriggers(loc *time.Location, jobs []Job, runOnStartup bool, startupDelay time.Duration,
	log *slog.Logger) (*Triggers, error) {
	const op = "app.scheduler.NewTriggers"
	if loc == nil {
		loc = time.UTC
	}
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(log.Handler(), slog.LevelDebug))
	t := &Triggers{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(cronLogger)),
		),
		jobs:         jobs,
		runOnStartup: runOnStartup,
		startupDelay: startupDelay,
		log:          log,
		stop:         make(chan struct{}),
		ctx:          context.Background(),
	}

	for _, job := range jobs {
		if _, err := t.cron.AddFunc(job.Spec, func() { t.run(job.Name, job.Run) }); err != nil {
			return nil, fmt.Errorf("%s: job %s: %w", op, job.Name, err)
		}
		log.Info("job scheduled", slog.String("job", job.Name), slog.String("spec", job.Spec),
			slog.String("timezone", loc.String()))
	}
	return t, nil
}

// Start запускает расписание. Задачи получают контекст, который не
// отменяется вместе с ctx: начатый обход доводится до конца.
func (t *Triggers) Start(ctx context.Context) {
	t.ctx = context.WithoutCancel(ctx)
	t.cron.Start()

	if !t.runOnStartup {
		return
	}
	for _, job := range t.jobs {
		fn := job.Startup
		if fn == nil {
			fn = job.Run
		}
		t.wg.Add(1)
		go func(name string, fn func(context.Context) int) {
			defer t.wg.Done()
			timer := time.NewTimer(t.startupDelay)
			defer timer.Stop()
			select {
			case <-timer.C:
				t.run(name, fn)
			case <-t.stop:
			}
		}(job.Name, fn)
	}
}

// Stop останавливает расписание и ждет завершения уже запущенных задач.
func (t *Triggers) Stop() {
	close(t.stop)
	<-t.cron.Stop().Done()
	t.wg.Wait()
}

func (t *Triggers) run(name string, fn func(context.Context) int) {
	started := time.Now()
	n := fn(t.ctx)
	t.log.Info("job finished", slog.String("job", name), slog.Int("processed", n),
		slog.Duration("took", time.Since(started)))
}
