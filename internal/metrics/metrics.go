// Package metrics регистрирует prometheus-метрики фоновых обходов.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Имена обходов для лейбла sweep.
const (
	SweepRollover        = "rollover"
	SweepTrialReminder   = "trial_reminder"
	SweepPaymentReminder = "payment_reminder"
)

// Виды напоминаний для лейбла kind.
const (
	KindTrial   = "trial"
	KindPayment = "payment"
)

// Результаты обхода для лейбла result.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics набор счетчиков планировщика.
type Metrics struct {
	sweeps           *prometheus.CounterVec
	sweepDuration    *prometheus.HistogramVec
	rollovers        prometheus.Counter
	rolloverFailures prometheus.Counter
	remindersSent    *prometheus.CounterVec
	reminderFailures *prometheus.CounterVec
}

// New создает метрики и регистрирует их в reg. Если reg == nil,
// метрики не регистрируются (удобно в тестах).
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "subly_sweeps_total",
			Help: "Number of scheduled sweeps by result.",
		}, []string{"sweep", "result"}),
		sweepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "subly_sweep_duration_seconds",
			Help:    "Duration of scheduled sweeps.",
			Buckets: prometheus.DefBuckets,
		}, []string{"sweep"}),
		rollovers: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "subly_rollovers_total",
			Help: "Subscriptions whose next billing date was advanced.",
		}),
		rolloverFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "subly_rollover_failures_total",
			Help: "Subscriptions whose next billing date could not be persisted.",
		}),
		remindersSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "subly_reminders_sent_total",
			Help: "Reminders dispatched by kind.",
		}, []string{"kind"}),
		reminderFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "subly_reminder_failures_total",
			Help: "Reminders that failed to dispatch by kind.",
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(m.sweeps, m.sweepDuration, m.rollovers, m.rolloverFailures,
			m.remindersSent, m.reminderFailures)
	}
	return m
}

// ObserveSweep фиксирует завершение обхода.
func (m *Metrics) ObserveSweep(sweep string, started time.Time, failed bool) {
	if m == nil {
		return
	}
	result := ResultOK
	if failed {
		result = ResultError
	}
	m.sweeps.WithLabelValues(sweep, result).Inc()
	m.sweepDuration.WithLabelValues(sweep).Observe(time.Since(started).Seconds())
}

func (m *Metrics) RolloverApplied() {
	if m == nil {
		return
	}
	m.rollovers.Inc()
}

func (m *Metrics) RolloverFailed() {
	if m == nil {
		return
	}
	m.rolloverFailures.Inc()
}

func (m *Metrics) ReminderSent(kind string) {
	if m == nil {
		return
	}
	m.remindersSent.WithLabelValues(kind).Inc()
}

func (m *Metrics) ReminderFailed(kind string) {
	if m == nil {
		return
	}
	m.reminderFailures.WithLabelValues(kind).Inc()
}
