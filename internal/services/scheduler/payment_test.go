package services

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/subly/internal/lib/clock"
	"github.com/magabrotheeeer/subly/internal/metrics"
	"github.com/magabrotheeeer/subly/internal/models"
	"github.com/magabrotheeeer/subly/internal/reminder"
	pushservice "github.com/magabrotheeeer/subly/internal/services/push"
)

func paymentCandidate(daysUntil, leadDays int) *models.Candidate {
	sub := subscription(models.BillingMonthly, today.AddDate(0, 0, daysUntil))
	return &models.Candidate{
		Subscription: *sub,
		Owner: models.User{
			UUID:                     sub.UserUID,
			Username:                 "bob",
			Email:                    "bob@example.com",
			PushNotificationsEnabled: true,
			PaymentReminderDays:      leadDays,
			Language:                 "fr",
		},
	}
}

func TestPaymentReminderDue(t *testing.T) {
	tests := []struct {
		name      string
		candidate *models.Candidate
		wantDays  int
		wantOK    bool
	}{
		{name: "matches three day lead", candidate: paymentCandidate(3, 3), wantDays: 3, wantOK: true},
		{name: "matches one day lead", candidate: paymentCandidate(1, 1), wantDays: 1, wantOK: true},
		{name: "matches seven day lead", candidate: paymentCandidate(7, 7), wantDays: 7, wantOK: true},
		{name: "lead seven, three days left", candidate: paymentCandidate(3, 7)},
		{name: "lead three, two days left", candidate: paymentCandidate(2, 3)},
		{name: "zero lead falls back to three", candidate: paymentCandidate(3, 0), wantDays: 3, wantOK: true},
		{name: "invalid lead falls back to three", candidate: paymentCandidate(3, 5), wantDays: 3, wantOK: true},
		{name: "invalid lead is not honoured", candidate: paymentCandidate(5, 5)},
		{
			name: "trial subscription",
			candidate: func() *models.Candidate {
				c := paymentCandidate(3, 3)
				c.Subscription.IsTrial = true
				return c
			}(),
		},
		{
			name: "push disabled",
			candidate: func() *models.Candidate {
				c := paymentCandidate(3, 3)
				c.Owner.PushNotificationsEnabled = false
				return c
			}(),
		},
		{
			name: "inactive",
			candidate: func() *models.Candidate {
				c := paymentCandidate(3, 3)
				c.Subscription.IsActive = false
				return c
			}(),
		},
		{name: "nil candidate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			days, ok := PaymentReminderDue(tt.candidate, today)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantDays, days)
		})
	}
}

func newPaymentService(repo *MockRepository, push *MockPush, registry reminder.Registry) *PaymentReminderService {
	return NewPaymentReminderService(repo, push, registry, clock.Fixed(today), newNoopLogger(), nil,
		Options{NotifyTimeout: DefaultNotifyTimeout})
}

func TestPaymentReminderService_SendsOncePerDay(t *testing.T) {
	c := paymentCandidate(3, 3)
	repo := new(MockRepository)
	repo.On("FindPaymentCandidates", mock.Anything).Return([]*models.Candidate{c}, nil).Twice()
	push := new(MockPush)
	push.On("SendPaymentReminder", mock.MatchedBy(hasDeadline), c, 3).
		Return(pushservice.Result{SuccessCount: 2}, nil).Once()
	registry := reminder.NewMemoryRegistry()

	s := newPaymentService(repo, push, registry)
	ctx := context.Background()

	assert.Equal(t, 1, s.Run(ctx))
	assert.Equal(t, 0, s.Sweep(ctx))

	sent, err := registry.HasSent(ctx, reminder.NewKey(c.Subscription.ID, 3))
	require.NoError(t, err)
	assert.True(t, sent)
	push.AssertNumberOfCalls(t, "SendPaymentReminder", 1)
}

func TestPaymentReminderService_Sweep(t *testing.T) {
	due := paymentCandidate(3, 3)
	longLead := paymentCandidate(3, 7)
	weekAhead := paymentCandidate(7, 7)

	tests := []struct {
		name       string
		setupMocks func(*MockRepository, *MockPush)
		wantSent   int
		wantMarked int
	}{
		{
			name: "exact lead match only",
			setupMocks: func(r *MockRepository, p *MockPush) {
				r.On("FindPaymentCandidates", mock.Anything).
					Return([]*models.Candidate{due, longLead, weekAhead}, nil).Once()
				p.On("SendPaymentReminder", mock.Anything, due, 3).Return(pushservice.Result{SuccessCount: 1}, nil).Once()
				p.On("SendPaymentReminder", mock.Anything, weekAhead, 7).Return(pushservice.Result{SuccessCount: 1, FailureCount: 1}, nil).Once()
			},
			wantSent:   2,
			wantMarked: 2,
		},
		{
			name: "lead seven with three days left sends nothing",
			setupMocks: func(r *MockRepository, _ *MockPush) {
				r.On("FindPaymentCandidates", mock.Anything).Return([]*models.Candidate{longLead}, nil).Once()
			},
		},
		{
			name: "no device accepted",
			setupMocks: func(r *MockRepository, p *MockPush) {
				r.On("FindPaymentCandidates", mock.Anything).Return([]*models.Candidate{due}, nil).Once()
				p.On("SendPaymentReminder", mock.Anything, due, 3).Return(pushservice.Result{FailureCount: 2}, nil).Once()
			},
		},
		{
			name: "no active devices is skipped",
			setupMocks: func(r *MockRepository, p *MockPush) {
				r.On("FindPaymentCandidates", mock.Anything).Return([]*models.Candidate{due}, nil).Once()
				p.On("SendPaymentReminder", mock.Anything, due, 3).Return(pushservice.Result{}, nil).Once()
			},
		},
		{
			name: "push error continues with others",
			setupMocks: func(r *MockRepository, p *MockPush) {
				r.On("FindPaymentCandidates", mock.Anything).Return([]*models.Candidate{due, weekAhead}, nil).Once()
				p.On("SendPaymentReminder", mock.Anything, due, 3).Return(pushservice.Result{}, errors.New("boom")).Once()
				p.On("SendPaymentReminder", mock.Anything, weekAhead, 7).Return(pushservice.Result{SuccessCount: 1}, nil).Once()
			},
			wantSent:   1,
			wantMarked: 1,
		},
		{
			name: "repository error",
			setupMocks: func(r *MockRepository, _ *MockPush) {
				r.On("FindPaymentCandidates", mock.Anything).Return(nil, errors.New("db error")).Once()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			push := new(MockPush)
			tt.setupMocks(repo, push)
			registry := reminder.NewMemoryRegistry()

			s := newPaymentService(repo, push, registry)
			got := s.Sweep(context.Background())

			assert.Equal(t, tt.wantSent, got)
			assert.Equal(t, tt.wantMarked, registry.Len())
			repo.AssertExpectations(t)
			push.AssertExpectations(t)
		})
	}
}

func TestPaymentReminderService_IndependentFromTrialRegistry(t *testing.T) {
	c := paymentCandidate(3, 3)
	trialRegistry := reminder.NewMemoryRegistry()
	require.NoError(t, trialRegistry.MarkSent(context.Background(), reminder.NewKey(c.Subscription.ID, 3)))

	repo := new(MockRepository)
	repo.On("FindPaymentCandidates", mock.Anything).Return([]*models.Candidate{c}, nil).Once()
	push := new(MockPush)
	push.On("SendPaymentReminder", mock.Anything, c, 3).Return(pushservice.Result{SuccessCount: 1}, nil).Once()

	s := newPaymentService(repo, push, reminder.NewMemoryRegistry())
	assert.Equal(t, 1, s.Sweep(context.Background()))
}

func TestPaymentReminderService_FailureMetric(t *testing.T) {
	tests := []struct {
		name         string
		result       pushservice.Result
		err          error
		wantFailures int
	}{
		{name: "push disabled or no devices", result: pushservice.Result{}},
		{name: "all devices rejected", result: pushservice.Result{FailureCount: 1}, wantFailures: 1},
		{name: "transport error", err: errors.New("boom"), wantFailures: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := paymentCandidate(3, 3)
			repo := new(MockRepository)
			repo.On("FindPaymentCandidates", mock.Anything).Return([]*models.Candidate{c}, nil).Once()
			push := new(MockPush)
			push.On("SendPaymentReminder", mock.Anything, c, 3).Return(tt.result, tt.err).Once()

			reg := prometheus.NewRegistry()
			s := NewPaymentReminderService(repo, push, reminder.NewMemoryRegistry(), clock.Fixed(today),
				newNoopLogger(), metrics.New(reg), Options{NotifyTimeout: DefaultNotifyTimeout})

			assert.Equal(t, 0, s.Sweep(context.Background()))

			count, err := testutil.GatherAndCount(reg, "subly_reminder_failures_total")
			require.NoError(t, err)
			assert.Equal(t, tt.wantFailures, count)
		})
	}
}
