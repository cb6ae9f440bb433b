package services

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/subly/internal/models"
	pushservice "github.com/magabrotheeeer/subly/internal/services/push"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) FindOverdueSubscriptions(ctx context.Context, now time.Time) ([]*models.Subscription, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Subscription), args.Error(1)
}

func (m *MockRepository) UpdateNextBillingDate(ctx context.Context, id uuid.UUID, date time.Time) error {
	args := m.Called(ctx, id, date)
	return args.Error(0)
}

func (m *MockRepository) FindTrialCandidates(ctx context.Context) ([]*models.Candidate, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Candidate), args.Error(1)
}

func (m *MockRepository) FindPaymentCandidates(ctx context.Context) ([]*models.Candidate, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Candidate), args.Error(1)
}

type MockEmail struct {
	mock.Mock
}

func (m *MockEmail) SendTrialReminder(ctx context.Context, candidate *models.Candidate, daysLeft int) error {
	args := m.Called(ctx, candidate, daysLeft)
	return args.Error(0)
}

type MockPush struct {
	mock.Mock
}

func (m *MockPush) SendPaymentReminder(ctx context.Context, candidate *models.Candidate, daysUntil int) (pushservice.Result, error) {
	args := m.Called(ctx, candidate, daysUntil)
	return args.Get(0).(pushservice.Result), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func hasDeadline(ctx context.Context) bool {
	_, ok := ctx.Deadline()
	return ok
}
