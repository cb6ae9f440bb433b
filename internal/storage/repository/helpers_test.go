package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/subly/internal/migrations"
	"github.com/magabrotheeeer/subly/internal/models"
)

// setupTestDatabase поднимает PostgreSQL в контейнере и накатывает миграции.
func setupTestDatabase(t *testing.T) *Storage {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start container")
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	storage, err := New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close() })

	migrationsPath, err := filepath.Abs("../../../migrations")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, migrationsPath))
	require.NoError(t, CheckDatabaseReady(ctx, storage))

	return storage
}

// testFactory создает тестовые записи напрямую через SQL.
type testFactory struct {
	t       *testing.T
	storage *Storage
}

func newTestFactory(t *testing.T, storage *Storage) *testFactory {
	return &testFactory{t: t, storage: storage}
}

func (f *testFactory) createUser(u models.User) uuid.UUID {
	f.t.Helper()
	if u.UUID == uuid.Nil {
		u.UUID = uuid.New()
	}
	if u.Language == "" {
		u.Language = "en"
	}
	if u.Currency == "" {
		u.Currency = "EUR"
	}
	if u.PaymentReminderDays == 0 {
		u.PaymentReminderDays = models.DefaultPaymentReminderDays
	}
	var token any
	if u.CalendarToken != "" {
		token = u.CalendarToken
	}
	_, err := f.storage.DB.Exec(`INSERT INTO users
		(uid, username, email, email_notifications, push_notifications_enabled,
		 payment_reminder_days, language, currency, calendar_token)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		u.UUID, u.Username, u.Email, u.EmailNotifications, u.PushNotificationsEnabled,
		u.PaymentReminderDays, u.Language, u.Currency, token)
	require.NoError(f.t, err)
	return u.UUID
}

func (f *testFactory) createSubscription(s models.Subscription) uuid.UUID {
	f.t.Helper()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.BillingCycle == "" {
		s.BillingCycle = models.BillingMonthly
	}
	if s.Currency == "" {
		s.Currency = "EUR"
	}
	if s.TotalPeople == 0 {
		s.TotalPeople = 1
	}
	_, err := f.storage.DB.Exec(`INSERT INTO subscriptions
		(id, user_uid, name, amount, currency, billing_cycle, category, next_billing_date,
		 is_active, is_trial, trial_end_date, is_shared, total_people, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		s.ID, s.UserUID, s.Name, s.Amount, s.Currency, string(s.BillingCycle), "Streaming",
		s.NextBillingDate, s.IsActive, s.IsTrial, s.TrialEndDate, s.IsShared, s.TotalPeople, s.Notes)
	require.NoError(f.t, err)
	return s.ID
}

func (f *testFactory) createPushSubscription(userUID uuid.UUID, endpoint string, active bool) int64 {
	f.t.Helper()
	var id int64
	err := f.storage.DB.QueryRow(`INSERT INTO push_subscriptions
		(user_uid, endpoint, p256dh, auth, is_active)
		VALUES ($1, $2, 'p256dh-key', 'auth-key', $3) RETURNING id`,
		userUID, endpoint, active).Scan(&id)
	require.NoError(f.t, err)
	return id
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
