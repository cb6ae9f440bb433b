package repository

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/subly/internal/models"
)

// Один контейнер на весь набор: каждый подтест работает со своими пользователями.
func TestStorage(t *testing.T) {
	storage := setupTestDatabase(t)
	factory := newTestFactory(t, storage)
	ctx := context.Background()
	now := time.Date(2024, 4, 20, 12, 0, 0, 0, time.UTC)

	owner := factory.createUser(models.User{
		Username:                 "alice",
		Email:                    "alice@example.com",
		EmailNotifications:       true,
		PushNotificationsEnabled: true,
		PaymentReminderDays:      7,
		Language:                 "fr",
		CalendarToken:            strings.Repeat("ab", 32),
	})
	silent := factory.createUser(models.User{
		Username: "bob",
		Email:    "bob@example.com",
	})

	trialEnd := now.AddDate(0, 0, 3)
	overdueID := factory.createSubscription(models.Subscription{
		UserUID: owner, Name: "Netflix", Amount: amount("15.99"),
		NextBillingDate: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), IsActive: true,
	})
	futureID := factory.createSubscription(models.Subscription{
		UserUID: owner, Name: "Spotify", Amount: amount("10.50"), BillingCycle: models.BillingAnnual,
		NextBillingDate: now.AddDate(0, 0, 7), IsActive: true, IsShared: true, TotalPeople: 3,
	})
	trialID := factory.createSubscription(models.Subscription{
		UserUID: owner, Name: "Disney+", Amount: amount("8.99"),
		NextBillingDate: trialEnd, IsActive: true, IsTrial: true, TrialEndDate: &trialEnd,
	})
	factory.createSubscription(models.Subscription{
		UserUID: owner, Name: "Old gym", Amount: amount("30"),
		NextBillingDate: time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC), IsActive: false,
	})
	factory.createSubscription(models.Subscription{
		UserUID: silent, Name: "Hulu", Amount: amount("7.99"),
		NextBillingDate: now.AddDate(0, 0, 3), IsActive: true, IsTrial: true, TrialEndDate: &trialEnd,
	})

	t.Run("FindOverdueSubscriptions", func(t *testing.T) {
		subs, err := storage.FindOverdueSubscriptions(ctx, now)
		require.NoError(t, err)
		require.Len(t, subs, 1)
		assert.Equal(t, overdueID, subs[0].ID)
		assert.True(t, subs[0].Amount.Equal(amount("15.99")))
		assert.Equal(t, models.BillingMonthly, subs[0].BillingCycle)
	})

	t.Run("UpdateNextBillingDate", func(t *testing.T) {
		next := time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)
		require.NoError(t, storage.UpdateNextBillingDate(ctx, overdueID, next))

		subs, err := storage.FindOverdueSubscriptions(ctx, now)
		require.NoError(t, err)
		assert.Empty(t, subs)

		err = storage.UpdateNextBillingDate(ctx, uuid.New(), next)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("FindTrialCandidates", func(t *testing.T) {
		candidates, err := storage.FindTrialCandidates(ctx)
		require.NoError(t, err)
		require.Len(t, candidates, 1, "owner without email notifications is excluded")
		c := candidates[0]
		assert.Equal(t, trialID, c.Subscription.ID)
		require.NotNil(t, c.Subscription.TrialEndDate)
		assert.True(t, c.Subscription.TrialEndDate.Equal(trialEnd))
		assert.Equal(t, "alice@example.com", c.Owner.Email)
		assert.Equal(t, "fr", c.Owner.Language)
	})

	t.Run("FindPaymentCandidates", func(t *testing.T) {
		candidates, err := storage.FindPaymentCandidates(ctx)
		require.NoError(t, err)
		ids := make([]uuid.UUID, 0, len(candidates))
		for _, c := range candidates {
			ids = append(ids, c.Subscription.ID)
			assert.Equal(t, 7, c.Owner.PaymentReminderDays)
			assert.False(t, c.Subscription.IsTrial)
		}
		assert.ElementsMatch(t, []uuid.UUID{overdueID, futureID}, ids)
	})

	t.Run("ListActiveSubscriptionsByUser", func(t *testing.T) {
		subs, err := storage.ListActiveSubscriptionsByUser(ctx, owner)
		require.NoError(t, err)
		require.Len(t, subs, 3)
		assert.Equal(t, trialID, subs[0].ID)
		assert.Equal(t, futureID, subs[1].ID)
		assert.Equal(t, 3, subs[1].TotalPeople)
	})

	t.Run("GetUserByCalendarToken", func(t *testing.T) {
		u, err := storage.GetUserByCalendarToken(ctx, strings.Repeat("ab", 32))
		require.NoError(t, err)
		assert.Equal(t, owner, u.UUID)
		assert.Equal(t, 7, u.PaymentReminderDays)

		_, err = storage.GetUserByCalendarToken(ctx, strings.Repeat("cd", 32))
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("PushSubscriptions", func(t *testing.T) {
		first := factory.createPushSubscription(owner, "https://push.example.com/1", true)
		factory.createPushSubscription(owner, "https://push.example.com/2", true)
		factory.createPushSubscription(owner, "https://push.example.com/3", false)

		subs, err := storage.ListActivePushSubscriptions(ctx, owner)
		require.NoError(t, err)
		require.Len(t, subs, 2)
		assert.Equal(t, "https://push.example.com/1", subs[0].Endpoint)
		assert.Equal(t, "p256dh-key", subs[0].P256dh)

		require.NoError(t, storage.DeactivatePushSubscription(ctx, first))
		subs, err = storage.ListActivePushSubscriptions(ctx, owner)
		require.NoError(t, err)
		require.Len(t, subs, 1)
		assert.Equal(t, "https://push.example.com/2", subs[0].Endpoint)

		assert.ErrorIs(t, storage.DeactivatePushSubscription(ctx, 999999), ErrNotFound)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := storage.FindTrialCandidates(cctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
