package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSubscription_MyCost(t *testing.T) {
	tests := []struct {
		name string
		sub  Subscription
		want string
	}{
		{name: "not shared", sub: Subscription{Amount: decimal.RequireFromString("15.99")}, want: "15.99"},
		{name: "shared by three", sub: Subscription{Amount: decimal.RequireFromString("18"), IsShared: true, TotalPeople: 3}, want: "6"},
		{name: "shared rounds", sub: Subscription{Amount: decimal.RequireFromString("10"), IsShared: true, TotalPeople: 3}, want: "3.33"},
		{name: "shared flag with one person", sub: Subscription{Amount: decimal.RequireFromString("10"), IsShared: true, TotalPeople: 1}, want: "10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, decimal.RequireFromString(tt.want).Equal(tt.sub.MyCost()), "got %s", tt.sub.MyCost())
		})
	}
}

func TestBillingCycle_Valid(t *testing.T) {
	assert.True(t, BillingMonthly.Valid())
	assert.True(t, BillingAnnual.Valid())
	assert.False(t, BillingCycle("weekly").Valid())
}

func TestUser_ReminderLeadDays(t *testing.T) {
	for days, want := range map[int]int{0: 3, 1: 1, 3: 3, 7: 7, 5: 3, -1: 3} {
		u := User{PaymentReminderDays: days}
		assert.Equal(t, want, u.ReminderLeadDays(), "days=%d", days)
	}
}

func TestTrialReminderMessage_RoundTrip(t *testing.T) {
	end := time.Date(2024, 4, 23, 0, 0, 0, 0, time.UTC)
	c := &Candidate{
		Subscription: Subscription{
			ID:           uuid.New(),
			Name:         "Disney+",
			Amount:       decimal.RequireFromString("12"),
			Currency:     "USD",
			IsActive:     true,
			IsTrial:      true,
			TrialEndDate: &end,
			IsShared:     true,
			TotalPeople:  2,
		},
		Owner: User{UUID: uuid.New(), Username: "alice", Email: "alice@example.com", Language: "fr"},
	}

	msg := NewTrialReminderMessage(c, 3)
	assert.Equal(t, 3, msg.DaysLeft)
	assert.True(t, msg.Amount.Equal(decimal.NewFromInt(6)))

	back := msg.Candidate()
	assert.Equal(t, c.Subscription.ID, back.Subscription.ID)
	assert.Equal(t, "Disney+", back.Subscription.Name)
	assert.True(t, back.Subscription.MyCost().Equal(decimal.NewFromInt(6)))
	assert.True(t, back.Subscription.TrialEndDate.Equal(end))
	assert.Equal(t, "alice@example.com", back.Owner.Email)
	assert.Equal(t, "fr", back.Owner.Language)
	assert.True(t, back.Owner.EmailNotifications)
}

func TestNewTrialReminderMessage_Language(t *testing.T) {
	tests := []struct {
		language string
		want     string
	}{
		{language: "en", want: "en"},
		{language: "fr", want: "fr"},
		{language: "es", want: "en"},
		{language: "", want: "en"},
	}

	for _, tt := range tests {
		t.Run(tt.language, func(t *testing.T) {
			c := &Candidate{Owner: User{Language: tt.language}}
			assert.Equal(t, tt.want, NewTrialReminderMessage(c, 1).Language)
		})
	}
}
