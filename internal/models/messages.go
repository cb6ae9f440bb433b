package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/subly/internal/lib/translations"
)

// TrialReminderMessage тело сообщения очереди notifications.trial_reminder.
type TrialReminderMessage struct {
	SubscriptionID   uuid.UUID       `json:"subscription_id"`
	SubscriptionName string          `json:"subscription_name"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	TrialEndDate     time.Time       `json:"trial_end_date"`
	DaysLeft         int             `json:"days_left"`
	UserUID          uuid.UUID       `json:"user_uid"`
	Email            string          `json:"email"`
	Username         string          `json:"username"`
	Language         string          `json:"language"`
}

// NewTrialReminderMessage собирает сообщение из кандидата. Неподдерживаемый
// язык заменяется на translations.DefaultLanguage.
func NewTrialReminderMessage(c *Candidate, daysLeft int) TrialReminderMessage {
	msg := TrialReminderMessage{
		SubscriptionID:   c.Subscription.ID,
		SubscriptionName: c.Subscription.Name,
		Amount:           c.Subscription.MyCost(),
		Currency:         c.Subscription.Currency,
		DaysLeft:         daysLeft,
		UserUID:          c.Owner.UUID,
		Email:            c.Owner.Email,
		Username:         c.Owner.Username,
		Language:         c.Owner.Language,
	}
	if !translations.Supported(msg.Language) {
		msg.Language = translations.DefaultLanguage
	}
	if c.Subscription.TrialEndDate != nil {
		msg.TrialEndDate = *c.Subscription.TrialEndDate
	}
	return msg
}

// Candidate восстанавливает кандидата, достаточного для отправки письма.
func (m TrialReminderMessage) Candidate() *Candidate {
	end := m.TrialEndDate
	return &Candidate{
		Subscription: Subscription{
			ID:           m.SubscriptionID,
			UserUID:      m.UserUID,
			Name:         m.SubscriptionName,
			Amount:       m.Amount,
			Currency:     m.Currency,
			IsActive:     true,
			IsTrial:      true,
			TrialEndDate: &end,
		},
		Owner: User{
			UUID:               m.UserUID,
			Username:           m.Username,
			Email:              m.Email,
			EmailNotifications: true,
			Language:           m.Language,
		},
	}
}
