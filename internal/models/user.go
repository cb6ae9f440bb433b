package models

import "github.com/google/uuid"

// DefaultPaymentReminderDays срок напоминания о платеже по умолчанию.
const DefaultPaymentReminderDays = 3

// User представляет зарегистрированного пользователя и его настройки уведомлений.
type User struct {
	UUID                     uuid.UUID
	Username                 string
	Email                    string
	EmailNotifications       bool
	PushNotificationsEnabled bool
	PaymentReminderDays      int    // 1, 3 или 7
	Language                 string // en или fr
	Currency                 string // EUR или USD
	CalendarToken            string
}

// ReminderLeadDays возвращает срок напоминания о платеже, заменяя
// недопустимые значения значением по умолчанию.
func (u *User) ReminderLeadDays() int {
	switch u.PaymentReminderDays {
	case 1, 3, 7:
		return u.PaymentReminderDays
	default:
		return DefaultPaymentReminderDays
	}
}
