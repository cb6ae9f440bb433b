// Package models содержит доменные структуры Subly: подписку, пользователя,
// push-подписку устройства и read-модель кандидата на напоминание.
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BillingCycle период повторения списания.
type BillingCycle string

const (
	BillingMonthly BillingCycle = "monthly"
	BillingAnnual  BillingCycle = "annual"
)

// Valid сообщает, известен ли период.
func (c BillingCycle) Valid() bool {
	return c == BillingMonthly || c == BillingAnnual
}

// Subscription представляет регулярный платеж пользователя.
// NextBillingDate всегда указывает на ближайшее будущее списание
// (или только что прошедшее, до переноса планировщиком).
type Subscription struct {
	ID              uuid.UUID       // Идентификатор подписки
	UserUID         uuid.UUID       // Владелец
	Name            string          // Название сервиса
	Amount          decimal.Decimal // Полная стоимость за период
	Currency        string          // EUR или USD
	BillingCycle    BillingCycle    // monthly или annual
	Category        string          // Категория для статистики
	NextBillingDate time.Time       // Дата следующего списания
	IsActive        bool
	IsTrial         bool
	TrialEndDate    *time.Time // Окончание пробного периода, nil если не задано
	IsShared        bool       // Подписка делится с другими людьми
	TotalPeople     int        // Сколько человек делят подписку
	PeopleWhoPaid   int        // Сколько из них уже перевели свою долю
	Notes           string
	URL             string
	IconURL         string
}

// MyCost возвращает долю пользователя за один период.
func (s *Subscription) MyCost() decimal.Decimal {
	if s.IsShared && s.TotalPeople > 1 {
		return s.Amount.Div(decimal.NewFromInt(int64(s.TotalPeople))).Round(2)
	}
	return s.Amount
}

