// Package reminder реализует реестр дедупликации напоминаний: множество
// ключей (подписка, дней осталось), уже отправленных за текущие сутки.
// Реестр очищается планировщиком один раз в день перед обходом.
package reminder

import (
	"context"
	"strconv"

	"github.com/google/uuid"
)

// Key идентифицирует одно напоминание в пределах дня.
type Key struct {
	SubscriptionID uuid.UUID
	DaysRemaining  int
}

// NewKey создает ключ для подписки и количества оставшихся дней.
func NewKey(subscriptionID uuid.UUID, daysRemaining int) Key {
	return Key{SubscriptionID: subscriptionID, DaysRemaining: daysRemaining}
}

// String возвращает ключ в виде "<subscriptionId>:<daysRemaining>".
func (k Key) String() string {
	return k.SubscriptionID.String() + ":" + strconv.Itoa(k.DaysRemaining)
}

// Registry хранит отправленные за день напоминания.
// Проверка и пометка не атомарны вместе: редкая повторная отправка
// при гонке допустима.
type Registry interface {
	HasSent(ctx context.Context, key Key) (bool, error)
	MarkSent(ctx context.Context, key Key) error
	ResetAll(ctx context.Context) error
}
