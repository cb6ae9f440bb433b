package models

import (
	"time"

	"github.com/google/uuid"
)

// PushSubscription конечная точка web-push одного устройства пользователя.
type PushSubscription struct {
	ID        int64
	UserUID   uuid.UUID
	Endpoint  string
	P256dh    string
	Auth      string
	UserAgent string
	IsActive  bool
	CreatedAt time.Time
}
