package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/subly/internal/models"
)

// ListActivePushSubscriptions возвращает активные устройства пользователя.
func (s *Storage) ListActivePushSubscriptions(ctx context.Context, userUID uuid.UUID) ([]*models.PushSubscription, error) {
	const op = "storage.ListActivePushSubscriptions"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, endpoint, p256dh, auth, user_agent, is_active, created_at
			  FROM push_subscriptions
			  WHERE user_uid = $1 AND is_active
			  ORDER BY id`
	rows, err := s.DB.QueryContext(ctx, query, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.PushSubscription
	for rows.Next() {
		var p models.PushSubscription
		if err = rows.Scan(&p.ID, &p.UserUID, &p.Endpoint, &p.P256dh, &p.Auth,
			&p.UserAgent, &p.IsActive, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// DeactivatePushSubscription помечает устройство неактивным, например после
// ответа 410 Gone от push-сервиса.
func (s *Storage) DeactivatePushSubscription(ctx context.Context, id int64) error {
	const op = "storage.DeactivatePushSubscription"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	result, err := s.DB.ExecContext(ctx,
		`UPDATE push_subscriptions SET is_active = false WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}
