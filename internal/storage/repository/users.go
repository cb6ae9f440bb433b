package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/subly/internal/models"
)

// GetUserByCalendarToken возвращает владельца токена календарной ленты.
func (s *Storage) GetUserByCalendarToken(ctx context.Context, token string) (*models.User, error) {
	const op = "storage.GetUserByCalendarToken"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + ownerColumns + `
			  FROM users u
			  WHERE u.calendar_token = $1`
	u := &models.User{}
	err := s.DB.QueryRowContext(ctx, query, token).Scan(userDest(u)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}
