package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/subly/internal/models"
)

const subscriptionColumns = `s.id, s.user_uid, s.name, s.amount, s.currency, s.billing_cycle,
			s.category, s.next_billing_date, s.is_active, s.is_trial, s.trial_end_date,
			s.is_shared, s.total_people, s.people_who_paid, s.notes, s.url, s.icon_url`

const ownerColumns = `u.uid, u.username, u.email, u.email_notifications,
			u.push_notifications_enabled, u.payment_reminder_days, u.language,
			u.currency, COALESCE(u.calendar_token, '')`

type rowScanner interface {
	Scan(dest ...any) error
}

func subscriptionDest(sub *models.Subscription, trialEnd *sql.NullTime) []any {
	return []any{&sub.ID, &sub.UserUID, &sub.Name, &sub.Amount, &sub.Currency, &sub.BillingCycle,
		&sub.Category, &sub.NextBillingDate, &sub.IsActive, &sub.IsTrial, trialEnd,
		&sub.IsShared, &sub.TotalPeople, &sub.PeopleWhoPaid, &sub.Notes, &sub.URL, &sub.IconURL}
}

func userDest(u *models.User) []any {
	return []any{&u.UUID, &u.Username, &u.Email, &u.EmailNotifications,
		&u.PushNotificationsEnabled, &u.PaymentReminderDays, &u.Language,
		&u.Currency, &u.CalendarToken}
}

func scanSubscription(row rowScanner) (*models.Subscription, error) {
	var sub models.Subscription
	var trialEnd sql.NullTime
	if err := row.Scan(subscriptionDest(&sub, &trialEnd)...); err != nil {
		return nil, err
	}
	if trialEnd.Valid {
		sub.TrialEndDate = &trialEnd.Time
	}
	return &sub, nil
}

func scanCandidate(row rowScanner) (*models.Candidate, error) {
	var c models.Candidate
	var trialEnd sql.NullTime
	dest := append(subscriptionDest(&c.Subscription, &trialEnd), userDest(&c.Owner)...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if trialEnd.Valid {
		c.Subscription.TrialEndDate = &trialEnd.Time
	}
	return &c, nil
}

// FindOverdueSubscriptions возвращает активные подписки, дата списания
// которых уже прошла относительно now.
func (s *Storage) FindOverdueSubscriptions(ctx context.Context, now time.Time) ([]*models.Subscription, error) {
	const op = "storage.FindOverdueSubscriptions"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions s
			  WHERE s.is_active AND s.next_billing_date < $1
			  ORDER BY s.next_billing_date`
	rows, err := s.DB.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, sub)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// UpdateNextBillingDate сохраняет новую дату списания подписки.
func (s *Storage) UpdateNextBillingDate(ctx context.Context, id uuid.UUID, date time.Time) error {
	const op = "storage.UpdateNextBillingDate"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	result, err := s.DB.ExecContext(ctx,
		`UPDATE subscriptions SET next_billing_date = $1 WHERE id = $2`, date, id)
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

// FindTrialCandidates возвращает активные пробные подписки с датой окончания,
// владельцы которых получают письма.
func (s *Storage) FindTrialCandidates(ctx context.Context) ([]*models.Candidate, error) {
	const op = "storage.FindTrialCandidates"
	query := `SELECT ` + subscriptionColumns + `, ` + ownerColumns + `
			  FROM subscriptions s
			  JOIN users u ON u.uid = s.user_uid
			  WHERE s.is_active AND s.is_trial AND s.trial_end_date IS NOT NULL
			    AND u.email_notifications AND u.email <> ''`
	return s.findCandidates(ctx, op, query)
}

// FindPaymentCandidates возвращает активные платные подписки пользователей
// с включенными push-уведомлениями.
func (s *Storage) FindPaymentCandidates(ctx context.Context) ([]*models.Candidate, error) {
	const op = "storage.FindPaymentCandidates"
	query := `SELECT ` + subscriptionColumns + `, ` + ownerColumns + `
			  FROM subscriptions s
			  JOIN users u ON u.uid = s.user_uid
			  WHERE s.is_active AND NOT s.is_trial AND u.push_notifications_enabled`
	return s.findCandidates(ctx, op, query)
}

func (s *Storage) findCandidates(ctx context.Context, op, query string) ([]*models.Candidate, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ListActiveSubscriptionsByUser возвращает активные подписки пользователя
// в порядке ближайшего списания.
func (s *Storage) ListActiveSubscriptionsByUser(ctx context.Context, userUID uuid.UUID) ([]*models.Subscription, error) {
	const op = "storage.ListActiveSubscriptionsByUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions s
			  WHERE s.user_uid = $1 AND s.is_active
			  ORDER BY s.next_billing_date, s.name`
	rows, err := s.DB.QueryContext(ctx, query, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, sub)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
