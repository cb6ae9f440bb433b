// Package services отдает ленту iCal с датами списаний пользователя.
// Лента ищется по секретному токену календаря и может кешироваться в Redis.
package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/subly/internal/cache"
	"github.com/magabrotheeeer/subly/internal/lib/clock"
	"github.com/magabrotheeeer/subly/internal/lib/dates"
	"github.com/magabrotheeeer/subly/internal/lib/sl"
	"github.com/magabrotheeeer/subly/internal/lib/translations"
	"github.com/magabrotheeeer/subly/internal/models"
)

const (
	productID    = "-//Subly//Subscription Tracker//EN"
	calendarName = "Subly - Subscription Payments"
)

// Repository доступ к пользователю по токену и его активным подпискам.
type Repository interface {
	GetUserByCalendarToken(ctx context.Context, token string) (*models.User, error)
	ListActiveSubscriptionsByUser(ctx context.Context, userUID uuid.UUID) ([]*models.Subscription, error)
}

// Cache хранилище уже отрисованных лент.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
}

// Service собирает календарные ленты.
type Service struct {
	repo        Repository
	cache       Cache
	ttl         time.Duration
	clk         clock.Clock
	frontendURL string
	log         *slog.Logger
}

// NewService создает новый экземпляр Service. cache может быть nil,
// тогда лента собирается на каждый запрос.
func NewService(repo Repository, cache Cache, ttl time.Duration, clk clock.Clock, frontendURL string, log *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		cache:       cache,
		ttl:         ttl,
		clk:         clk,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		log:         log,
	}
}

// Feed возвращает ленту в формате text/calendar. Для неизвестного токена
// возвращается ошибка репозитория (repository.ErrNotFound).
func (s *Service) Feed(ctx context.Context, token string) ([]byte, error) {
	const op = "services.calendar.Feed"
	key := cache.CalendarKey(token)

	if s.cache != nil && s.ttl > 0 {
		var cached string
		found, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.log.Warn("failed to read calendar from cache", sl.Err(err))
		}
		if found {
			return []byte(cached), nil
		}
	}

	user, err := s.repo.GetUserByCalendarToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	subs, err := s.repo.ListActiveSubscriptionsByUser(ctx, user.UUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	data, err := Encode(Build(user, subs, s.frontendURL, s.clk.Now()))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if s.cache != nil && s.ttl > 0 {
		if err := s.cache.Set(ctx, key, string(data), s.ttl); err != nil {
			s.log.Warn("failed to cache calendar", sl.Err(err))
		}
	}
	s.log.Debug("calendar feed built", slog.String("user", user.UUID.String()), slog.Int("events", len(subs)))
	return data, nil
}

// Build собирает календарь: одно событие на весь день для каждой подписки,
// повторяющееся с ее периодом, и напоминание за PaymentReminderDays дней.
// Дни списаний берутся в локации stamp.
func Build(user *models.User, subs []*models.Subscription, frontendURL string, stamp time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	cal.Props.SetText("X-WR-CALNAME", calendarName)
	cal.Props.SetText("X-WR-TIMEZONE", stamp.Location().String())

	lead := user.ReminderLeadDays()
	for _, sub := range subs {
		if sub == nil {
			continue
		}
		cal.Children = append(cal.Children, buildEvent(sub, lead, frontendURL, stamp).Component)
	}
	return cal
}

func buildEvent(sub *models.Subscription, lead int, frontendURL string, stamp time.Time) *ical.Event {
	amount := translations.FormatAmount(sub.MyCost(), sub.Currency)
	start := dates.StartOfDay(sub.NextBillingDate.In(stamp.Location()))

	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, sub.ID.String()+"@subly")
	event.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	event.Props.SetDate(ical.PropDateTimeStart, start)
	event.Props.SetDate(ical.PropDateTimeEnd, start.AddDate(0, 0, 1))
	event.Props.SetText(ical.PropSummary, sub.Name+" - "+amount)
	event.Props.SetText(ical.PropDescription, eventDescription(sub, amount))
	event.Props.SetText(ical.PropLocation, "Online")
	if frontendURL != "" {
		event.Props.Set(rawProp(ical.PropURL, frontendURL))
	}
	if rule, ok := recurrenceRule(sub.BillingCycle); ok {
		event.Props.Set(rawProp(ical.PropRecurrenceRule, rule))
	}

	alarm := ical.NewComponent(ical.CompAlarm)
	alarm.Props.SetText(ical.PropAction, "DISPLAY")
	alarm.Props.Set(rawProp(ical.PropTrigger, fmt.Sprintf("-P%dD", lead)))
	alarm.Props.SetText(ical.PropDescription, sub.Name+" - "+amount)
	event.Children = append(event.Children, alarm)

	return event
}

func eventDescription(sub *models.Subscription, amount string) string {
	category := sub.Category
	if category == "" {
		category = "Other"
	}
	lines := []string{
		"Category: " + category,
		"Amount: " + amount,
		"Billing cycle: " + string(sub.BillingCycle),
	}
	if sub.Notes != "" {
		lines = append(lines, "Notes: "+sub.Notes)
	}
	return strings.Join(lines, "\n")
}

func recurrenceRule(cycle models.BillingCycle) (string, bool) {
	switch cycle {
	case models.BillingMonthly:
		return "FREQ=MONTHLY;INTERVAL=1", true
	case models.BillingAnnual:
		return "FREQ=YEARLY;INTERVAL=1", true
	default:
		return "", false
	}
}

// rawProp свойство со значением без экранирования и без VALUE=TEXT.
func rawProp(name, value string) *ical.Prop {
	prop := ical.NewProp(name)
	prop.Value = value
	return prop
}

// Encode сериализует календарь.
func Encode(cal *ical.Calendar) ([]byte, error) {
	const op = "services.calendar.Encode"
	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return buf.Bytes(), nil
}
