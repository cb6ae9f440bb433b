// Package dates содержит календарную арифметику для дат списаний:
// сдвиг на месяцы и годы и подсчет дней с точностью до суток.
package dates

import (
	"math"
	"time"
)

// AddMonths сдвигает t на n календарных месяцев. Если в целевом месяце нет
// такого дня, берется последний день месяца (31 января + 1 месяц = 29 февраля
// в високосном году). Время суток и локация сохраняются.
func AddMonths(t time.Time, n int) time.Time {
	year, month, day := t.Date()

	total := int(month) - 1 + n
	year += floorDiv(total, 12)
	targetMonth := time.Month(total - floorDiv(total, 12)*12 + 1)

	if last := DaysIn(year, targetMonth); day > last {
		day = last
	}
	return time.Date(year, targetMonth, day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// AddYears сдвигает t на n календарных лет (29 февраля переходит в 28 февраля).
func AddYears(t time.Time, n int) time.Time {
	return AddMonths(t, 12*n)
}

// DaysIn возвращает количество дней в месяце.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// StartOfDay возвращает полночь дня t в локации t.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DaysUntil считает количество календарных дней от today до event.
// Время суток с обеих сторон игнорируется, event переводится в локацию today.
// Результат отрицательный, если событие уже прошло.
// Сутки с переходом на летнее время длятся 23 или 25 часов, поэтому
// разница округляется.
func DaysUntil(today, event time.Time) int {
	from := StartOfDay(today)
	to := StartOfDay(event.In(today.Location()))
	return int(math.Round(to.Sub(from).Hours() / 24))
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
