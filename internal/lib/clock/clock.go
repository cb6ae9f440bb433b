// Package clock абстрагирует источник текущего времени, чтобы планировщики
// можно было тестировать с фиксированным "сегодня".
package clock

import "time"

// Clock возвращает текущее время.
type Clock interface {
	Now() time.Time
}

// Real читает системное время в заданной локации.
type Real struct {
	Location *time.Location
}

// New создает Real для локации loc (nil означает UTC).
func New(loc *time.Location) Real {
	if loc == nil {
		loc = time.UTC
	}
	return Real{Location: loc}
}

func (r Real) Now() time.Time {
	if r.Location == nil {
		return time.Now().UTC()
	}
	return time.Now().In(r.Location)
}

// Fixed всегда возвращает одно и то же время.
type Fixed time.Time

func (f Fixed) Now() time.Time {
	return time.Time(f)
}
