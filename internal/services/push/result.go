package services

// Result итог отправки одного напоминания на все устройства пользователя.
type Result struct {
	SuccessCount int
	FailureCount int
}

// Delivered сообщает, принял ли уведомление хотя бы один push-сервис.
func (r Result) Delivered() bool {
	return r.SuccessCount > 0
}

// Attempted сообщает, была ли попытка отправки хотя бы на одно устройство.
// false, если push выключен или у пользователя нет активных устройств.
func (r Result) Attempted() bool {
	return r.SuccessCount+r.FailureCount > 0
}
