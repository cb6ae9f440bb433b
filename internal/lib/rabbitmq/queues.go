package rabbitmq

// Exchange и ключи маршрутизации уведомлений.
const (
	ExchangeNotifications   = "notifications"
	RoutingKeyTrialReminder = "trial_reminder"
	QueueTrialReminder      = "notifications.trial_reminder"
)

// Сообщения, отклоненные без возврата в очередь, уходят в notifications.dead.
const (
	ExchangeDeadLetter = "notifications.dlx"
	QueueDeadLetter    = "notifications.dead"
)

type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: QueueTrialReminder, RoutingKey: RoutingKeyTrialReminder},
	}
}
