package models

// Candidate подписка вместе с владельцем, которую планировщик рассматривает
// как кандидата на напоминание.
type Candidate struct {
	Subscription Subscription
	Owner        User
}
