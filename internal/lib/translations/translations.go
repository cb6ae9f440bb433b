// Package translations содержит тексты уведомлений о пробном периоде и
// предстоящих платежах на поддерживаемых языках.
package translations

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultLanguage используется, если язык пользователя не поддерживается.
const DefaultLanguage = "en"

// Text заголовок и тело уведомления.
type Text struct {
	Title string
	Body  string
}

type catalog struct {
	trialTitle   string
	trialBody    func(name string, days int) string
	paymentTitle string
	paymentBody  func(name string, days int, amount string) string
}

var catalogs = map[string]catalog{
	"en": {
		trialTitle: "Trial Ending Soon",
		trialBody: func(name string, days int) string {
			return fmt.Sprintf("Your %s trial ends in %d day%s", name, days, plural(days, "s"))
		},
		paymentTitle: "Upcoming Payment",
		paymentBody: func(name string, days int, amount string) string {
			return fmt.Sprintf("%s renews in %d day%s - %s", name, days, plural(days, "s"), amount)
		},
	},
	"fr": {
		trialTitle: "Votre période d'essai arrive à expiration",
		trialBody: func(name string, days int) string {
			return fmt.Sprintf("La période d'essai de %s se termine dans %d jour%s", name, days, plural(days, "s"))
		},
		paymentTitle: "Paiement à venir",
		paymentBody: func(name string, days int, amount string) string {
			return fmt.Sprintf("%s se renouvelle dans %d jour%s - %s", name, days, plural(days, "s"), amount)
		},
	},
}

// TrialEndingSoon возвращает текст напоминания об окончании пробного периода.
func TrialEndingSoon(language, subscriptionName string, daysLeft int) Text {
	c := lookup(language)
	return Text{Title: c.trialTitle, Body: c.trialBody(subscriptionName, daysLeft)}
}

// UpcomingPayment возвращает текст напоминания о предстоящем списании.
func UpcomingPayment(language, subscriptionName string, daysUntil int, amount decimal.Decimal, currency string) Text {
	c := lookup(language)
	return Text{
		Title: c.paymentTitle,
		Body:  c.paymentBody(subscriptionName, daysUntil, FormatAmount(amount, currency)),
	}
}

// FormatAmount форматирует сумму с двумя знаками и символом валюты.
func FormatAmount(amount decimal.Decimal, currency string) string {
	return amount.StringFixed(2) + CurrencySymbol(currency)
}

// CurrencySymbol возвращает символ валюты, по умолчанию евро.
func CurrencySymbol(currency string) string {
	switch currency {
	case "USD":
		return "$"
	default:
		return "€"
	}
}

// Supported сообщает, есть ли переводы для языка.
func Supported(language string) bool {
	_, ok := catalogs[language]
	return ok
}

func lookup(language string) catalog {
	if c, ok := catalogs[language]; ok {
		return c
	}
	return catalogs[DefaultLanguage]
}

func plural(n int, suffix string) string {
	if n > 1 {
		return suffix
	}
	return ""
}
