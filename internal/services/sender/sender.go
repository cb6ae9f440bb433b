// Package services отправляет письма-напоминания об окончании пробного периода.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/magabrotheeeer/subly/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/subly/internal/lib/sl"
	"github.com/magabrotheeeer/subly/internal/lib/smtp"
	"github.com/magabrotheeeer/subly/internal/lib/translations"
	"github.com/magabrotheeeer/subly/internal/models"
)

// ErrNoEmail у владельца подписки не указан адрес.
var ErrNoEmail = errors.New("owner has no email")

// Цвет рамки письма: последний день пробного периода выделяется красным.
const (
	urgentColor  = "#ff4444"
	warningColor = "#ff9900"
)

var trialReminderTemplate = template.Must(template.New("trial_reminder").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>{{.Title}} - Subly</title></head>
<body style="font-family:'Courier New',Courier,monospace;background:#0f1419;padding:40px 20px;color:#a8b3c1">
<div style="max-width:600px;margin:0 auto;background:#1a1f26;border:2px solid {{.Color}};border-radius:8px">
<div style="padding:30px;text-align:center;border-bottom:2px solid {{.Color}}">
<div style="font-size:48px;font-weight:bold;color:#00ff41;letter-spacing:8px">SUBLY</div>
</div>
<div style="padding:40px 30px">
<p style="font-size:18px;color:#00ff41">Hi {{.Username}},</p>
<h2 style="color:{{.Color}}">{{.Title}}</h2>
<p style="line-height:1.8">{{.Body}}.</p>
<table style="width:100%;border:2px solid {{.Color}};border-radius:8px;padding:20px;margin:30px 0">
<tr><td>Subscription</td><td style="text-align:right;color:#00ff41">{{.Name}}</td></tr>
{{if .TrialEnd}}<tr><td>Trial end date</td><td style="text-align:right;color:{{.Color}}">{{.TrialEnd}}</td></tr>
{{end}}<tr><td>Price after trial</td><td style="text-align:right;color:#00ff41">{{.Price}}</td></tr>
</table>
{{if .URL}}<p style="text-align:center"><a href="{{.URL}}" style="color:#0f1419;background:#00ff41;padding:14px 28px;border-radius:4px;text-decoration:none">Manage subscriptions</a></p>
{{end}}</div>
</div>
</body>
</html>
`))

type trialReminderView struct {
	Username string
	Title    string
	Body     string
	Name     string
	TrialEnd string
	Price    string
	URL      string
	Color    string
}

type SenderService struct {
	transport   smtp.TransportInterface
	frontendURL string
	log         *slog.Logger
}

// NewSenderService создает новый экземпляр SenderService.
func NewSenderService(transport smtp.TransportInterface, frontendURL string, log *slog.Logger) *SenderService {
	return &SenderService{
		transport:   transport,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		log:         log,
	}
}

// TrialReminderSubject тема письма о скором окончании пробного периода.
func TrialReminderSubject(name string, daysLeft int) string {
	if daysLeft == 1 {
		return "Trial ending tomorrow - " + name
	}
	return fmt.Sprintf("Trial ending in %d days - %s", daysLeft, name)
}

func (s *SenderService) trialReminderView(c *models.Candidate, daysLeft int) trialReminderView {
	text := translations.TrialEndingSoon(c.Owner.Language, c.Subscription.Name, daysLeft)
	currency := c.Subscription.Currency
	if currency == "" {
		currency = c.Owner.Currency
	}
	view := trialReminderView{
		Username: c.Owner.Username,
		Title:    text.Title,
		Body:     text.Body,
		Name:     c.Subscription.Name,
		Price:    translations.FormatAmount(c.Subscription.MyCost(), currency),
		URL:      s.frontendURL,
		Color:    warningColor,
	}
	if c.Subscription.TrialEndDate != nil {
		view.TrialEnd = c.Subscription.TrialEndDate.Format("2006-01-02")
	}
	if daysLeft <= 1 {
		view.Color = urgentColor
	}
	return view
}

// TrialReminderBody текст письма на языке пользователя.
func (s *SenderService) TrialReminderBody(c *models.Candidate, daysLeft int) string {
	view := s.trialReminderView(c, daysLeft)

	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", view.Username)
	b.WriteString(view.Title + "\n")
	b.WriteString(view.Body + ".\n\n")
	if view.TrialEnd != "" {
		fmt.Fprintf(&b, "Trial end date: %s\n", view.TrialEnd)
	}
	fmt.Fprintf(&b, "Price after trial: %s\n", view.Price)
	if view.URL != "" {
		fmt.Fprintf(&b, "\nManage your subscriptions: %s\n", view.URL)
	}
	return b.String()
}

// TrialReminderHTML HTML-версия письма. Рамка красная в последний день
// пробного периода и оранжевая в остальные.
func (s *SenderService) TrialReminderHTML(c *models.Candidate, daysLeft int) (string, error) {
	const op = "services.sender.TrialReminderHTML"
	var b strings.Builder
	if err := trialReminderTemplate.Execute(&b, s.trialReminderView(c, daysLeft)); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return b.String(), nil
}

// SendTrialReminder отправляет владельцу подписки письмо об окончании пробного периода.
func (s *SenderService) SendTrialReminder(ctx context.Context, c *models.Candidate, daysLeft int) error {
	const op = "services.sender.SendTrialReminder"
	if c.Owner.Email == "" {
		return fmt.Errorf("%s: %w", op, ErrNoEmail)
	}
	html, err := s.TrialReminderHTML(c, daysLeft)
	if err != nil {
		return err
	}
	msg, err := buildMessage(s.transport.Sender(), []string{c.Owner.Email},
		TrialReminderSubject(c.Subscription.Name, daysLeft), s.TrialReminderBody(c, daysLeft), html)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.sendEmail(ctx, []string{c.Owner.Email}, msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// HandleTrialReminderMessage обрабатывает сообщение из очереди
// notifications.trial_reminder. Битое сообщение, пустой адрес и отказ
// почтового сервера с кодом 5xx возвращаются как rabbitmq.ErrPermanent.
func (s *SenderService) HandleTrialReminderMessage(ctx context.Context, body []byte) error {
	var message models.TrialReminderMessage
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Err(err))
		return rabbitmq.Permanent(fmt.Errorf("error unmarshalling message: %w", err))
	}
	err := s.SendTrialReminder(ctx, message.Candidate(), message.DaysLeft)
	if isPermanent(err) {
		return rabbitmq.Permanent(err)
	}
	return err
}

// isPermanent сообщает, что повторная отправка не поможет.
func isPermanent(err error) bool {
	if errors.Is(err, ErrNoEmail) {
		return true
	}
	var protoErr *textproto.Error
	return errors.As(err, &protoErr) && protoErr.Code >= 500
}

// buildMessage собирает письмо multipart/alternative с текстовой и HTML частью.
func buildMessage(from string, to []string, subject, text, html string) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, part := range []struct{ contentType, content string }{
		{"text/plain; charset=\"UTF-8\"", text},
		{"text/html; charset=\"UTF-8\"", html},
	} {
		w, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {part.contentType}})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write([]byte(part.content)); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var msg bytes.Buffer
	msg.WriteString(strings.Join([]string{
		"From: Subly <" + from + ">",
		"To: " + strings.Join(to, ", "),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: multipart/alternative; boundary=\"" + mw.Boundary() + "\"",
		"",
		"",
	}, "\r\n"))
	msg.Write(body.Bytes())
	return msg.Bytes(), nil
}

func (s *SenderService) sendEmail(ctx context.Context, to []string, msg []byte) error {
	from := s.transport.Sender()

	client, err := s.transport.Connect(ctx)
	if err != nil {
		s.log.Error("failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer client.Close()

	if err := client.Mail(from); err != nil {
		s.log.Error("failed to set MAIL FROM", slog.String("from", from), sl.Err(err))
		return err
	}

	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("failed to set RCPT TO", slog.String("recipient", addr), sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("failed to get Data writer", sl.Err(err))
		return err
	}

	if _, err = wc.Write(msg); err != nil {
		s.log.Error("failed to write email body", sl.Err(err))
		return err
	}

	if err = wc.Close(); err != nil {
		s.log.Error("failed to close Data writer", sl.Err(err))
		return err
	}

	if err = client.Quit(); err != nil {
		s.log.Error("failed to quit SMTP client", sl.Err(err))
		return err
	}

	s.log.Info("email sent successfully", slog.Any("to", to))
	return nil
}
