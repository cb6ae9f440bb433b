// Package webpush отправляет зашифрованные web-push сообщения с VAPID-подписью.
package webpush

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	webpushgo "github.com/SherClockHolmes/webpush-go"

	"github.com/magabrotheeeer/subly/internal/config"
	"github.com/magabrotheeeer/subly/internal/models"
)

// Client отправляет уведомления через push-сервисы браузеров.
type Client struct {
	subscriber string
	publicKey  string
	privateKey string
	ttl        int
	httpClient *http.Client
}

// New создает клиента по настройкам VAPID.
func New(cfg config.Push) *Client {
	timeout := cfg.PushTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		subscriber: cfg.VAPIDSubject,
		publicKey:  cfg.VAPIDPublicKey,
		privateKey: cfg.VAPIDPrivateKey,
		ttl:        cfg.TTL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Send шифрует payload для устройства и отправляет его в push-сервис.
// Возвращает HTTP-статус ответа push-сервиса; ошибка означает, что ответ
// не был получен.
func (c *Client) Send(ctx context.Context, sub *models.PushSubscription, payload []byte) (int, error) {
	const op = "webpush.Send"
	resp, err := webpushgo.SendNotificationWithContext(ctx, payload, &webpushgo.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpushgo.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}, &webpushgo.Options{
		HTTPClient:      c.httpClient,
		Subscriber:      c.subscriber,
		VAPIDPublicKey:  c.publicKey,
		VAPIDPrivateKey: c.privateKey,
		TTL:             c.ttl,
	})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}
