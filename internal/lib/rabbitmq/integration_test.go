package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRabbitMQ(ctx context.Context, t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test")
	}
	if url := os.Getenv("TEST_RABBITMQ_URL"); url != "" {
		return url
	}

	req := testcontainers.ContainerRequest{
		Image:        "rabbitmq:3-management",
		ExposedPorts: []string{"5672/tcp"},
		Env: map[string]string{
			"RABBITMQ_DEFAULT_USER": "guest",
			"RABBITMQ_DEFAULT_PASS": "guest",
		},
		WaitingFor: wait.ForLog("Server startup complete").
			WithStartupTimeout(2 * time.Minute),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate rabbitmq container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5672/tcp")
	require.NoError(t, err)
	return fmt.Sprintf("amqp://guest:guest@%s:%s/", host, port.Port())
}

func TestTrialReminderQueue_RoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()
	uri := setupRabbitMQ(ctx, t)

	conn, err := Connect(ctx, uri, 5, time.Second)
	require.NoError(t, err)
	defer conn.Close()

	ch, err := SetupChannel(conn, GetNotificationQueues())
	require.NoError(t, err)
	defer ch.Close()

	received := make(chan string, 1)
	consumeCtx, stop := context.WithCancel(ctx)
	done, err := ConsumerMessage(consumeCtx, ch, QueueTrialReminder, func(_ context.Context, body []byte) error {
		received <- string(body)
		return nil
	}, newNoopLogger())
	require.NoError(t, err)

	require.NoError(t, PublishMessage(ch, ExchangeNotifications, RoutingKeyTrialReminder, map[string]int{"days_left": 3}))

	select {
	case body := <-received:
		assert.JSONEq(t, `{"days_left":3}`, body)
	case <-time.After(30 * time.Second):
		t.Fatal("message was not delivered")
	}

	stop()
	<-done
}

func TestTrialReminderQueue_DeadLetter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()
	uri := setupRabbitMQ(ctx, t)

	conn, err := Connect(ctx, uri, 5, time.Second)
	require.NoError(t, err)
	defer conn.Close()

	ch, err := SetupChannel(conn, GetNotificationQueues())
	require.NoError(t, err)
	defer ch.Close()

	consumeCtx, stop := context.WithCancel(ctx)
	done, err := ConsumerMessage(consumeCtx, ch, QueueTrialReminder, func(context.Context, []byte) error {
		return Permanent(errors.New("malformed"))
	}, newNoopLogger())
	require.NoError(t, err)

	require.NoError(t, PublishMessage(ch, ExchangeNotifications, RoutingKeyTrialReminder, map[string]int{"days_left": 3}))

	assert.Eventually(t, func() bool {
		q, err := ch.QueueInspect(QueueDeadLetter)
		return err == nil && q.Messages == 1
	}, 30*time.Second, 200*time.Millisecond)

	stop()
	<-done
}
