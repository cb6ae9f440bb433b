package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisTTL время жизни множества ключей в redis. Ежедневный сброс
// очищает его раньше, TTL лишь не дает множеству пережить пропущенный сброс.
const DefaultRedisTTL = 24 * time.Hour

// RedisRegistry хранит ключи в одном redis SET, поэтому переживает
// перезапуск процесса.
type RedisRegistry struct {
	client *redis.Client
	setKey string
	ttl    time.Duration
}

// NewRedisRegistry создает реестр с именем name (например "trial").
func NewRedisRegistry(client *redis.Client, name string, ttl time.Duration) *RedisRegistry {
	if ttl <= 0 {
		ttl = DefaultRedisTTL
	}
	return &RedisRegistry{
		client: client,
		setKey: "subly:reminders:" + name,
		ttl:    ttl,
	}
}

func (r *RedisRegistry) HasSent(ctx context.Context, key Key) (bool, error) {
	const op = "reminder.RedisRegistry.HasSent"
	ok, err := r.client.SIsMember(ctx, r.setKey, key.String()).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return ok, nil
}

func (r *RedisRegistry) MarkSent(ctx context.Context, key Key) error {
	const op = "reminder.RedisRegistry.MarkSent"
	pipe := r.client.TxPipeline()
	pipe.SAdd(ctx, r.setKey, key.String())
	pipe.Expire(ctx, r.setKey, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *RedisRegistry) ResetAll(ctx context.Context) error {
	const op = "reminder.RedisRegistry.ResetAll"
	if err := r.client.Del(ctx, r.setKey).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
