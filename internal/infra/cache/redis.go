package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	boardIDKeyPrefix = "board:canonical:"
	DefaultBoardTTL  = 24 * time.Hour
)

// BoardIDCache guarda alias (shortLink ou id) -> id canônico do board.
type BoardIDCache struct {
	Redis *redis.Client
	TTL   time.Duration
}

// NewClient abre a conexão a partir de uma URL redis:// e testa com Ping.
func NewClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("erro ao ler REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("erro ao conectar no redis: %w", err)
	}
	return client, nil
}

func NewBoardIDCache(client *redis.Client, ttl time.Duration) *BoardIDCache {
	if ttl <= 0 {
		ttl = DefaultBoardTTL
	}
	return &BoardIDCache{Redis: client, TTL: ttl}
}

func (c *BoardIDCache) GetCanonicalBoardID(ctx context.Context, alias string) (string, bool, error) {
	val, err := c.Redis.Get(ctx, boardIDKeyPrefix+alias).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (c *BoardIDCache) SetCanonicalBoardID(ctx context.Context, alias, longID string) error {
	return c.Redis.Set(ctx, boardIDKeyPrefix+alias, longID, c.TTL).Err()
}
