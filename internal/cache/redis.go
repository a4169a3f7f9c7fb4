// Package cache хранит готовые снимки дашборда в Redis.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss возвращается, если ключа нет в кэше.
var ErrCacheMiss = errors.New("cache miss")

// Cache хранит снимки дашборда в Redis.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New создаёт кэш с указанным временем жизни записей.
func New(addr string, ttl time.Duration) *Cache {
	return NewWithClient(redis.NewClient(&redis.Options{Addr: addr}), ttl)
}

// NewWithClient создаёт кэш поверх готового клиента.
func NewWithClient(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Cache{client: client, ttl: ttl}
}

// Ping проверяет доступность Redis.
func (c *Cache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

// DashboardKey строит ключ снимка: кэмп, момент, округлённый до интервала обновления,
// версия ленты продаж и версия каталога (товары, кэмпы, точки продаж).
func DashboardKey(campID string, now time.Time, interval time.Duration, salesVersion, catalogVersion int64) string {
	if campID == "" {
		campID = "none"
	}
	if interval > 0 {
		now = now.Truncate(interval)
	}
	return fmt.Sprintf("dashboard:%s:%d:%d:%d", campID, now.Unix(), salesVersion, catalogVersion)
}

// Get возвращает сохранённое значение.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, nil
}

// Set сохраняет значение на время жизни кэша.
func (c *Cache) Set(ctx context.Context, key string, value []byte) error {
	if err := c.client.Set(ctx, key, value, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Close закрывает соединение с Redis.
func (c *Cache) Close() error {
	return c.client.Close()
}
