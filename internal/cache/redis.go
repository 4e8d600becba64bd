package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"ChipTrack/internal/model"

	"github.com/redis/go-redis/v9"
)

// Ключи Redis: значение статистики и счётчик поколений.
const (
	StatsKey      = "chiptrack:stats:status"
	GenerationKey = "chiptrack:stats:gen"
)

// setIfGeneration пишет значение, только если поколение не сдвинулось.
// GET и SET выполняются атомарно внутри скрипта.
var setIfGeneration = redis.NewScript(`
local gen = redis.call('GET', KEYS[2]) or '0'
if gen ~= ARGV[2] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
return 1
`)

// RedisStats - StatsCache поверх Redis, общий для нескольких экземпляров сервиса.
type RedisStats struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient разбирает REDIS_URL и проверяет соединение.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// NewRedisStats создаёт кэш с заданным TTL (DefaultTTL при ttl <= 0).
func NewRedisStats(client *redis.Client, ttl time.Duration) *RedisStats {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStats{client: client, ttl: ttl}
}

func (c *RedisStats) Get(ctx context.Context) (model.StatusStats, bool, error) {
	raw, err := c.client.Get(ctx, StatsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.StatusStats{}, false, nil
	}
	if err != nil {
		return model.StatusStats{}, false, err
	}
	var stats model.StatusStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		// битое значение считаем промахом
		return model.StatusStats{}, false, nil
	}
	return stats, true, nil
}

func (c *RedisStats) Generation(ctx context.Context) (uint64, error) {
	gen, err := c.client.Get(ctx, GenerationKey).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *RedisStats) Set(ctx context.Context, stats model.StatusStats, gen uint64) error {
	raw, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	keys := []string{StatsKey, GenerationKey}
	return setIfGeneration.Run(ctx, c.client, keys,
		string(raw), strconv.FormatUint(gen, 10), c.ttl.Milliseconds()).Err()
}

func (c *RedisStats) Invalidate(ctx context.Context) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, GenerationKey)
		pipe.Del(ctx, StatsKey)
		return nil
	})
	return err
}
