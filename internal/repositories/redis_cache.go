package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"refpay/internal/models"
)

// RedisCache is the Redis-backed CacheRepository.
type RedisCache struct {
	client *redis.Client
}

// NewRedisClient builds a Redis client from connection settings.
func NewRedisClient(host, port, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: password,
		DB:       db,
	})
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (r *RedisCache) Get(ctx context.Context, key string) (string, error) {
	return r.client.Get(ctx, key).Result()
}

func (r *RedisCache) Set(ctx context.Context, key, value string, expiration time.Duration) error {
	return r.client.Set(ctx, key, value, expiration).Err()
}

func (r *RedisCache) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *RedisCache) GetAgent(ctx context.Context, code string) (*models.Agent, error) {
	val, err := r.client.Get(ctx, AgentCachePrefix+code).Result()
	if err != nil {
		return nil, err
	}
	var agent models.Agent
	if err := json.Unmarshal([]byte(val), &agent); err != nil {
		return nil, err
	}
	return &agent, nil
}

func (r *RedisCache) SetAgent(ctx context.Context, agent *models.Agent) error {
	data, err := json.Marshal(agent)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, AgentCachePrefix+agent.ReferralCode, data, CacheDuration).Err()
}

func (r *RedisCache) InvalidateAgent(ctx context.Context, code string) error {
	return r.client.Del(ctx, AgentCachePrefix+code).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}

var _ CacheRepository = (*RedisCache)(nil)
var _ CacheRepository = NoopCache{}
