package repositories

import (
	"context"
	"time"

	"refpay/internal/models"
)

// Cache keys and durations
const (
	AgentCachePrefix   = "agent:code:"
	SettingCachePrefix = "setting:"
	CacheDuration      = 5 * time.Minute
)

// CacheRepository is the cache-aside layer in front of the tiered store.
// Lookups by referral code and settings reads dominate traffic; everything
// else goes straight to the store.
type CacheRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, expiration time.Duration) error
	Delete(ctx context.Context, key string) error

	GetAgent(ctx context.Context, code string) (*models.Agent, error)
	SetAgent(ctx context.Context, agent *models.Agent) error
	InvalidateAgent(ctx context.Context, code string) error

	Close() error
}

// NoopCache satisfies CacheRepository when Redis is not configured.
type NoopCache struct{}

func (NoopCache) Get(context.Context, string) (string, error) { return "", ErrSettingNotFound }
func (NoopCache) Set(context.Context, string, string, time.Duration) error {
	return nil
}
func (NoopCache) Delete(context.Context, string) error { return nil }
func (NoopCache) GetAgent(context.Context, string) (*models.Agent, error) {
	return nil, ErrAgentNotFound
}
func (NoopCache) SetAgent(context.Context, *models.Agent) error  { return nil }
func (NoopCache) InvalidateAgent(context.Context, string) error  { return nil }
func (NoopCache) Close() error                                   { return nil }
