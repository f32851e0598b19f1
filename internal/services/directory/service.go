// Package directory manages agent records: registration with unique referral
// codes, activation toggles, commission rate overrides, and effective rate
// resolution.
package directory

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"refpay/internal/models"
	"refpay/internal/repositories"
)

const (
	codePrefix       = "AG"
	codeRandomLength = 5
	codeAlphabet     = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	maxCodeAttempts  = 5
)

// Service defines the agent directory operations.
type Service interface {
	CreateAgent(ctx context.Context, fullName, email, phone string) (*models.Agent, error)
	GetAgent(ctx context.Context, id uint) (*models.Agent, error)
	FindByReferralCode(ctx context.Context, code string) (*models.Agent, error)
	SetActive(ctx context.Context, id uint, active bool) error
	SetCommissionOverride(ctx context.Context, id uint, rate *float64) error
	EffectiveRate(ctx context.Context, agent *models.Agent) float64
	SetGlobalRate(ctx context.Context, rate float64) error
}

type service struct {
	agents   *repositories.AgentRepository
	settings *repositories.SettingsRepository
	cache    repositories.CacheRepository
}

// NewService creates a new agent directory service.
func NewService(agents *repositories.AgentRepository, settings *repositories.SettingsRepository, cache repositories.CacheRepository) Service {
	if agents == nil {
		panic("agent repository is required")
	}
	if settings == nil {
		panic("settings repository is required")
	}
	if cache == nil {
		cache = repositories.NoopCache{}
	}
	return &service{agents: agents, settings: settings, cache: cache}
}

func (s *service) CreateAgent(ctx context.Context, fullName, email, phone string) (*models.Agent, error) {
	code, err := s.generateUniqueCode(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	agent := &models.Agent{
		FullName:     fullName,
		Email:        email,
		Phone:        phone,
		ReferralCode: code,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.agents.Create(ctx, agent); err != nil {
		return nil, fmt.Errorf("failed to create agent: %w", err)
	}
	return agent, nil
}

// generateUniqueCode retries a bounded number of times before giving up with
// ErrCodeCollision.
func (s *service) generateUniqueCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := randomCode()
		if err != nil {
			return "", fmt.Errorf("failed to generate referral code: %w", err)
		}
		exists, err := s.agents.CodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to check referral code: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", ErrCodeCollision
}

func randomCode() (string, error) {
	buf := make([]byte, codeRandomLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
		if err != nil {
			return "", err
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return codePrefix + string(buf), nil
}

func (s *service) GetAgent(ctx context.Context, id uint) (*models.Agent, error) {
	agent, err := s.agents.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrAgentNotFound) {
			return nil, ErrAgentNotFound
		}
		return nil, err
	}
	return agent, nil
}

func (s *service) FindByReferralCode(ctx context.Context, code string) (*models.Agent, error) {
	// Try cache first
	if agent, err := s.cache.GetAgent(ctx, code); err == nil {
		return agent, nil
	}

	agent, err := s.agents.GetByReferralCode(ctx, code)
	if err != nil {
		if errors.Is(err, repositories.ErrAgentNotFound) {
			return nil, ErrAgentNotFound
		}
		return nil, err
	}

	// Cache failures degrade lookups, not correctness.
	_ = s.cache.SetAgent(ctx, agent)
	return agent, nil
}

func (s *service) SetActive(ctx context.Context, id uint, active bool) error {
	agent, err := s.GetAgent(ctx, id)
	if err != nil {
		return err
	}

	agent.IsActive = active
	now := time.Now()
	agent.UpdatedAt = now
	if active {
		agent.DeactivatedAt = nil
	} else {
		agent.DeactivatedAt = &now
	}

	if err := s.agents.Save(ctx, agent); err != nil {
		return fmt.Errorf("failed to update agent: %w", err)
	}
	return s.cache.InvalidateAgent(ctx, agent.ReferralCode)
}

func (s *service) SetCommissionOverride(ctx context.Context, id uint, rate *float64) error {
	if rate != nil && (*rate < 0 || *rate > 1) {
		return ErrInvalidRate
	}

	agent, err := s.GetAgent(ctx, id)
	if err != nil {
		return err
	}

	agent.CommissionRateOverride = rate
	agent.UpdatedAt = time.Now()

	if err := s.agents.Save(ctx, agent); err != nil {
		return fmt.Errorf("failed to update agent: %w", err)
	}
	return s.cache.InvalidateAgent(ctx, agent.ReferralCode)
}

// EffectiveRate resolves the rate applied to an agent's sales: the agent's
// override when set, else the global commission_rate setting, else the
// hard-coded bootstrap default.
func (s *service) EffectiveRate(ctx context.Context, agent *models.Agent) float64 {
	if agent != nil && agent.CommissionRateOverride != nil {
		return *agent.CommissionRateOverride
	}

	cacheKey := repositories.SettingCachePrefix + models.SettingCommissionRate
	if val, err := s.cache.Get(ctx, cacheKey); err == nil {
		if rate, err := strconv.ParseFloat(val, 64); err == nil && rate >= 0 && rate <= 1 {
			return rate
		}
	}

	val, err := s.settings.Get(ctx, models.SettingCommissionRate)
	if err != nil {
		return models.DefaultCommissionRate
	}
	rate, err := strconv.ParseFloat(val, 64)
	if err != nil || rate < 0 || rate > 1 {
		return models.DefaultCommissionRate
	}

	s.cache.Set(ctx, cacheKey, val, repositories.CacheDuration)
	return rate
}

func (s *service) SetGlobalRate(ctx context.Context, rate float64) error {
	if rate < 0 || rate > 1 {
		return ErrInvalidRate
	}
	val := strconv.FormatFloat(rate, 'f', -1, 64)
	if err := s.settings.Set(ctx, models.SettingCommissionRate, val); err != nil {
		return fmt.Errorf("failed to update commission rate: %w", err)
	}
	return s.cache.Delete(ctx, repositories.SettingCachePrefix+models.SettingCommissionRate)
}
