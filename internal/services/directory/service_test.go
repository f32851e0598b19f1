package directory

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"refpay/internal/models"
	"refpay/internal/repositories"
	"refpay/internal/storage"
)

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockCache) Set(ctx context.Context, key, value string, expiration time.Duration) error {
	args := m.Called(ctx, key, value, expiration)
	return args.Error(0)
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockCache) GetAgent(ctx context.Context, code string) (*models.Agent, error) {
	args := m.Called(ctx, code)
	if agent := args.Get(0); agent != nil {
		return agent.(*models.Agent), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCache) SetAgent(ctx context.Context, agent *models.Agent) error {
	args := m.Called(ctx, agent)
	return args.Error(0)
}

func (m *MockCache) InvalidateAgent(ctx context.Context, code string) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

func (m *MockCache) Close() error {
	return nil
}

func setupService(t *testing.T) (Service, *repositories.AgentRepository, *repositories.SettingsRepository) {
	t.Helper()
	store := storage.NewTieredStore(storage.NewMemoryTier("primary", true))
	agents := repositories.NewAgentRepository(store)
	settings := repositories.NewSettingsRepository(store)
	return NewService(agents, settings, repositories.NoopCache{}), agents, settings
}

func TestCreateAgent(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupService(t)

	agent, err := svc.CreateAgent(ctx, "Jane Mwangi", "jane@example.com", "+254700000001")
	require.NoError(t, err)
	require.NotNil(t, agent)

	assert.NotZero(t, agent.ID)
	assert.True(t, agent.IsActive)
	assert.True(t, strings.HasPrefix(agent.ReferralCode, "AG"))
	assert.Len(t, agent.ReferralCode, 7)
	assert.Nil(t, agent.CommissionRateOverride)

	// Codes stay unique across agents.
	seen := map[string]bool{agent.ReferralCode: true}
	for i := 0; i < 20; i++ {
		a, err := svc.CreateAgent(ctx, "Agent", "a@example.com", "")
		require.NoError(t, err)
		assert.False(t, seen[a.ReferralCode])
		seen[a.ReferralCode] = true
	}
}

func TestFindByReferralCode(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupService(t)

	agent, err := svc.CreateAgent(ctx, "Jane Mwangi", "jane@example.com", "")
	require.NoError(t, err)

	found, err := svc.FindByReferralCode(ctx, agent.ReferralCode)
	require.NoError(t, err)
	assert.Equal(t, agent.ID, found.ID)

	_, err = svc.FindByReferralCode(ctx, "AGXXXXX")
	assert.ErrorIs(t, err, ErrAgentNotFound)
}

func TestFindByReferralCode_CacheHit(t *testing.T) {
	ctx := context.Background()
	store := storage.NewTieredStore(storage.NewMemoryTier("primary", true))
	agents := repositories.NewAgentRepository(store)
	settings := repositories.NewSettingsRepository(store)

	cached := &models.Agent{ID: 42, ReferralCode: "AGCACHE", IsActive: true}
	cache := new(MockCache)
	cache.On("GetAgent", mock.Anything, "AGCACHE").Return(cached, nil)

	svc := NewService(agents, settings, cache)

	// The agent is not in the store at all; the cache alone serves it.
	found, err := svc.FindByReferralCode(ctx, "AGCACHE")
	require.NoError(t, err)
	assert.Equal(t, uint(42), found.ID)
	cache.AssertExpectations(t)
}

func TestSetActive(t *testing.T) {
	ctx := context.Background()
	svc, agents, _ := setupService(t)

	agent, err := svc.CreateAgent(ctx, "Jane Mwangi", "jane@example.com", "")
	require.NoError(t, err)

	require.NoError(t, svc.SetActive(ctx, agent.ID, false))
	got, err := agents.GetByID(ctx, agent.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.NotNil(t, got.DeactivatedAt)

	require.NoError(t, svc.SetActive(ctx, agent.ID, true))
	got, err = agents.GetByID(ctx, agent.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
	assert.Nil(t, got.DeactivatedAt)

	assert.ErrorIs(t, svc.SetActive(ctx, 9999, false), ErrAgentNotFound)
}

func TestSetCommissionOverride(t *testing.T) {
	ctx := context.Background()
	svc, agents, _ := setupService(t)

	agent, err := svc.CreateAgent(ctx, "Jane Mwangi", "jane@example.com", "")
	require.NoError(t, err)

	rate := 0.25
	require.NoError(t, svc.SetCommissionOverride(ctx, agent.ID, &rate))
	got, err := agents.GetByID(ctx, agent.ID)
	require.NoError(t, err)
	require.NotNil(t, got.CommissionRateOverride)
	assert.Equal(t, 0.25, *got.CommissionRateOverride)

	// Clearing the override falls back to the global rate.
	require.NoError(t, svc.SetCommissionOverride(ctx, agent.ID, nil))
	got, err = agents.GetByID(ctx, agent.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CommissionRateOverride)

	bad := 1.5
	assert.ErrorIs(t, svc.SetCommissionOverride(ctx, agent.ID, &bad), ErrInvalidRate)
	negative := -0.1
	assert.ErrorIs(t, svc.SetCommissionOverride(ctx, agent.ID, &negative), ErrInvalidRate)
}

func TestEffectiveRate(t *testing.T) {
	ctx := context.Background()
	override := 0.30

	tests := []struct {
		name       string
		globalRate string
		agent      *models.Agent
		expected   float64
	}{
		{
			name:     "default when nothing configured",
			agent:    &models.Agent{ID: 1},
			expected: models.DefaultCommissionRate,
		},
		{
			name:       "global setting wins over default",
			globalRate: "0.15",
			agent:      &models.Agent{ID: 1},
			expected:   0.15,
		},
		{
			name:       "override wins over global",
			globalRate: "0.15",
			agent:      &models.Agent{ID: 1, CommissionRateOverride: &override},
			expected:   0.30,
		},
		{
			name:       "garbage setting falls back to default",
			globalRate: "not-a-number",
			agent:      &models.Agent{ID: 1},
			expected:   models.DefaultCommissionRate,
		},
		{
			name:       "out of range setting falls back to default",
			globalRate: "2.5",
			agent:      &models.Agent{ID: 1},
			expected:   models.DefaultCommissionRate,
		},
		{
			name:     "nil agent uses global resolution",
			agent:    nil,
			expected: models.DefaultCommissionRate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, settings := setupService(t)
			if tt.globalRate != "" {
				require.NoError(t, settings.Set(ctx, models.SettingCommissionRate, tt.globalRate))
			}
			assert.InDelta(t, tt.expected, svc.EffectiveRate(ctx, tt.agent), 1e-9)
		})
	}
}

func TestSetGlobalRate(t *testing.T) {
	ctx := context.Background()
	svc, _, settings := setupService(t)

	require.NoError(t, svc.SetGlobalRate(ctx, 0.2))
	val, err := settings.Get(ctx, models.SettingCommissionRate)
	require.NoError(t, err)
	assert.Equal(t, "0.2", val)

	assert.ErrorIs(t, svc.SetGlobalRate(ctx, -0.01), ErrInvalidRate)
	assert.ErrorIs(t, svc.SetGlobalRate(ctx, 1.01), ErrInvalidRate)
}
