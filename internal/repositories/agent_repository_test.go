package repositories

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"refpay/internal/models"
	"refpay/internal/storage"
)

func newTestStore() *storage.TieredStore {
	return storage.NewTieredStore(storage.NewMemoryTier("primary", true))
}

func TestAgentRepository_Create(t *testing.T) {
	ctx := context.Background()
	repo := NewAgentRepository(newTestStore())

	first := &models.Agent{FullName: "Jane Mwangi", ReferralCode: "AGAA111", CreatedAt: time.Now()}
	require.NoError(t, repo.Create(ctx, first))
	assert.Equal(t, uint(1), first.ID)

	second := &models.Agent{FullName: "Peter Otieno", ReferralCode: "AGBB222", CreatedAt: time.Now()}
	require.NoError(t, repo.Create(ctx, second))
	assert.Equal(t, uint(2), second.ID)

	all, err := repo.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestAgentRepository_CreateConcurrent(t *testing.T) {
	ctx := context.Background()
	repo := NewAgentRepository(newTestStore())

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.Create(ctx, &models.Agent{FullName: "Agent", CreatedAt: time.Now()})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	all, err := repo.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, n)

	// Ids are unique.
	seen := make(map[uint]bool, n)
	for _, a := range all {
		assert.False(t, seen[a.ID])
		seen[a.ID] = true
	}
}

func TestAgentRepository_Lookups(t *testing.T) {
	ctx := context.Background()
	repo := NewAgentRepository(newTestStore())

	agent := &models.Agent{FullName: "Jane Mwangi", ReferralCode: "AGAA111"}
	require.NoError(t, repo.Create(ctx, agent))

	byID, err := repo.GetByID(ctx, agent.ID)
	require.NoError(t, err)
	assert.Equal(t, "AGAA111", byID.ReferralCode)

	byCode, err := repo.GetByReferralCode(ctx, "AGAA111")
	require.NoError(t, err)
	assert.Equal(t, agent.ID, byCode.ID)

	_, err = repo.GetByID(ctx, 99)
	assert.ErrorIs(t, err, ErrAgentNotFound)
	_, err = repo.GetByReferralCode(ctx, "AGZZ999")
	assert.ErrorIs(t, err, ErrAgentNotFound)

	exists, err := repo.CodeExists(ctx, "AGAA111")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = repo.CodeExists(ctx, "AGZZ999")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCommissionRepository_PendingBefore(t *testing.T) {
	ctx := context.Background()
	repo := NewCommissionRepository(newTestStore())

	now := time.Now()
	save := func(id string, status models.CommissionStatus, created time.Time) {
		require.NoError(t, repo.Save(ctx, &models.Commission{
			ID:        id,
			OrderID:   "ord_" + id,
			AgentID:   1,
			Status:    status,
			CreatedAt: created,
		}))
	}
	save("aged-pending", models.CommissionPendingClearance, now.AddDate(0, 0, -20))
	save("fresh-pending", models.CommissionPendingClearance, now.AddDate(0, 0, -2))
	save("aged-cleared", models.CommissionCleared, now.AddDate(0, 0, -20))

	eligible, err := repo.PendingBefore(ctx, now.AddDate(0, 0, -14))
	require.NoError(t, err)
	require.Len(t, eligible, 1)
	assert.Equal(t, "aged-pending", eligible[0].ID)
}

func TestSettingsRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewSettingsRepository(newTestStore())

	_, err := repo.Get(ctx, models.SettingCommissionRate)
	assert.ErrorIs(t, err, ErrSettingNotFound)

	require.NoError(t, repo.Set(ctx, models.SettingCommissionRate, "0.12"))
	val, err := repo.Get(ctx, models.SettingCommissionRate)
	require.NoError(t, err)
	assert.Equal(t, "0.12", val)

	// Seed never overwrites existing values.
	require.NoError(t, repo.Seed(ctx, map[string]string{
		models.SettingCommissionRate: "0.10",
	}))
	val, err = repo.Get(ctx, models.SettingCommissionRate)
	require.NoError(t, err)
	assert.Equal(t, "0.12", val)
}
