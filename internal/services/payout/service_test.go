package payout

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"refpay/internal/locks"
	"refpay/internal/models"
	"refpay/internal/repositories"
	"refpay/internal/storage"
)

type fixture struct {
	svc         Service
	commissions *repositories.CommissionRepository
	payouts     *repositories.PayoutRepository
}

func setup(t *testing.T) *fixture {
	t.Helper()
	store := storage.NewTieredStore(storage.NewMemoryTier("primary", true))
	commissions := repositories.NewCommissionRepository(store)
	payouts := repositories.NewPayoutRepository(store)
	svc := NewService(payouts, commissions, locks.NewKeyedMutex())
	return &fixture{svc: svc, commissions: commissions, payouts: payouts}
}

func (f *fixture) addCommission(t *testing.T, agentID uint, amountCents int64, status models.CommissionStatus) {
	t.Helper()
	now := time.Now()
	c := &models.Commission{
		ID:                    uuid.NewString(),
		OrderID:               uuid.NewString(),
		AgentID:               agentID,
		Rate:                  0.10,
		BaseAmountCents:       amountCents * 10,
		CommissionAmountCents: amountCents,
		Status:                status,
		CreatedAt:             now,
	}
	if status == models.CommissionCleared {
		c.ClearedAt = &now
	}
	require.NoError(t, f.commissions.Save(context.Background(), c))
}

func TestAvailableBalance(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	balance, err := f.svc.AvailableBalance(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, balance)

	f.addCommission(t, 1, 1000, models.CommissionCleared)
	f.addCommission(t, 1, 700, models.CommissionPendingClearance)
	f.addCommission(t, 2, 9999, models.CommissionCleared)

	// Only the agent's own cleared commissions count.
	balance, err = f.svc.AvailableBalance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), balance)
}

func TestRequestPayout(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.addCommission(t, 1, 1000, models.CommissionCleared)

	payout, err := f.svc.RequestPayout(ctx, 1, 600, "mpesa:+254700000001")
	require.NoError(t, err)
	assert.Equal(t, models.PayoutRequested, payout.Status)
	assert.Equal(t, int64(600), payout.AmountCents)

	// The requested payout reserves balance immediately.
	balance, err := f.svc.AvailableBalance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(400), balance)

	_, err = f.svc.RequestPayout(ctx, 1, 500, "mpesa:+254700000001")
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	_, err = f.svc.RequestPayout(ctx, 1, 0, "mpesa:+254700000001")
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	_, err = f.svc.RequestPayout(ctx, 1, -100, "mpesa:+254700000001")
	assert.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestRequestPayout_PendingDoesNotCount(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.addCommission(t, 1, 1000, models.CommissionPendingClearance)

	_, err := f.svc.RequestPayout(ctx, 1, 100, "bank:0123")
	assert.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestRequestPayout_RejectedFreesBalance(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.addCommission(t, 1, 1000, models.CommissionCleared)

	payout, err := f.svc.RequestPayout(ctx, 1, 1000, "bank:0123")
	require.NoError(t, err)

	_, err = f.svc.RequestPayout(ctx, 1, 100, "bank:0123")
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	_, err = f.svc.Reject(ctx, payout.ID)
	require.NoError(t, err)

	balance, err := f.svc.AvailableBalance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), balance)
}

func TestRequestPayout_ConcurrentOverdraw(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.addCommission(t, 1, 1000, models.CommissionCleared)

	// Two 600-cent requests against a 1000-cent balance: exactly one wins.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, errs[n] = f.svc.RequestPayout(ctx, 1, 600, "bank:0123")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrInsufficientFunds)
		}
	}
	assert.Equal(t, 1, succeeded)

	balance, err := f.svc.AvailableBalance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(400), balance)
}

func TestPayoutTransitions(t *testing.T) {
	ctx := context.Background()

	t.Run("approve then pay", func(t *testing.T) {
		f := setup(t)
		f.addCommission(t, 1, 1000, models.CommissionCleared)
		payout, err := f.svc.RequestPayout(ctx, 1, 500, "bank:0123")
		require.NoError(t, err)

		approved, err := f.svc.Approve(ctx, payout.ID)
		require.NoError(t, err)
		assert.Equal(t, models.PayoutApproved, approved.Status)
		assert.NotNil(t, approved.ApprovedAt)

		paid, err := f.svc.MarkPaid(ctx, payout.ID)
		require.NoError(t, err)
		assert.Equal(t, models.PayoutPaid, paid.Status)
		assert.NotNil(t, paid.PaidAt)
	})

	t.Run("invalid transitions rejected", func(t *testing.T) {
		f := setup(t)
		f.addCommission(t, 1, 1000, models.CommissionCleared)
		payout, err := f.svc.RequestPayout(ctx, 1, 500, "bank:0123")
		require.NoError(t, err)

		// Cannot pay before approval.
		_, err = f.svc.MarkPaid(ctx, payout.ID)
		assert.ErrorIs(t, err, ErrInvalidTransition)

		_, err = f.svc.Approve(ctx, payout.ID)
		require.NoError(t, err)

		// Approval is not repeatable and an approved payout cannot be rejected.
		_, err = f.svc.Approve(ctx, payout.ID)
		assert.ErrorIs(t, err, ErrInvalidTransition)
		_, err = f.svc.Reject(ctx, payout.ID)
		assert.ErrorIs(t, err, ErrInvalidTransition)

		_, err = f.svc.MarkPaid(ctx, payout.ID)
		require.NoError(t, err)
		_, err = f.svc.MarkPaid(ctx, payout.ID)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("unknown payout", func(t *testing.T) {
		f := setup(t)
		_, err := f.svc.Approve(ctx, uuid.NewString())
		assert.ErrorIs(t, err, ErrPayoutNotFound)
	})
}

func TestAgentPayouts_NewestFirst(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.addCommission(t, 1, 10000, models.CommissionCleared)

	var ids []string
	for i := 0; i < 3; i++ {
		p, err := f.svc.RequestPayout(ctx, 1, 100, "bank:0123")
		require.NoError(t, err)
		p.RequestedAt = time.Now().AddDate(0, 0, -i)
		require.NoError(t, f.payouts.Save(ctx, p))
		ids = append(ids, p.ID)
	}

	list, err := f.svc.AgentPayouts(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, ids[0], list[0].ID)
	assert.Equal(t, ids[2], list[2].ID)
}
