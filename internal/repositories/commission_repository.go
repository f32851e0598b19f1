package repositories

import (
	"context"
	"fmt"
	"time"

	"refpay/internal/models"
	"refpay/internal/storage"
)

// CommissionRepository persists commissions keyed by commission id. The
// order id is the idempotency key: GetByOrderID is what keeps retried
// payment confirmations from double-crediting an agent.
type CommissionRepository struct {
	store *storage.TieredStore
}

func NewCommissionRepository(store *storage.TieredStore) *CommissionRepository {
	return &CommissionRepository{store: store}
}

func (r *CommissionRepository) All(ctx context.Context) ([]models.Commission, error) {
	return readCollection[models.Commission](ctx, r.store, storage.CollectionCommissions)
}

func (r *CommissionRepository) GetByID(ctx context.Context, id string) (*models.Commission, error) {
	commissions, err := r.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get commission: %w", err)
	}
	for i := range commissions {
		if commissions[i].ID == id {
			return &commissions[i], nil
		}
	}
	return nil, ErrCommissionNotFound
}

func (r *CommissionRepository) GetByOrderID(ctx context.Context, orderID string) (*models.Commission, error) {
	commissions, err := r.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get commission: %w", err)
	}
	for i := range commissions {
		if commissions[i].OrderID == orderID {
			return &commissions[i], nil
		}
	}
	return nil, ErrCommissionNotFound
}

// ByAgent returns all commissions credited to one agent.
func (r *CommissionRepository) ByAgent(ctx context.Context, agentID uint) ([]models.Commission, error) {
	commissions, err := r.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list commissions: %w", err)
	}
	var out []models.Commission
	for _, c := range commissions {
		if c.AgentID == agentID {
			out = append(out, c)
		}
	}
	return out, nil
}

// PendingBefore returns commissions still awaiting clearance that were
// created at or before the cutoff.
func (r *CommissionRepository) PendingBefore(ctx context.Context, cutoff time.Time) ([]models.Commission, error) {
	commissions, err := r.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list commissions: %w", err)
	}
	var out []models.Commission
	for _, c := range commissions {
		if c.Status == models.CommissionPendingClearance && !c.CreatedAt.After(cutoff) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *CommissionRepository) Save(ctx context.Context, commission *models.Commission) error {
	return upsertOne(ctx, r.store, storage.CollectionCommissions, commission.ID, commission)
}
