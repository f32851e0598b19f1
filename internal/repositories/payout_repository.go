package repositories

import (
	"context"
	"fmt"

	"refpay/internal/models"
	"refpay/internal/storage"
)

// PayoutRepository persists payouts keyed by payout id.
type PayoutRepository struct {
	store *storage.TieredStore
}

func NewPayoutRepository(store *storage.TieredStore) *PayoutRepository {
	return &PayoutRepository{store: store}
}

func (r *PayoutRepository) All(ctx context.Context) ([]models.Payout, error) {
	return readCollection[models.Payout](ctx, r.store, storage.CollectionPayouts)
}

func (r *PayoutRepository) GetByID(ctx context.Context, id string) (*models.Payout, error) {
	payouts, err := r.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get payout: %w", err)
	}
	for i := range payouts {
		if payouts[i].ID == id {
			return &payouts[i], nil
		}
	}
	return nil, ErrPayoutNotFound
}

// ByAgent returns all payouts requested by one agent.
func (r *PayoutRepository) ByAgent(ctx context.Context, agentID uint) ([]models.Payout, error) {
	payouts, err := r.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list payouts: %w", err)
	}
	var out []models.Payout
	for _, p := range payouts {
		if p.AgentID == agentID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *PayoutRepository) Save(ctx context.Context, payout *models.Payout) error {
	return upsertOne(ctx, r.store, storage.CollectionPayouts, payout.ID, payout)
}
