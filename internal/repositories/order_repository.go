package repositories

import (
	"context"
	"fmt"

	"refpay/internal/models"
	"refpay/internal/storage"
)

// OrderRepository persists orders keyed by their opaque order id.
type OrderRepository struct {
	store *storage.TieredStore
}

func NewOrderRepository(store *storage.TieredStore) *OrderRepository {
	return &OrderRepository{store: store}
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	orders, err := readCollection[models.Order](ctx, r.store, storage.CollectionOrders)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	for i := range orders {
		if orders[i].ID == id {
			return &orders[i], nil
		}
	}
	return nil, ErrOrderNotFound
}

func (r *OrderRepository) Save(ctx context.Context, order *models.Order) error {
	return upsertOne(ctx, r.store, storage.CollectionOrders, order.ID, order)
}
