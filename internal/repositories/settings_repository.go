package repositories

import (
	"context"
	"fmt"
	"time"

	"refpay/internal/models"
	"refpay/internal/storage"
)

// SettingsRepository persists the key-value settings collection.
type SettingsRepository struct {
	store *storage.TieredStore
}

func NewSettingsRepository(store *storage.TieredStore) *SettingsRepository {
	return &SettingsRepository{store: store}
}

func (r *SettingsRepository) Get(ctx context.Context, key string) (string, error) {
	settings, err := readCollection[models.Setting](ctx, r.store, storage.CollectionSettings)
	if err != nil {
		return "", fmt.Errorf("failed to get setting: %w", err)
	}
	for _, s := range settings {
		if s.Key == key {
			return s.Value, nil
		}
	}
	return "", ErrSettingNotFound
}

func (r *SettingsRepository) Set(ctx context.Context, key, value string) error {
	setting := models.Setting{Key: key, Value: value, UpdatedAt: time.Now()}
	return upsertOne(ctx, r.store, storage.CollectionSettings, key, setting)
}

// Seed writes the default settings when no tier holds any.
func (r *SettingsRepository) Seed(ctx context.Context, defaults map[string]string) error {
	records := make([]storage.Record, 0, len(defaults))
	for key, value := range defaults {
		rec, err := encodeRecord(key, models.Setting{Key: key, Value: value, UpdatedAt: time.Now()})
		if err != nil {
			return err
		}
		records = append(records, rec)
	}
	_, err := r.store.Seed(ctx, storage.CollectionSettings, records)
	return err
}
