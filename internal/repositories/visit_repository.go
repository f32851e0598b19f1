package repositories

import (
	"context"

	"refpay/internal/models"
	"refpay/internal/storage"
)

// VisitRepository appends referral visit records. The collection is
// append-only; visits are never updated or read back individually.
type VisitRepository struct {
	store *storage.TieredStore
}

func NewVisitRepository(store *storage.TieredStore) *VisitRepository {
	return &VisitRepository{store: store}
}

func (r *VisitRepository) Append(ctx context.Context, visit *models.ReferralVisit) error {
	return upsertOne(ctx, r.store, storage.CollectionVisits, visit.ID, visit)
}

// ByAgent returns the recorded visits for one agent, for admin reporting.
func (r *VisitRepository) ByAgent(ctx context.Context, agentID uint) ([]models.ReferralVisit, error) {
	visits, err := readCollection[models.ReferralVisit](ctx, r.store, storage.CollectionVisits)
	if err != nil {
		return nil, err
	}
	var out []models.ReferralVisit
	for _, v := range visits {
		if v.AgentID == agentID {
			out = append(out, v)
		}
	}
	return out, nil
}
