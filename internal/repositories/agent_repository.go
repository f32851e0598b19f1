package repositories

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"refpay/internal/models"
	"refpay/internal/storage"
)

// AgentRepository persists agents keyed by id.
type AgentRepository struct {
	store *storage.TieredStore

	// Guards id assignment on create; agent creation is rare enough that a
	// single mutex is fine.
	createMu sync.Mutex
}

func NewAgentRepository(store *storage.TieredStore) *AgentRepository {
	return &AgentRepository{store: store}
}

func agentKey(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// All returns every agent, active or not.
func (r *AgentRepository) All(ctx context.Context) ([]models.Agent, error) {
	return readCollection[models.Agent](ctx, r.store, storage.CollectionAgents)
}

func (r *AgentRepository) GetByID(ctx context.Context, id uint) (*models.Agent, error) {
	agents, err := r.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}
	for i := range agents {
		if agents[i].ID == id {
			return &agents[i], nil
		}
	}
	return nil, ErrAgentNotFound
}

func (r *AgentRepository) GetByReferralCode(ctx context.Context, code string) (*models.Agent, error) {
	agents, err := r.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}
	for i := range agents {
		if agents[i].ReferralCode == code {
			return &agents[i], nil
		}
	}
	return nil, ErrAgentNotFound
}

// CodeExists reports whether any agent already owns the referral code.
func (r *AgentRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	_, err := r.GetByReferralCode(ctx, code)
	if err == nil {
		return true, nil
	}
	if err == ErrAgentNotFound {
		return false, nil
	}
	return false, err
}

// Create assigns the next available id and persists the agent.
func (r *AgentRepository) Create(ctx context.Context, agent *models.Agent) error {
	r.createMu.Lock()
	defer r.createMu.Unlock()

	agents, err := r.All(ctx)
	if err != nil {
		return fmt.Errorf("failed to create agent: %w", err)
	}
	var maxID uint
	for _, a := range agents {
		if a.ID > maxID {
			maxID = a.ID
		}
	}
	agent.ID = maxID + 1
	return upsertOne(ctx, r.store, storage.CollectionAgents, agentKey(agent.ID), agent)
}

// Save writes the agent back through the tier stack.
func (r *AgentRepository) Save(ctx context.Context, agent *models.Agent) error {
	return upsertOne(ctx, r.store, storage.CollectionAgents, agentKey(agent.ID), agent)
}
