// Package ledger computes and stores commissions for qualifying orders and
// owns the clearance state machine.
//
// A commission is either fully recorded or not recorded at all; the order id
// is the idempotency key, so a retried payment confirmation returns the
// existing record instead of crediting the agent twice.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"refpay/internal/locks"
	"refpay/internal/models"
	"refpay/internal/repositories"
	"refpay/internal/services/directory"
)

// Service defines the commission ledger operations.
type Service interface {
	// RecordSale computes and persists the commission for a paid order.
	// Orders without an attributed agent yield (nil, nil). Calling it
	// again for the same order returns the existing commission unchanged.
	RecordSale(ctx context.Context, order *models.Order) (*models.Commission, error)

	// ClearPending promotes every commission pending clearance that was
	// created at or before the cutoff, updating the owning agents' cached
	// cleared totals. Returns the number of commissions cleared. Only the
	// sweeper calls this.
	ClearPending(ctx context.Context, cutoff time.Time) (int, error)

	// AgentCommissions lists an agent's commissions, newest first.
	AgentCommissions(ctx context.Context, agentID uint) ([]models.Commission, error)
}

type service struct {
	commissions *repositories.CommissionRepository
	agents      *repositories.AgentRepository
	directory   directory.Service
	agentLocks  *locks.KeyedMutex
}

// NewService creates a new commission ledger service.
func NewService(commissions *repositories.CommissionRepository, agents *repositories.AgentRepository, dir directory.Service, agentLocks *locks.KeyedMutex) Service {
	if commissions == nil {
		panic("commission repository is required")
	}
	if agents == nil {
		panic("agent repository is required")
	}
	if dir == nil {
		panic("directory service is required")
	}
	if agentLocks == nil {
		panic("agent lock registry is required")
	}
	return &service{commissions: commissions, agents: agents, directory: dir, agentLocks: agentLocks}
}

func (s *service) RecordSale(ctx context.Context, order *models.Order) (*models.Commission, error) {
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.AgentID == nil {
		return nil, nil
	}
	if order.TotalAmountCents < 0 {
		return nil, ErrInvalidAmount
	}

	unlock := s.agentLocks.Lock(locks.AgentKey(*order.AgentID))
	defer unlock()

	// Idempotency guard: a retried confirmation must not credit twice.
	existing, err := s.commissions.GetByOrderID(ctx, order.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repositories.ErrCommissionNotFound) {
		return nil, err
	}

	agent, err := s.agents.GetByID(ctx, *order.AgentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load agent %d: %w", *order.AgentID, err)
	}

	rate := s.directory.EffectiveRate(ctx, agent)
	amount, err := commissionCents(order.TotalAmountCents, rate)
	if err != nil {
		return nil, err
	}

	commission := &models.Commission{
		ID:                    uuid.NewString(),
		OrderID:               order.ID,
		AgentID:               agent.ID,
		Rate:                  rate,
		BaseAmountCents:       order.TotalAmountCents,
		CommissionAmountCents: amount,
		Status:                models.CommissionPendingClearance,
		CreatedAt:             time.Now(),
	}
	if err := s.commissions.Save(ctx, commission); err != nil {
		return nil, fmt.Errorf("failed to record commission: %w", err)
	}

	// Sale counters move now; the cleared-balance cache moves only when
	// the clearance window elapses.
	agent.SaleCount++
	agent.TotalSaleCents += order.TotalAmountCents
	agent.UpdatedAt = time.Now()
	if err := s.agents.Save(ctx, agent); err != nil {
		return nil, fmt.Errorf("failed to update agent counters: %w", err)
	}

	return commission, nil
}

// commissionCents rounds half-up on cents and rejects anything that could
// put the ledger in an invalid state.
func commissionCents(baseCents int64, rate float64) (int64, error) {
	if baseCents < 0 {
		return 0, ErrInvalidAmount
	}
	if math.IsNaN(rate) || math.IsInf(rate, 0) || rate < 0 || rate > 1 {
		return 0, ErrInvalidAmount
	}
	amount := int64(math.Floor(float64(baseCents)*rate + 0.5))
	if amount < 0 || amount > baseCents {
		return 0, ErrInvalidAmount
	}
	return amount, nil
}

func (s *service) ClearPending(ctx context.Context, cutoff time.Time) (int, error) {
	pending, err := s.commissions.PendingBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending commissions: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	byAgent := make(map[uint][]models.Commission)
	for _, c := range pending {
		byAgent[c.AgentID] = append(byAgent[c.AgentID], c)
	}

	cleared := 0
	for agentID, batch := range byAgent {
		n, err := s.clearAgentBatch(ctx, agentID, batch)
		cleared += n
		if err != nil {
			return cleared, err
		}
	}
	return cleared, nil
}

// clearAgentBatch promotes one agent's eligible commissions under the
// agent's lock, then bumps the cached cleared total once for the whole
// batch.
func (s *service) clearAgentBatch(ctx context.Context, agentID uint, batch []models.Commission) (int, error) {
	unlock := s.agentLocks.Lock(locks.AgentKey(agentID))
	defer unlock()

	now := time.Now()
	cleared := 0
	var clearedCents int64
	for i := range batch {
		c := batch[i]
		if !c.Status.CanTransitionTo(models.CommissionCleared) {
			// Someone else already advanced it; sweep is idempotent.
			continue
		}
		c.Status = models.CommissionCleared
		c.ClearedAt = &now
		if err := s.commissions.Save(ctx, &c); err != nil {
			return cleared, fmt.Errorf("failed to clear commission %s: %w", c.ID, err)
		}
		cleared++
		clearedCents += c.CommissionAmountCents
	}
	if cleared == 0 {
		return 0, nil
	}

	agent, err := s.agents.GetByID(ctx, agentID)
	if err != nil {
		return cleared, fmt.Errorf("failed to load agent %d: %w", agentID, err)
	}
	agent.TotalClearedCents += clearedCents
	agent.UpdatedAt = now
	if err := s.agents.Save(ctx, agent); err != nil {
		return cleared, fmt.Errorf("failed to update agent %d cleared total: %w", agentID, err)
	}
	return cleared, nil
}

func (s *service) AgentCommissions(ctx context.Context, agentID uint) ([]models.Commission, error) {
	commissions, err := s.commissions.ByAgent(ctx, agentID)
	if err != nil {
		return nil, err
	}
	sort.Slice(commissions, func(i, j int) bool {
		return commissions[i].CreatedAt.After(commissions[j].CreatedAt)
	})
	return commissions, nil
}
