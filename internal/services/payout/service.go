// Package payout validates and records payout requests against agents'
// cleared commission balances and enforces the approval state machine.
//
// The balance check and the payout write happen under the agent's lock:
// two concurrent requests can never both pass the check when their combined
// amount exceeds the available balance.
package payout

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"refpay/internal/locks"
	"refpay/internal/models"
	"refpay/internal/repositories"
)

// Service defines the payout engine operations.
type Service interface {
	// RequestPayout reserves part of the agent's available balance. The
	// available balance is cleared commissions minus every payout not yet
	// rejected.
	RequestPayout(ctx context.Context, agentID uint, amountCents int64, destination string) (*models.Payout, error)

	// AvailableBalance returns the cents the agent could request now.
	AvailableBalance(ctx context.Context, agentID uint) (int64, error)

	// Admin transitions. None of them is reversible.
	Approve(ctx context.Context, payoutID string) (*models.Payout, error)
	MarkPaid(ctx context.Context, payoutID string) (*models.Payout, error)
	Reject(ctx context.Context, payoutID string) (*models.Payout, error)

	// AgentPayouts lists an agent's payouts, newest first.
	AgentPayouts(ctx context.Context, agentID uint) ([]models.Payout, error)
}

type service struct {
	payouts     *repositories.PayoutRepository
	commissions *repositories.CommissionRepository
	agentLocks  *locks.KeyedMutex
}

// NewService creates a new payout engine.
func NewService(payouts *repositories.PayoutRepository, commissions *repositories.CommissionRepository, agentLocks *locks.KeyedMutex) Service {
	if payouts == nil {
		panic("payout repository is required")
	}
	if commissions == nil {
		panic("commission repository is required")
	}
	if agentLocks == nil {
		panic("agent lock registry is required")
	}
	return &service{payouts: payouts, commissions: commissions, agentLocks: agentLocks}
}

func (s *service) RequestPayout(ctx context.Context, agentID uint, amountCents int64, destination string) (*models.Payout, error) {
	if amountCents <= 0 {
		return nil, ErrInsufficientFunds
	}

	// Check-then-act must be serialized per agent.
	unlock := s.agentLocks.Lock(locks.AgentKey(agentID))
	defer unlock()

	available, err := s.availableLocked(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if amountCents > available {
		return nil, ErrInsufficientFunds
	}

	payout := &models.Payout{
		ID:          uuid.NewString(),
		AgentID:     agentID,
		AmountCents: amountCents,
		Status:      models.PayoutRequested,
		Destination: destination,
		RequestedAt: time.Now(),
	}
	if err := s.payouts.Save(ctx, payout); err != nil {
		return nil, fmt.Errorf("failed to record payout: %w", err)
	}
	return payout, nil
}

func (s *service) AvailableBalance(ctx context.Context, agentID uint) (int64, error) {
	unlock := s.agentLocks.Lock(locks.AgentKey(agentID))
	defer unlock()
	return s.availableLocked(ctx, agentID)
}

// availableLocked computes cleared minus reserved. Callers hold the agent
// lock.
func (s *service) availableLocked(ctx context.Context, agentID uint) (int64, error) {
	commissions, err := s.commissions.ByAgent(ctx, agentID)
	if err != nil {
		return 0, fmt.Errorf("failed to sum cleared commissions: %w", err)
	}
	var cleared int64
	for _, c := range commissions {
		if c.Status == models.CommissionCleared {
			cleared += c.CommissionAmountCents
		}
	}

	payouts, err := s.payouts.ByAgent(ctx, agentID)
	if err != nil {
		return 0, fmt.Errorf("failed to sum payouts: %w", err)
	}
	var reserved int64
	for _, p := range payouts {
		if p.Status.CountsAgainstBalance() {
			reserved += p.AmountCents
		}
	}
	return cleared - reserved, nil
}

func (s *service) Approve(ctx context.Context, payoutID string) (*models.Payout, error) {
	now := time.Now()
	return s.transition(ctx, payoutID, models.PayoutApproved, func(p *models.Payout) {
		p.ApprovedAt = &now
	})
}

func (s *service) MarkPaid(ctx context.Context, payoutID string) (*models.Payout, error) {
	now := time.Now()
	return s.transition(ctx, payoutID, models.PayoutPaid, func(p *models.Payout) {
		p.PaidAt = &now
	})
}

func (s *service) Reject(ctx context.Context, payoutID string) (*models.Payout, error) {
	now := time.Now()
	return s.transition(ctx, payoutID, models.PayoutRejected, func(p *models.Payout) {
		p.RejectedAt = &now
	})
}

// transition applies one admin state change under the owning agent's lock,
// rejecting anything the transition table does not allow.
func (s *service) transition(ctx context.Context, payoutID string, next models.PayoutStatus, stamp func(*models.Payout)) (*models.Payout, error) {
	payout, err := s.payouts.GetByID(ctx, payoutID)
	if err != nil {
		if errors.Is(err, repositories.ErrPayoutNotFound) {
			return nil, ErrPayoutNotFound
		}
		return nil, err
	}

	unlock := s.agentLocks.Lock(locks.AgentKey(payout.AgentID))
	defer unlock()

	// Re-read under the lock; the status may have moved.
	payout, err = s.payouts.GetByID(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if !payout.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, payout.Status, next)
	}

	payout.Status = next
	stamp(payout)
	if err := s.payouts.Save(ctx, payout); err != nil {
		return nil, fmt.Errorf("failed to update payout: %w", err)
	}
	return payout, nil
}

func (s *service) AgentPayouts(ctx context.Context, agentID uint) ([]models.Payout, error) {
	payouts, err := s.payouts.ByAgent(ctx, agentID)
	if err != nil {
		return nil, err
	}
	sort.Slice(payouts, func(i, j int) bool {
		return payouts[i].RequestedAt.After(payouts[j].RequestedAt)
	})
	return payouts, nil
}
