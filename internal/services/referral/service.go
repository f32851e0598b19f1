// Package referral resolves inbound visits and orders to agents.
//
// Attribution is last-touch: whatever referral code is present at
// order-confirmation time wins, regardless of earlier exposure to other
// agents' links.
package referral

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"refpay/internal/locks"
	"refpay/internal/models"
	"refpay/internal/repositories"
	"refpay/internal/services/directory"
)

// Service defines referral attribution operations.
type Service interface {
	// CaptureVisit records a click on an agent's link and bumps the
	// agent's visit counter. Unknown codes fail with ErrInvalidReferral;
	// public-facing callers usually swallow that.
	CaptureVisit(ctx context.Context, code, fingerprint string) error

	// AttributeOrder resolves the code carried by a cookie or query
	// parameter to an agent id. Pure resolution, no state change; an
	// unresolvable or empty code yields nil, not an error.
	AttributeOrder(ctx context.Context, code string) (*uint, error)
}

type service struct {
	directory  directory.Service
	agents     *repositories.AgentRepository
	visits     *repositories.VisitRepository
	agentLocks *locks.KeyedMutex
}

// NewService creates a new referral attribution service.
func NewService(dir directory.Service, agents *repositories.AgentRepository, visits *repositories.VisitRepository, agentLocks *locks.KeyedMutex) Service {
	if dir == nil {
		panic("directory service is required")
	}
	if agents == nil {
		panic("agent repository is required")
	}
	if visits == nil {
		panic("visit repository is required")
	}
	if agentLocks == nil {
		panic("agent lock registry is required")
	}
	return &service{directory: dir, agents: agents, visits: visits, agentLocks: agentLocks}
}

func (s *service) CaptureVisit(ctx context.Context, code, fingerprint string) error {
	agent, err := s.directory.FindByReferralCode(ctx, code)
	if err != nil {
		if errors.Is(err, directory.ErrAgentNotFound) {
			return ErrInvalidReferral
		}
		return fmt.Errorf("failed to resolve referral code: %w", err)
	}

	// The increment is read-modify-write against the store, so it has to
	// happen under the agent's lock or concurrent visits lose updates.
	unlock := s.agentLocks.Lock(locks.AgentKey(agent.ID))
	defer unlock()

	fresh, err := s.agents.GetByID(ctx, agent.ID)
	if err != nil {
		return fmt.Errorf("failed to load agent: %w", err)
	}
	fresh.VisitCount++
	fresh.UpdatedAt = time.Now()
	if err := s.agents.Save(ctx, fresh); err != nil {
		return fmt.Errorf("failed to record visit: %w", err)
	}

	visit := &models.ReferralVisit{
		ID:           uuid.NewString(),
		AgentID:      agent.ID,
		ReferralCode: code,
		Fingerprint:  fingerprint,
		CreatedAt:    time.Now(),
	}
	if err := s.visits.Append(ctx, visit); err != nil {
		return fmt.Errorf("failed to record visit: %w", err)
	}
	return nil
}

func (s *service) AttributeOrder(ctx context.Context, code string) (*uint, error) {
	if code == "" {
		return nil, nil
	}
	agent, err := s.directory.FindByReferralCode(ctx, code)
	if err != nil {
		if errors.Is(err, directory.ErrAgentNotFound) {
			// The order proceeds unattributed; this is not an error.
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve referral code: %w", err)
	}
	if !agent.IsActive {
		return nil, nil
	}
	id := agent.ID
	return &id, nil
}
