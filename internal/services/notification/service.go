// Package notification delivers agent-facing event notifications. Delivery
// is fire-and-forget: ledger and payout state is durable before any
// notification is attempted, and a failed delivery never rolls anything
// back.
package notification

import (
	"context"
	"log"
)

// Event types
const (
	EventCommissionRecorded = "commission_recorded"
	EventCommissionCleared  = "commission_cleared"
	EventPayoutRequested    = "payout_requested"
	EventPayoutApproved     = "payout_approved"
	EventPayoutPaid         = "payout_paid"
	EventPayoutRejected     = "payout_rejected"
)

// Service is the outbound notification collaborator. The default
// implementation only logs; a real gateway slots in behind the same
// interface.
type Service interface {
	Notify(ctx context.Context, agentID uint, eventType string, amountCents int64)
}

type logService struct{}

// NewService creates the log-backed notification service.
func NewService() Service { return &logService{} }

func (s *logService) Notify(_ context.Context, agentID uint, eventType string, amountCents int64) {
	log.Printf("notify agent %d: %s (%d cents)", agentID, eventType, amountCents)
}
