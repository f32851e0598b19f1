package models

import "time"

// Commission statuses
type CommissionStatus string

const (
	CommissionPendingClearance CommissionStatus = "PENDING_CLEARANCE"
	CommissionCleared          CommissionStatus = "CLEARED"
)

var commissionTransitions = map[CommissionStatus][]CommissionStatus{
	CommissionPendingClearance: {CommissionCleared},
}

// CanTransitionTo reports whether the status change is allowed.
func (s CommissionStatus) CanTransitionTo(next CommissionStatus) bool {
	for _, allowed := range commissionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Commission is the single commission record for a qualifying order.
// Rate is a snapshot of the effective rate at computation time so historical
// commissions stay reproducible after rate changes.
type Commission struct {
	ID                    string           `json:"id"`
	OrderID               string           `json:"order_id"`
	AgentID               uint             `json:"agent_id"`
	Rate                  float64          `json:"rate"`
	BaseAmountCents       int64            `json:"base_amount_cents"`
	CommissionAmountCents int64            `json:"commission_amount_cents"`
	Status                CommissionStatus `json:"status"`
	CreatedAt             time.Time        `json:"created_at"`
	ClearedAt             *time.Time       `json:"cleared_at,omitempty"`
}
