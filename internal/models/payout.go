package models

import "time"

// Payout statuses
type PayoutStatus string

const (
	PayoutRequested PayoutStatus = "REQUESTED"
	PayoutApproved  PayoutStatus = "APPROVED"
	PayoutPaid      PayoutStatus = "PAID"
	PayoutRejected  PayoutStatus = "REJECTED"
)

// No transition is reversible; REJECTED and PAID are terminal.
var payoutTransitions = map[PayoutStatus][]PayoutStatus{
	PayoutRequested: {PayoutApproved, PayoutRejected},
	PayoutApproved:  {PayoutPaid},
}

// CanTransitionTo reports whether the status change is allowed.
func (s PayoutStatus) CanTransitionTo(next PayoutStatus) bool {
	for _, allowed := range payoutTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// CountsAgainstBalance reports whether a payout in this status still reserves
// part of the agent's cleared balance.
func (s PayoutStatus) CountsAgainstBalance() bool {
	return s == PayoutRequested || s == PayoutApproved || s == PayoutPaid
}

// Payout is a request to pay out part of an agent's cleared balance.
type Payout struct {
	ID          string       `json:"id"`
	AgentID     uint         `json:"agent_id"`
	AmountCents int64        `json:"amount_cents"`
	Status      PayoutStatus `json:"status"`
	Destination string       `json:"destination"`
	RequestedAt time.Time    `json:"requested_at"`
	ApprovedAt  *time.Time   `json:"approved_at,omitempty"`
	PaidAt      *time.Time   `json:"paid_at,omitempty"`
	RejectedAt  *time.Time   `json:"rejected_at,omitempty"`
}
