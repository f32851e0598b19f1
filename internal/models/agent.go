package models

import "time"

// Agent is an affiliate who refers buyers through a unique referral code.
// The cleared-commission total is a cache maintained by the ledger; the
// authoritative value is always the sum over CLEARED commissions.
type Agent struct {
	ID                     uint       `json:"id"`
	FullName               string     `json:"full_name"`
	Email                  string     `json:"email"`
	Phone                  string     `json:"phone"`
	ReferralCode           string     `json:"referral_code"`
	CommissionRateOverride *float64   `json:"commission_rate_override,omitempty"`
	IsActive               bool       `json:"is_active"`
	VisitCount             int64      `json:"visit_count"`
	SaleCount              int64      `json:"sale_count"`
	TotalSaleCents         int64      `json:"total_sale_cents"`
	TotalClearedCents      int64      `json:"total_cleared_cents"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
	DeactivatedAt          *time.Time `json:"deactivated_at,omitempty"`
}

// ReferralVisit is an append-only record of a tracked click on an agent's
// referral link. Used for visit counters only, never for attribution.
type ReferralVisit struct {
	ID           string    `json:"id"`
	AgentID      uint      `json:"agent_id"`
	ReferralCode string    `json:"referral_code"`
	Fingerprint  string    `json:"fingerprint"`
	CreatedAt    time.Time `json:"created_at"`
}
