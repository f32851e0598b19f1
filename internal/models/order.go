package models

import "time"

// Order statuses
type OrderStatus string

const (
	OrderPending  OrderStatus = "PENDING"
	OrderPaid     OrderStatus = "PAID"
	OrderCanceled OrderStatus = "CANCELED"
	OrderFailed   OrderStatus = "FAILED"
)

// orderTransitions maps each status to the statuses it may move to.
// Terminal statuses have no entries.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending: {OrderPaid, OrderCanceled, OrderFailed},
}

// CanTransitionTo reports whether the status change is allowed.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further status change is allowed.
func (s OrderStatus) Terminal() bool {
	return len(orderTransitions[s]) == 0
}

// Order is a checkout record. AgentID is nil when no referral was attributed
// at confirmation time. Once terminal, only PaymentRef may be backfilled.
type Order struct {
	ID               string      `json:"id"`
	ProductID        string      `json:"product_id"`
	Quantity         int         `json:"quantity"`
	TotalAmountCents int64       `json:"total_amount_cents"`
	AgentID          *uint       `json:"agent_id,omitempty"`
	Status           OrderStatus `json:"status"`
	PaymentRef       string      `json:"payment_ref,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}
