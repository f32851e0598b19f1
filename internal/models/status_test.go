package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderStatusTransitions(t *testing.T) {
	assert.True(t, OrderPending.CanTransitionTo(OrderPaid))
	assert.True(t, OrderPending.CanTransitionTo(OrderCanceled))
	assert.True(t, OrderPending.CanTransitionTo(OrderFailed))

	for _, terminal := range []OrderStatus{OrderPaid, OrderCanceled, OrderFailed} {
		assert.True(t, terminal.Terminal(), string(terminal))
		assert.False(t, terminal.CanTransitionTo(OrderPending), string(terminal))
		assert.False(t, terminal.CanTransitionTo(OrderPaid), string(terminal))
	}
	assert.False(t, OrderPending.Terminal())
	assert.False(t, OrderPending.CanTransitionTo(OrderPending))
}

func TestCommissionStatusTransitions(t *testing.T) {
	assert.True(t, CommissionPendingClearance.CanTransitionTo(CommissionCleared))
	assert.False(t, CommissionCleared.CanTransitionTo(CommissionPendingClearance))
	assert.False(t, CommissionCleared.CanTransitionTo(CommissionCleared))
}

func TestPayoutStatusTransitions(t *testing.T) {
	tests := []struct {
		from    PayoutStatus
		to      PayoutStatus
		allowed bool
	}{
		{PayoutRequested, PayoutApproved, true},
		{PayoutRequested, PayoutRejected, true},
		{PayoutRequested, PayoutPaid, false},
		{PayoutApproved, PayoutPaid, true},
		{PayoutApproved, PayoutRejected, false},
		{PayoutApproved, PayoutRequested, false},
		{PayoutPaid, PayoutRejected, false},
		{PayoutRejected, PayoutRequested, false},
		{PayoutRejected, PayoutApproved, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestPayoutCountsAgainstBalance(t *testing.T) {
	assert.True(t, PayoutRequested.CountsAgainstBalance())
	assert.True(t, PayoutApproved.CountsAgainstBalance())
	assert.True(t, PayoutPaid.CountsAgainstBalance())
	assert.False(t, PayoutRejected.CountsAgainstBalance())
}
