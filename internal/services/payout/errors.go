package payout

import "errors"

// Service errors
var (
	ErrPayoutNotFound    = errors.New("payout not found")
	ErrInsufficientFunds = errors.New("insufficient cleared balance")
	ErrInvalidTransition = errors.New("invalid payout transition")
)
