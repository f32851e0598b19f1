package ledger

import "errors"

// Service errors
var (
	ErrInvalidAmount     = errors.New("invalid commission amount")
	ErrInvalidTransition = errors.New("invalid commission transition")
	ErrOrderNotFound     = errors.New("order not found")
)
