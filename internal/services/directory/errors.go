package directory

import "errors"

// Service errors
var (
	ErrAgentNotFound = errors.New("agent not found")
	ErrInvalidRate   = errors.New("commission rate must be between 0 and 1")
	ErrCodeCollision = errors.New("could not generate a unique referral code")
)
