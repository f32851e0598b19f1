package referral

import "errors"

// Service errors
var (
	ErrInvalidReferral = errors.New("referral code does not resolve to an agent")
)
