package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidContributor = errors.New("invalid contributor")
	ErrExceedsRetention   = errors.New("exceeds retention")
	ErrInactive           = errors.New("contribution inactive")
	ErrSelfTransfer       = errors.New("self transfer")
	ErrDuplicateSignature = errors.New("transaction signature already recorded")
	ErrStorage            = errors.New("storage failure")
)

// IsRuleViolation reports whether err is a business-rule rejection the caller can act on,
// as opposed to an infrastructure failure.
func IsRuleViolation(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrInvalidContributor),
		errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrExceedsRetention),
		errors.Is(err, ErrInactive),
		errors.Is(err, ErrSelfTransfer),
		errors.Is(err, ErrDuplicateSignature):
		return true
	default:
		return false
	}
}
