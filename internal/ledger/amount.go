package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"bountyledger/internal/domain"
)

// AmountScale is the number of fractional digits a ledger amount may carry. It
// matches the settlement token's base-unit exponent.
const AmountScale = 6

var (
	maxTransferRatio  = decimal.RequireFromString("0.9")
	minRetentionRatio = decimal.RequireFromString("0.1")
)

// ValidateAmount reports ErrInvalidAmount for amounts the ledger cannot record:
// zero, negative, or finer than AmountScale decimal places.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return fmt.Errorf("%w: amount must be greater than zero, got %s", domain.ErrInvalidAmount, amount)
	}
	if !amount.Equal(amount.Truncate(AmountScale)) {
		return fmt.Errorf("%w: amount %s has more than %d decimal places", domain.ErrInvalidAmount, amount, AmountScale)
	}
	return nil
}

// MaxTransferable returns the largest amount that may leave a contribution whose
// current amount is current.
func MaxTransferable(current decimal.Decimal) decimal.Decimal {
	return current.Mul(maxTransferRatio)
}

// checkRetention enforces that at most 90% of current leaves and at least 10% stays.
func checkRetention(current, amount decimal.Decimal) error {
	limit := MaxTransferable(current)
	if amount.GreaterThan(limit) {
		return fmt.Errorf("%w: transfer amount %s exceeds 90%% of the contribution's current amount %s (max %s)",
			domain.ErrExceedsRetention, amount, current, limit)
	}
	floor := current.Mul(minRetentionRatio)
	if remaining := current.Sub(amount); remaining.LessThan(floor) {
		return fmt.Errorf("%w: remaining amount %s would fall below 10%% of the contribution's current amount %s (min %s)",
			domain.ErrExceedsRetention, remaining, current, floor)
	}
	return nil
}
