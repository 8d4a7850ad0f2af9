package state

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Set of errors reported by the ledger. None of them leave the ledger in a
// modified state, the caller can retry against fresh state.
var (
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrReservedSender        = errors.New("sender identity is reserved")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInvalidSignature      = errors.New("invalid signature")
	ErrIdentityMismatch      = errors.New("signer does not match sender")
	ErrMissingField          = errors.New("missing field")
	ErrInvalidCandidateChain = errors.New("invalid candidate chain")
	ErrChainNotLonger        = fmt.Errorf("%w: not longer than the current chain", ErrInvalidCandidateChain)
	ErrMiningFailed          = errors.New("mining failed")
	ErrStaleTip              = errors.New("chain moved while mining")
)

// InsufficientBalanceError carries the balance the sender has available so
// the caller can retry with a smaller amount.
type InsufficientBalanceError struct {
	Sender  string
	Balance decimal.Decimal
	Amount  decimal.Decimal
}

// Error implements the error interface.
func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance, bal %s, needed %s", e.Balance, e.Amount)
}

// Unwrap allows errors.Is to match ErrInsufficientBalance.
func (e *InsufficientBalanceError) Unwrap() error {
	return ErrInsufficientBalance
}
