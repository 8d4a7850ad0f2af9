package state

import (
	"fmt"
	"time"

	"github.com/omoto202/mycoin3/foundation/blockchain/database"
	"github.com/shopspring/decimal"
)

// Receipt describes an accepted transaction.
type Receipt struct {
	PendingCount int             // Number of transactions waiting to be mined.
	Balance      decimal.Decimal // Sender balance after this transaction.
}

// SubmitTransaction accepts a transaction for inclusion in the next block.
// The balance check and the append to the mempool happen under one lock so
// two submissions from the same sender can't both spend the same funds.
func (s *State) SubmitTransaction(tx database.Tx) (Receipt, error) {
	if err := s.validateTransaction(tx); err != nil {
		return Receipt{}, err
	}

	if tx.TimeStamp == 0 {
		tx.TimeStamp = uint64(time.Now().UTC().Unix())
	}

	receipt, snap, err := s.addTransaction(tx)
	if err != nil {
		return Receipt{}, err
	}

	s.evHandler("state: SubmitTransaction: tx[%s]: pending[%d]", tx, receipt.PendingCount)

	s.publish(snap)
	s.Worker.SignalStartMining()

	return receipt, nil
}

// ResetMempool drops every pending transaction.
func (s *State) ResetMempool() {
	snap := func() Snapshot {
		s.mu.Lock()
		defer s.mu.Unlock()

		s.mempool.Truncate()
		s.version++

		return s.snapshot()
	}()

	s.evHandler("state: ResetMempool: mempool truncated")

	s.publish(snap)
}

// =============================================================================

// addTransaction performs the balance check and adds the transaction to
// the mempool.
func (s *State) addTransaction(tx database.Tx) (Receipt, Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	balance := s.balance(tx.Sender)
	if balance.LessThan(tx.Amount) {
		return Receipt{}, Snapshot{}, &InsufficientBalanceError{
			Sender:  tx.Sender,
			Balance: balance,
			Amount:  tx.Amount,
		}
	}

	receipt := Receipt{
		PendingCount: s.mempool.Add(tx),
		Balance:      balance.Sub(tx.Amount),
	}
	s.version++

	return receipt, s.snapshot(), nil
}

// validateTransaction takes the transaction and validates it has the
// required fields, a positive amount and, depending on configuration,
// a proper signature from the sender.
func (s *State) validateTransaction(tx database.Tx) error {
	switch {
	case tx.Sender == "":
		return fmt.Errorf("%w: sender", ErrMissingField)
	case tx.Recipient == "":
		return fmt.Errorf("%w: recipient", ErrMissingField)
	}

	if !tx.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive, got %s", ErrInvalidAmount, tx.Amount)
	}

	if tx.IsCoinbase() {
		return fmt.Errorf("%w: %s", ErrReservedSender, tx.Sender)
	}

	// An unsigned transaction is only acceptable when the node trusts the
	// self-reported sender.
	if !tx.IsSigned() && s.trustOnSubmit {
		return nil
	}

	switch {
	case !tx.IsSigned():
		return fmt.Errorf("%w: signature", ErrMissingField)
	case len(tx.IssuerPublicKey) == 0:
		return fmt.Errorf("%w: issuer_public_key", ErrMissingField)
	}

	if !tx.VerifySignature() {
		return ErrInvalidSignature
	}

	if tx.IssuerIdentity() != tx.Sender {
		return fmt.Errorf("%w: signer %s, sender %s", ErrIdentityMismatch, tx.IssuerIdentity(), tx.Sender)
	}

	return nil
}
