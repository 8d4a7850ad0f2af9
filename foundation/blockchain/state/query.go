package state

import (
	"github.com/omoto202/mycoin3/foundation/blockchain/database"
	"github.com/omoto202/mycoin3/foundation/blockchain/genesis"
	"github.com/omoto202/mycoin3/foundation/events"
	"github.com/shopspring/decimal"
)

// Snapshot is a read-only copy of the ledger. Version increases with every
// change to the ledger.
type Snapshot struct {
	Version     uint64           `json:"version"`
	Chain       []database.Block `json:"chain"`
	Pending     []database.Tx    `json:"pending"`
	Difficulty  uint             `json:"difficulty"`
	TotalIssued decimal.Decimal  `json:"total_issued"`
	MaxSupply   decimal.Decimal  `json:"max_supply"`
	BaseReward  decimal.Decimal  `json:"base_reward"`
}

// RetrieveSnapshot returns a consistent copy of the ledger.
func (s *State) RetrieveSnapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snapshot()
}

// RetrieveGenesis returns a copy of the genesis information.
func (s *State) RetrieveGenesis() genesis.Genesis {
	return s.genesis
}

// RetrieveLatestBlock returns a copy of the current latest block.
func (s *State) RetrieveLatestBlock() database.Block {
	return s.db.LatestBlock()
}

// RetrieveAccounts returns a copy of the sealed balance of every identity
// that appears in the chain.
func (s *State) RetrieveAccounts() map[string]decimal.Decimal {
	return s.db.CopyAccounts()
}

// QueryChainLength returns the number of blocks in the chain including
// genesis.
func (s *State) QueryChainLength() int {
	return s.db.Length()
}

// QueryBalance returns the balance available to the identity. Pending
// outgoing amounts are already deducted, pending incoming amounts only count
// once they are sealed in a block.
func (s *State) QueryBalance(id string) decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.balance(id)
}

// QueryMempoolLength returns the current length of the mempool.
func (s *State) QueryMempoolLength() int {
	return s.mempool.Count()
}

// Subscribe registers an observer of ledger changes. The first value
// received is the latest published snapshot, followed by every change.
func (s *State) Subscribe() events.Subscription[Snapshot] {
	return s.evts.Subscribe()
}

// Unsubscribe releases the subscription.
func (s *State) Unsubscribe(id string) error {
	return s.evts.Unsubscribe(id)
}

// =============================================================================

// snapshot builds the snapshot. The caller must hold the lock.
func (s *State) snapshot() Snapshot {
	return Snapshot{
		Version:     s.version,
		Chain:       s.db.Chain(),
		Pending:     s.mempool.Copy(),
		Difficulty:  s.genesis.Difficulty,
		TotalIssued: s.db.TotalIssued(),
		MaxSupply:   s.genesis.MaxSupply,
		BaseReward:  s.genesis.BaseReward,
	}
}

// balance computes the available balance. The caller must hold the lock.
func (s *State) balance(id string) decimal.Decimal {
	return s.db.Balance(id).Sub(s.mempool.Outgoing(id))
}
