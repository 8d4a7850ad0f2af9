// Package mempool maintains the mempool for the blockchain.
package mempool

import (
	"sync"

	"github.com/omoto202/mycoin3/foundation/blockchain/database"
	"github.com/shopspring/decimal"
)

// Mempool represents the set of accepted transactions that are not yet part
// of a sealed block, kept in the order they were accepted.
type Mempool struct {
	pool []database.Tx
	mu   sync.RWMutex
}

// New constructs a new empty mempool.
func New() *Mempool {
	return &Mempool{}
}

// Count returns the current number of transactions in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Add appends a transaction to the end of the mempool and returns the new
// number of transactions in the pool.
func (mp *Mempool) Add(tx database.Tx) int {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = append(mp.pool, tx)

	return len(mp.pool)
}

// Truncate clears all the transactions from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = nil
}

// Copy returns the transactions in the order they were accepted.
func (mp *Mempool) Copy() []database.Tx {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	cpy := make([]database.Tx, len(mp.pool))
	copy(cpy, mp.pool)
	return cpy
}

// Outgoing returns the sum of every pending amount sent by the identity.
func (mp *Mempool) Outgoing(id string) decimal.Decimal {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	total := decimal.Zero
	for _, tx := range mp.pool {
		if tx.Sender == id {
			total = total.Add(tx.Amount)
		}
	}
	return total
}
