// Package database handles all the lower level support for maintaining the
// blockchain in memory along with the account balances and issuance derived
// from it.
package database

import (
	"sync"

	"github.com/omoto202/mycoin3/foundation/blockchain/accounts"
	"github.com/omoto202/mycoin3/foundation/blockchain/genesis"
	"github.com/shopspring/decimal"
)

// Database manages the sealed blocks and the data derived from them.
type Database struct {
	mu sync.RWMutex

	chain       []Block
	accounts    *accounts.Accounts
	totalIssued decimal.Decimal
}

// New constructs a new database holding only the genesis block.
func New(genesis genesis.Genesis) *Database {
	return &Database{
		chain:       []Block{NewGenesisBlock(genesis.Date)},
		accounts:    accounts.New(SystemIdentity),
		totalIssued: decimal.Zero,
	}
}

// LatestBlock returns the latest block.
func (db *Database) LatestBlock() Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.chain[len(db.chain)-1]
}

// Length returns the number of blocks in the chain including genesis.
func (db *Database) Length() int {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return len(db.chain)
}

// Chain returns a copy of the chain. Blocks are never modified once sealed
// so the blocks themselves are shared.
func (db *Database) Chain() []Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	chain := make([]Block, len(db.chain))
	copy(chain, db.chain)
	return chain
}

// TotalIssued returns the sum of all coinbase amounts in the chain.
func (db *Database) TotalIssued() decimal.Decimal {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.totalIssued
}

// Balance returns the sealed balance for the specified identity.
func (db *Database) Balance(id string) decimal.Decimal {
	return db.accounts.Balance(id)
}

// CopyAccounts makes a copy of the current sealed balances.
func (db *Database) CopyAccounts() map[string]decimal.Decimal {
	return db.accounts.Copy()
}

// Write appends a validated block to the chain and applies its transactions
// to the account balances.
func (db *Database) Write(block Block) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.chain = append(db.chain, block)
	applyBlock(db.accounts, block)
	db.totalIssued = db.totalIssued.Add(block.Coinbase())
}

// Replace swaps the chain for a validated candidate chain. Balances and
// issuance are recomputed from the new chain, never carried over.
func (db *Database) Replace(chain []Block) {
	act := Balances(chain)
	issued := TotalIssued(chain)

	cpy := make([]Block, len(chain))
	copy(cpy, chain)

	db.mu.Lock()
	defer db.mu.Unlock()

	db.chain = cpy
	db.accounts.Replace(act)
	db.totalIssued = issued
}

// =============================================================================

// TotalIssued recomputes the sum of all coinbase amounts in the chain.
func TotalIssued(chain []Block) decimal.Decimal {
	total := decimal.Zero
	for _, block := range chain {
		total = total.Add(block.Coinbase())
	}
	return total
}

// Balances recomputes the sealed balances for every identity in the chain.
func Balances(chain []Block) *accounts.Accounts {
	act := accounts.New(SystemIdentity)
	for _, block := range chain {
		applyBlock(act, block)
	}
	return act
}

// applyBlock applies every transaction of the block to the accounts.
func applyBlock(act *accounts.Accounts, block Block) {
	for _, tx := range block.Transactions {
		act.ApplyTransfer(accounts.Transfer{
			From:   tx.Sender,
			To:     tx.Recipient,
			Amount: tx.Amount,
		})
	}
}
