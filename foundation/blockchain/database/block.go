package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/omoto202/mycoin3/foundation/blockchain/signature"
	"github.com/shopspring/decimal"
)

// maxDifficulty is the number of hex characters in a hash.
const maxDifficulty = 64

// ErrChainForked is returned from ValidateBlock if the block does not extend
// the block it is validated against.
var ErrChainForked = errors.New("block does not extend the chain tip")

// =============================================================================

// BlockHeader represents every field of a block that is covered by its hash.
// The field order is part of the hash and must not change.
type BlockHeader struct {
	Index        uint64 `json:"index"`         // Position in the chain, 0 for genesis.
	TimeStamp    uint64 `json:"timestamp"`     // Time the block was mined.
	Nonce        uint64 `json:"nonce"`         // Value identified to solve the hash solution.
	PreviousHash string `json:"previous_hash"` // Hash of the previous block in the chain.
	Transactions []Tx   `json:"transactions"`  // Coinbase first, then the mined transactions.
	Miner        string `json:"miner"`         // Identity that sealed the block, empty on genesis.
}

// Block represents a group of transactions batched together and sealed by
// the hash of its header.
type Block struct {
	BlockHeader
	Hash string `json:"hash"`
}

// NewGenesisBlock constructs the first block in the chain. The hash only
// depends on the timestamp so every node using the same genesis date agrees
// on the genesis hash.
func NewGenesisBlock(date time.Time) Block {
	b := Block{
		BlockHeader: BlockHeader{
			Index:        0,
			TimeStamp:    uint64(date.UTC().Unix()),
			PreviousHash: signature.ZeroHash,
			Transactions: []Tx{},
		},
	}
	b.Hash = b.ComputeHash()

	return b
}

// ComputeHash returns the hash of the block header. The Hash field is never
// part of its own hashing input.
func (b Block) ComputeHash() string {
	return signature.Hash(b.BlockHeader)
}

// Coinbase returns the amount issued by this block's coinbase transaction.
func (b Block) Coinbase() decimal.Decimal {
	total := decimal.Zero
	for _, tx := range b.Transactions {
		if tx.IsCoinbase() {
			total = total.Add(tx.Amount)
		}
	}
	return total
}

// =============================================================================

// POWArgs represents the set of arguments required to run POW.
type POWArgs struct {
	Miner      string
	Difficulty uint
	Reward     decimal.Decimal
	PrevBlock  Block
	Trans      []Tx
	EvHandler  func(v string, args ...any)
}

// POW constructs a new Block and performs the work to find a nonce that
// solves the cryptographic POW puzzle. Nothing outside the returned block
// is modified, so an abandoned search leaves no trace.
func POW(ctx context.Context, args POWArgs) (Block, error) {
	if args.Difficulty > maxDifficulty {
		return Block{}, fmt.Errorf("difficulty %d is larger than the hash length", args.Difficulty)
	}

	ev := args.EvHandler
	if ev == nil {
		ev = func(v string, args ...any) {}
	}

	now := uint64(time.Now().UTC().Unix())

	// The coinbase transaction is always the first transaction.
	trans := make([]Tx, 0, len(args.Trans)+1)
	trans = append(trans, NewCoinbaseTx(args.Miner, args.Reward, now))
	trans = append(trans, args.Trans...)

	// Construct the block to be mined.
	nb := Block{
		BlockHeader: BlockHeader{
			Index:        args.PrevBlock.Index + 1,
			TimeStamp:    now,
			Nonce:        0, // Will be identified by the POW algorithm.
			PreviousHash: args.PrevBlock.Hash,
			Transactions: trans,
			Miner:        args.Miner,
		},
	}

	// Perform the proof of work mining operation.
	if err := nb.performPOW(ctx, args.Difficulty, ev); err != nil {
		return Block{}, err
	}

	return nb, nil
}

// performPOW does the work of mining to find a valid hash for a specified
// block. Pointer semantics are being used since a nonce is being discovered.
func (b *Block) performPOW(ctx context.Context, difficulty uint, ev func(v string, args ...any)) error {
	ev("database: PerformPOW: MINING: started: blk[%d]: trans[%d]", b.Index, len(b.Transactions))
	defer ev("database: PerformPOW: MINING: completed")

	var attempts uint64
	for {
		attempts++
		if attempts%1_000_000 == 0 {
			ev("database: PerformPOW: MINING: attempts[%d]", attempts)
		}

		// Did we timeout trying to solve the problem.
		if ctx.Err() != nil {
			ev("database: PerformPOW: MINING: CANCELLED")
			return ctx.Err()
		}

		// Hash the block and check if we have solved the puzzle.
		hash := b.ComputeHash()
		if !IsHashSolved(difficulty, hash) {
			b.Nonce++
			continue
		}

		b.Hash = hash

		ev("database: PerformPOW: MINING: SOLVED: prevBlk[%s]: newBlk[%s]", b.PreviousHash, hash)
		ev("database: PerformPOW: MINING: attempts[%d]", attempts)

		return nil
	}
}

// ValidateBlock takes a block and validates it to be appended after the
// previous block at the specified difficulty.
func (b Block) ValidateBlock(previousBlock Block, difficulty uint, evHandler func(v string, args ...any)) error {
	evHandler("database: ValidateBlock: validate: blk[%d]: check: block number is the next number", b.Index)

	nextIndex := previousBlock.Index + 1
	if b.Index != nextIndex {
		return fmt.Errorf("%w: this block is not the next number, got %d, exp %d", ErrChainForked, b.Index, nextIndex)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: parent hash does match parent block", b.Index)

	if b.PreviousHash != previousBlock.Hash {
		return fmt.Errorf("%w: parent block hash doesn't match our known parent, got %s, exp %s", ErrChainForked, b.PreviousHash, previousBlock.Hash)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: block hash matches the block contents", b.Index)

	if hash := b.ComputeHash(); hash != b.Hash {
		return fmt.Errorf("block hash has been tampered with, got %s, exp %s", b.Hash, hash)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: block hash has been solved", b.Index)

	if !IsHashSolved(difficulty, b.Hash) {
		return fmt.Errorf("%s invalid block hash for difficulty %d", b.Hash, difficulty)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: coinbase is first and unique, amounts are valid", b.Index)

	for i, tx := range b.Transactions {
		if tx.IsCoinbase() != (i == 0) {
			return fmt.Errorf("block must have exactly one coinbase transaction in first position, found one at %d", i)
		}

		switch {
		case tx.IsCoinbase() && tx.Amount.IsNegative():
			return fmt.Errorf("coinbase amount must not be negative, got %s", tx.Amount)
		case !tx.IsCoinbase() && !tx.Amount.IsPositive():
			return fmt.Errorf("transaction %d amount must be positive, got %s", i, tx.Amount)
		}
	}
	if len(b.Transactions) == 0 {
		return errors.New("block is missing the coinbase transaction")
	}

	return nil
}

// ValidateGenesis checks the first block of a chain.
func (b Block) ValidateGenesis() error {
	if b.Index != 0 {
		return fmt.Errorf("genesis block index must be 0, got %d", b.Index)
	}

	if b.PreviousHash != signature.ZeroHash {
		return fmt.Errorf("genesis block previous hash must be zero, got %s", b.PreviousHash)
	}

	if len(b.Transactions) != 0 {
		return fmt.Errorf("genesis block must not carry transactions, got %d", len(b.Transactions))
	}

	if hash := b.ComputeHash(); hash != b.Hash {
		return fmt.Errorf("genesis block hash has been tampered with, got %s, exp %s", b.Hash, hash)
	}

	return nil
}

// IsHashSolved checks the hash to make sure it complies with
// the POW rules. We need to match a difficulty number of 0's.
func IsHashSolved(difficulty uint, hash string) bool {
	if len(hash) != maxDifficulty || difficulty > maxDifficulty {
		return false
	}

	return strings.Count(hash[:difficulty], "0") == int(difficulty)
}
