package database

import (
	"errors"
	"fmt"

	"github.com/omoto202/mycoin3/foundation/blockchain/genesis"
	"github.com/omoto202/mycoin3/foundation/blockchain/reward"
)

// ValidateChain checks an entire chain from genesis. The genesis block must
// be the one this ledger was started with. Every block after
// genesis must link to its parent, hash to its recorded hash, solve the
// proof of work, and issue exactly the scheduled subsidy.
func ValidateChain(chain []Block, gen genesis.Genesis, evHandler func(v string, args ...any)) error {
	if len(chain) == 0 {
		return errors.New("chain is empty")
	}

	evHandler("database: ValidateChain: validate: blocks[%d]: check: genesis block", len(chain))

	if err := chain[0].ValidateGenesis(); err != nil {
		return err
	}

	if exp := NewGenesisBlock(gen.Date).Hash; chain[0].Hash != exp {
		return fmt.Errorf("genesis block does not match this ledger, got %s, exp %s", chain[0].Hash, exp)
	}

	issued := TotalIssued(chain[:1])
	for i := 1; i < len(chain); i++ {
		block := chain[i]

		if err := block.ValidateBlock(chain[i-1], gen.Difficulty, evHandler); err != nil {
			return fmt.Errorf("block %d: %w", i, err)
		}

		evHandler("database: ValidateChain: validate: blk[%d]: check: coinbase matches the reward schedule", block.Index)

		exp := reward.Current(issued, gen.BaseReward, gen.MaxSupply)
		if got := block.Coinbase(); !got.Equal(exp) {
			return fmt.Errorf("block %d: coinbase amount %s does not match the scheduled reward %s", i, got, exp)
		}
		issued = issued.Add(exp)
	}

	return nil
}
