package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/omoto202/mycoin3/foundation/blockchain/database"
	"github.com/omoto202/mycoin3/foundation/blockchain/reward"
)

// MineNewBlock creates a new block crediting the miner with the current
// reward and containing every pending transaction. The proof of work search
// runs without holding the ledger lock; only the final commit takes it. If
// another block was committed or a chain was adopted while searching, the
// block is rejected with ErrStaleTip and the caller can retry.
func (s *State) MineNewBlock(ctx context.Context, miner string) (database.Block, error) {
	if miner == "" {
		return database.Block{}, fmt.Errorf("%w: miner", ErrMissingField)
	}

	if s.miningTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.miningTimeout)
		defer cancel()
	}

	s.evHandler("state: MineNewBlock: MINING: capture tip and mempool")

	// Capture everything the search needs in one consistent read.
	var args database.POWArgs
	func() {
		s.mu.RLock()
		defer s.mu.RUnlock()

		args = database.POWArgs{
			Miner:      miner,
			Difficulty: s.genesis.Difficulty,
			Reward:     reward.Current(s.db.TotalIssued(), s.genesis.BaseReward, s.genesis.MaxSupply),
			PrevBlock:  s.db.LatestBlock(),
			Trans:      s.mempool.Copy(),
			EvHandler:  s.evHandler,
		}
	}()

	s.evHandler("state: MineNewBlock: MINING: perform POW: reward[%s]: trans[%d]", args.Reward, len(args.Trans))

	// Attempt to create a new block by solving the POW puzzle. This can be cancelled.
	block, err := database.POW(ctx, args)
	if err != nil {
		return database.Block{}, fmt.Errorf("%w: %w", ErrMiningFailed, err)
	}

	s.evHandler("state: MineNewBlock: MINING: validate and commit")

	snap, err := s.commit(block)
	if err != nil {
		return database.Block{}, err
	}

	s.publish(snap)

	return block, nil
}

// =============================================================================

// commit takes the block and validates it against the current tip. If the
// block passes, it is appended and the mempool is cleared.
func (s *State) commit(block database.Block) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := block.ValidateBlock(s.db.LatestBlock(), s.genesis.Difficulty, s.evHandler); err != nil {
		if errors.Is(err, database.ErrChainForked) {
			return Snapshot{}, fmt.Errorf("%w: %w", ErrStaleTip, err)
		}
		return Snapshot{}, fmt.Errorf("%w: %w", ErrMiningFailed, err)
	}

	exp := reward.Current(s.db.TotalIssued(), s.genesis.BaseReward, s.genesis.MaxSupply)
	if got := block.Coinbase(); !got.Equal(exp) {
		return Snapshot{}, fmt.Errorf("%w: coinbase amount %s does not match the scheduled reward %s", ErrMiningFailed, got, exp)
	}

	s.evHandler("state: commit: blk[%d]: hash[%s]: trans[%d]", block.Index, block.Hash, len(block.Transactions))

	s.db.Write(block)

	// Transactions accepted while the search was running are not part of
	// the block and are dropped with the rest.
	s.mempool.Truncate()
	s.version++

	return s.snapshot(), nil
}
