package state

import (
	"fmt"

	"github.com/omoto202/mycoin3/foundation/blockchain/database"
)

// AdoptChain replaces the local chain with the candidate chain when the
// candidate is longer and valid from genesis. Pending transactions are
// dropped on adoption; clients resubmit what the new chain does not carry.
// A candidate that is not adopted reports false with the reason.
func (s *State) AdoptChain(candidate []database.Block) (bool, error) {
	s.evHandler("state: AdoptChain: started: blocks[%d]", len(candidate))
	defer s.evHandler("state: AdoptChain: completed")

	// Cheap check first, the lock is taken again before replacing.
	if length := s.db.Length(); len(candidate) <= length {
		return false, fmt.Errorf("%w: candidate %d, current %d", ErrChainNotLonger, len(candidate), length)
	}

	// Validation only reads the candidate, so it runs outside the lock.
	if err := database.ValidateChain(candidate, s.genesis, s.evHandler); err != nil {
		return false, fmt.Errorf("%w: %w", ErrInvalidCandidateChain, err)
	}

	snap, err := s.replaceChain(candidate)
	if err != nil {
		return false, err
	}

	// Any background search is now working on a stale tip.
	s.Worker.SignalCancelMining()

	s.publish(snap)

	// Mining can resume on top of the new chain.
	s.Worker.SignalStartMining()

	return true, nil
}

// =============================================================================

// replaceChain swaps in the validated candidate chain.
func (s *State) replaceChain(candidate []database.Block) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// The chain may have grown while the candidate was being validated.
	if length := s.db.Length(); len(candidate) <= length {
		return Snapshot{}, fmt.Errorf("%w: candidate %d, current %d", ErrChainNotLonger, len(candidate), length)
	}

	s.evHandler("state: replaceChain: blocks[%d]: tip[%s]", len(candidate), candidate[len(candidate)-1].Hash)

	s.db.Replace(candidate)
	s.mempool.Truncate()
	s.version++

	return s.snapshot(), nil
}
