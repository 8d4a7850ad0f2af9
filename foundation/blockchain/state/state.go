// Package state is the core API for the blockchain and implements all the
// business rules and processing.
package state

import (
	"sync"
	"time"

	"github.com/omoto202/mycoin3/foundation/blockchain/database"
	"github.com/omoto202/mycoin3/foundation/blockchain/genesis"
	"github.com/omoto202/mycoin3/foundation/blockchain/mempool"
	"github.com/omoto202/mycoin3/foundation/events"
)

// EventHandler defines a function that is called when events
// occur in the processing of the ledger.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing background mining support.
type Worker interface {
	Shutdown()
	SignalStartMining()
	SignalCancelMining()
}

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	Genesis         genesis.Genesis
	TrustOnSubmit   bool          // Accept unsigned transactions with a self-reported sender.
	MiningTimeout   time.Duration // Zero means a search runs until the caller cancels it.
	SubscriberInbox int           // Values a subscriber may hold before it is dropped.
	EvHandler       EventHandler
}

// State manages the blockchain ledger. Submissions, commits and chain
// replacement are serialized by mu, and so is any read that needs a
// consistent view across the chain and the mempool.
type State struct {
	mu       sync.RWMutex
	shutdown sync.Once

	genesis       genesis.Genesis
	trustOnSubmit bool
	miningTimeout time.Duration
	evHandler     EventHandler
	version       uint64

	db      *database.Database
	mempool *mempool.Mempool
	evts    *events.Events[Snapshot]

	Worker Worker
}

// New constructs a new ledger holding only the genesis block.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	if err := cfg.Genesis.Validate(); err != nil {
		return nil, err
	}

	// Create the State to provide support for managing the blockchain.
	state := State{
		genesis:       cfg.Genesis,
		trustOnSubmit: cfg.TrustOnSubmit,
		miningTimeout: cfg.MiningTimeout,
		evHandler:     ev,

		db:      database.New(cfg.Genesis),
		mempool: mempool.New(),

		Worker: idleWorker{},
	}

	// Subscribers always start from the latest snapshot, which is genesis
	// until the first change is published.
	state.evts = events.New(state.snapshot(), cfg.SubscriberInbox)

	ev("state: New: genesis[%s]: difficulty[%d]: trustOnSubmit[%v]", state.db.LatestBlock().Hash, cfg.Genesis.Difficulty, cfg.TrustOnSubmit)

	// The Worker is replaced by the call to worker.Run when background
	// mining is turned on.

	return &state, nil
}

// Shutdown cleanly brings the node down. Calls after the first do nothing.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	s.shutdown.Do(func() {

		// Stop all blockchain writing activity.
		s.Worker.Shutdown()

		// Release every subscriber.
		s.evts.Shutdown()
	})

	return nil
}

// =============================================================================

// publish sends the snapshot to every subscriber. It must be called after
// the ledger lock is released.
func (s *State) publish(snap Snapshot) {
	if s.evts.Send(snap.Version, snap) {
		s.evHandler("state: publish: version[%d]: blocks[%d]: pending[%d]: subscribers[%d]", snap.Version, len(snap.Chain), len(snap.Pending), s.evts.Count())
	}
}

// idleWorker is used when no background mining is running.
type idleWorker struct{}

func (idleWorker) Shutdown()           {}
func (idleWorker) SignalStartMining()  {}
func (idleWorker) SignalCancelMining() {}
