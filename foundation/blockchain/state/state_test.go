package state_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/omoto202/mycoin3/foundation/blockchain/database"
	"github.com/omoto202/mycoin3/foundation/blockchain/genesis"
	"github.com/omoto202/mycoin3/foundation/blockchain/reward"
	"github.com/omoto202/mycoin3/foundation/blockchain/signature"
	"github.com/omoto202/mycoin3/foundation/blockchain/state"
	"github.com/shopspring/decimal"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const (
	minerECDSA = "8dc79feefd3b86e2f9991def0e5ccd9a5128e104682407b308594bc1032ac7f0"
)

func ifErrFailNow(t *testing.T, err error) {
	if err != nil {
		t.Error(err)
		t.FailNow()
	}
}

func newState(t *testing.T, trustOnSubmit bool) *state.State {
	gen := genesis.Default()
	gen.Difficulty = 1

	s, err := state.New(state.Config{
		Genesis:       gen,
		TrustOnSubmit: trustOnSubmit,
		EvHandler:     func(v string, args ...any) { t.Logf(v, args...) },
	})
	ifErrFailNow(t, err)

	return s
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func mine(t *testing.T, s *state.State, miner string) database.Block {
	block, err := s.MineNewBlock(context.Background(), miner)
	ifErrFailNow(t, err)
	return block
}

// checkIssuance validates the cached issuance against a fresh recomputation
// and the supply cap.
func checkIssuance(t *testing.T, s *state.State) {
	snap := s.RetrieveSnapshot()

	if !snap.TotalIssued.Equal(database.TotalIssued(snap.Chain)) {
		t.Fatalf("\t%s\tShould keep issuance equal to a recomputation: cached %s, recomputed %s", failed, snap.TotalIssued, database.TotalIssued(snap.Chain))
	}

	if snap.TotalIssued.GreaterThan(snap.MaxSupply) {
		t.Fatalf("\t%s\tShould never issue more than the cap: %s", failed, snap.TotalIssued)
	}
}

// =============================================================================

func Test_MineAndTransfer(t *testing.T) {
	t.Log("Given the need to mine blocks and transfer funds.")
	{
		s := newState(t, true)
		base := s.RetrieveGenesis().BaseReward

		_, err := s.SubmitTransaction(database.NewTx("M1", "A", decimal.Zero))
		if !errors.Is(err, state.ErrInvalidAmount) {
			t.Fatalf("\t%s\tShould reject a zero amount, got %v.", failed, err)
		}
		t.Logf("\t%s\tShould reject a zero amount.", success)

		_, err = s.SubmitTransaction(database.NewTx(database.SystemIdentity, "A", dec("1")))
		if !errors.Is(err, state.ErrReservedSender) {
			t.Fatalf("\t%s\tShould reject the reserved sender, got %v.", failed, err)
		}
		t.Logf("\t%s\tShould reject the reserved sender.", success)

		mine(t, s, "M1")
		if l := len(s.RetrieveSnapshot().Chain); l != 2 {
			t.Fatalf("\t%s\tShould have a chain of length 2, got %d.", failed, l)
		}
		if !s.QueryBalance("M1").Equal(base) {
			t.Fatalf("\t%s\tShould credit M1 with the base reward, got %s.", failed, s.QueryBalance("M1"))
		}
		t.Logf("\t%s\tShould credit M1 with the base reward.", success)

		receipt, err := s.SubmitTransaction(database.NewTx("M1", "A", dec("10")))
		ifErrFailNow(t, err)

		exp := base.Sub(dec("10"))
		if !receipt.Balance.Equal(exp) || !s.QueryBalance("M1").Equal(exp) {
			t.Fatalf("\t%s\tShould report M1 balance %s before mining, got %s.", failed, exp, s.QueryBalance("M1"))
		}
		if !s.QueryBalance("A").IsZero() {
			t.Fatalf("\t%s\tShould not count pending incoming funds, got %s.", failed, s.QueryBalance("A"))
		}
		t.Logf("\t%s\tShould deduct pending outgoing funds only.", success)

		block := mine(t, s, "M1")
		if len(block.Transactions) != 2 || !block.Transactions[0].IsCoinbase() || block.Transactions[1].Recipient != "A" {
			t.Fatalf("\t%s\tShould mine the coinbase and the transfer, got %v.", failed, block.Transactions)
		}
		if s.QueryMempoolLength() != 0 {
			t.Fatalf("\t%s\tShould empty the mempool.", failed)
		}
		t.Logf("\t%s\tShould mine the coinbase and the transfer.", success)

		if !s.QueryBalance("A").Equal(dec("10")) || !s.QueryBalance("M1").Equal(base.Mul(dec("2")).Sub(dec("10"))) {
			t.Fatalf("\t%s\tShould apply the transfer after commit: M1 %s, A %s.", failed, s.QueryBalance("M1"), s.QueryBalance("A"))
		}
		t.Logf("\t%s\tShould apply the transfer after commit.", success)

		checkIssuance(t, s)
		t.Logf("\t%s\tShould keep issuance consistent.", success)
	}
}

func Test_InsufficientBalance(t *testing.T) {
	t.Log("Given the need to reject spending more than the balance.")
	{
		s := newState(t, true)
		mine(t, s, "M1")

		_, err := s.SubmitTransaction(database.NewTx("M1", "A", dec("30")))
		ifErrFailNow(t, err)

		_, err = s.SubmitTransaction(database.NewTx("M1", "B", dec("30")))

		var ibe *state.InsufficientBalanceError
		if !errors.As(err, &ibe) || !errors.Is(err, state.ErrInsufficientBalance) {
			t.Fatalf("\t%s\tShould reject the second spend, got %v.", failed, err)
		}
		if !ibe.Balance.Equal(dec("20")) {
			t.Fatalf("\t%s\tShould report the available balance, got %s.", failed, ibe.Balance)
		}
		t.Logf("\t%s\tShould reject the second spend with the available balance.", success)
	}
}

func Test_ConcurrentSubmit(t *testing.T) {
	t.Log("Given the need to never admit a double spend.")
	{
		s := newState(t, true)
		mine(t, s, "M1")

		const attempts = 20

		var wg sync.WaitGroup
		var mu sync.Mutex
		var accepted int

		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := s.SubmitTransaction(database.NewTx("M1", "A", dec("10"))); err == nil {
					mu.Lock()
					accepted++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		if accepted != 5 {
			t.Fatalf("\t%s\tShould accept exactly 5 transfers of 10 from 50, got %d.", failed, accepted)
		}
		if !s.QueryBalance("M1").IsZero() {
			t.Fatalf("\t%s\tShould leave a zero balance, got %s.", failed, s.QueryBalance("M1"))
		}
		t.Logf("\t%s\tShould accept exactly 5 transfers.", success)
	}
}

func Test_SignedSubmit(t *testing.T) {
	t.Log("Given the need to verify signatures on submission.")
	{
		s := newState(t, false)

		key, err := crypto.HexToECDSA(minerECDSA)
		ifErrFailNow(t, err)
		id := signature.PublicKeyToIdentity(key.PublicKey)

		other, err := crypto.GenerateKey()
		ifErrFailNow(t, err)

		mine(t, s, id)

		_, err = s.SubmitTransaction(database.NewTx(id, "A", dec("1")))
		if !errors.Is(err, state.ErrMissingField) {
			t.Fatalf("\t%s\tShould require a signature, got %v.", failed, err)
		}
		t.Logf("\t%s\tShould require a signature.", success)

		signed, err := database.NewTx("", "A", dec("1")).Sign(key)
		ifErrFailNow(t, err)

		tampered := signed
		tampered.Amount = dec("2")
		if _, err := s.SubmitTransaction(tampered); !errors.Is(err, state.ErrInvalidSignature) {
			t.Fatalf("\t%s\tShould reject a tampered transaction, got %v.", failed, err)
		}
		t.Logf("\t%s\tShould reject a tampered transaction.", success)

		forged, err := database.NewTx("", "A", dec("1")).Sign(other)
		ifErrFailNow(t, err)
		forged.Sender = id
		forged.Signature, err = signature.Sign(forged.Message(), other)
		ifErrFailNow(t, err)
		if _, err := s.SubmitTransaction(forged); !errors.Is(err, state.ErrIdentityMismatch) {
			t.Fatalf("\t%s\tShould reject a signer that is not the sender, got %v.", failed, err)
		}
		t.Logf("\t%s\tShould reject a signer that is not the sender.", success)

		if _, err := s.SubmitTransaction(signed); err != nil {
			t.Fatalf("\t%s\tShould accept a properly signed transaction: %v", failed, err)
		}
		t.Logf("\t%s\tShould accept a properly signed transaction.", success)
	}
}

func Test_TrustOnSubmitVerifiesSupplied(t *testing.T) {
	t.Log("Given the need to verify supplied signatures when trusting submitters.")
	{
		s := newState(t, true)

		key, err := crypto.HexToECDSA(minerECDSA)
		ifErrFailNow(t, err)
		mine(t, s, signature.PublicKeyToIdentity(key.PublicKey))

		signed, err := database.NewTx("", "A", dec("1")).Sign(key)
		ifErrFailNow(t, err)
		signed.Recipient = "B"

		if _, err := s.SubmitTransaction(signed); !errors.Is(err, state.ErrInvalidSignature) {
			t.Fatalf("\t%s\tShould still reject a bad signature, got %v.", failed, err)
		}
		t.Logf("\t%s\tShould still reject a bad signature.", success)
	}
}

func Test_AdoptChain(t *testing.T) {
	t.Log("Given the need to adopt a longer valid chain.")
	{
		local := newState(t, true)
		remote := newState(t, true)

		mine(t, local, "L")
		mine(t, remote, "R")

		adopted, err := local.AdoptChain(remote.RetrieveSnapshot().Chain)
		if adopted || !errors.Is(err, state.ErrChainNotLonger) {
			t.Fatalf("\t%s\tShould not adopt a chain of equal length, got %v %v.", failed, adopted, err)
		}
		t.Logf("\t%s\tShould not adopt a chain of equal length.", success)

		mine(t, remote, "R")

		tampered := remote.RetrieveSnapshot().Chain
		tampered[1].Hash = signature.ZeroHash
		adopted, err = local.AdoptChain(tampered)
		if adopted || !errors.Is(err, state.ErrInvalidCandidateChain) {
			t.Fatalf("\t%s\tShould not adopt a chain with a tampered hash, got %v %v.", failed, adopted, err)
		}
		t.Logf("\t%s\tShould not adopt a chain with a tampered hash.", success)

		_, err = local.SubmitTransaction(database.NewTx("L", "A", dec("5")))
		ifErrFailNow(t, err)

		candidate := remote.RetrieveSnapshot().Chain
		adopted, err = local.AdoptChain(candidate)
		if !adopted || err != nil {
			t.Fatalf("\t%s\tShould adopt a longer valid chain: %v", failed, err)
		}
		t.Logf("\t%s\tShould adopt a longer valid chain.", success)

		snap := local.RetrieveSnapshot()
		if len(snap.Chain) != 3 || len(snap.Pending) != 0 {
			t.Fatalf("\t%s\tShould replace the chain and clear pending: blocks %d, pending %d.", failed, len(snap.Chain), len(snap.Pending))
		}
		if !local.QueryBalance("L").IsZero() || !local.QueryBalance("R").Equal(dec("100")) {
			t.Fatalf("\t%s\tShould recompute balances: L %s, R %s.", failed, local.QueryBalance("L"), local.QueryBalance("R"))
		}
		checkIssuance(t, local)
		t.Logf("\t%s\tShould recompute balances and issuance.", success)

		adopted, err = local.AdoptChain(candidate)
		if adopted || !errors.Is(err, state.ErrChainNotLonger) {
			t.Fatalf("\t%s\tShould not adopt the same chain twice, got %v %v.", failed, adopted, err)
		}
		t.Logf("\t%s\tShould not adopt the same chain twice.", success)
	}
}

func Test_Subscribe(t *testing.T) {
	t.Log("Given the need to notify observers of ledger changes.")
	{
		s := newState(t, true)
		defer s.Shutdown()

		sub := s.Subscribe()
		defer s.Unsubscribe(sub.ID)

		first := <-sub.C
		if len(first.Chain) != 1 {
			t.Fatalf("\t%s\tShould receive the full snapshot first, got %d blocks.", failed, len(first.Chain))
		}
		t.Logf("\t%s\tShould receive the full snapshot first.", success)

		mine(t, s, "M1")

		select {
		case next := <-sub.C:
			if next.Version <= first.Version || len(next.Chain) != 2 {
				t.Fatalf("\t%s\tShould receive the committed block: version %d, blocks %d.", failed, next.Version, len(next.Chain))
			}
		case <-time.After(time.Second):
			t.Fatalf("\t%s\tShould receive a snapshot after a commit.", failed)
		}
		t.Logf("\t%s\tShould receive a snapshot after a commit.", success)
	}
}

func Test_MiningTimeout(t *testing.T) {
	t.Log("Given the need to abandon a runaway search.")
	{
		gen := genesis.Default()
		gen.Difficulty = 64

		s, err := state.New(state.Config{
			Genesis:       gen,
			MiningTimeout: 50 * time.Millisecond,
		})
		ifErrFailNow(t, err)

		_, err = s.MineNewBlock(context.Background(), "M1")
		if !errors.Is(err, state.ErrMiningFailed) || !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("\t%s\tShould fail with a timeout, got %v.", failed, err)
		}
		if l := len(s.RetrieveSnapshot().Chain); l != 1 {
			t.Fatalf("\t%s\tShould leave the chain untouched, got %d blocks.", failed, l)
		}
		t.Logf("\t%s\tShould fail with a timeout and leave the chain untouched.", success)

		if _, err := s.MineNewBlock(context.Background(), ""); !errors.Is(err, state.ErrMissingField) {
			t.Fatalf("\t%s\tShould require a miner, got %v.", failed, err)
		}
		t.Logf("\t%s\tShould require a miner.", success)
	}
}

func Test_ResetMempool(t *testing.T) {
	t.Log("Given the need to drop pending transactions.")
	{
		s := newState(t, true)
		mine(t, s, "M1")

		_, err := s.SubmitTransaction(database.NewTx("M1", "A", dec("10")))
		ifErrFailNow(t, err)

		s.ResetMempool()
		if s.QueryMempoolLength() != 0 || !s.QueryBalance("M1").Equal(dec("50")) {
			t.Fatalf("\t%s\tShould drop pending and restore the balance: %s.", failed, s.QueryBalance("M1"))
		}
		t.Logf("\t%s\tShould drop pending and restore the balance.", success)
	}
}

func Test_AdoptChainInvalidAmount(t *testing.T) {
	t.Log("Given the need to refuse a chain that mints value through a transfer.")
	{
		s := newState(t, false)
		gen := s.RetrieveGenesis()

		block, err := database.POW(context.Background(), database.POWArgs{
			Miner:      "Attacker",
			Difficulty: gen.Difficulty,
			Reward:     reward.Current(decimal.Zero, gen.BaseReward, gen.MaxSupply),
			PrevBlock:  s.RetrieveLatestBlock(),
			Trans:      []database.Tx{database.NewTx("Attacker", "Victim", dec("-1000"))},
		})
		ifErrFailNow(t, err)

		candidate := append(s.RetrieveSnapshot().Chain, block)

		adopted, err := s.AdoptChain(candidate)
		if adopted || !errors.Is(err, state.ErrInvalidCandidateChain) {
			t.Fatalf("\t%s\tShould not adopt the chain, got %v %v.", failed, adopted, err)
		}
		t.Logf("\t%s\tShould not adopt the chain.", success)

		if l := s.QueryChainLength(); l != 1 || !s.QueryBalance("Victim").IsZero() || !s.QueryBalance("Attacker").IsZero() {
			t.Fatalf("\t%s\tShould leave the ledger untouched: blocks %d, Victim %s.", failed, l, s.QueryBalance("Victim"))
		}
		t.Logf("\t%s\tShould leave the ledger untouched.", success)
	}
}

func Test_RetrieveAccounts(t *testing.T) {
	t.Log("Given the need to list the sealed balances.")
	{
		s := newState(t, true)
		mine(t, s, "M1")

		_, err := s.SubmitTransaction(database.NewTx("M1", "A", dec("10")))
		ifErrFailNow(t, err)

		accounts := s.RetrieveAccounts()
		if len(accounts) != 1 || !accounts["M1"].Equal(dec("50")) {
			t.Fatalf("\t%s\tShould list only sealed balances, got %v.", failed, accounts)
		}
		t.Logf("\t%s\tShould list only sealed balances.", success)

		mine(t, s, "M1")

		accounts = s.RetrieveAccounts()
		if !accounts["M1"].Equal(dec("90")) || !accounts["A"].Equal(dec("10")) {
			t.Fatalf("\t%s\tShould list balances after the commit, got %v.", failed, accounts)
		}
		if s.QueryChainLength() != 3 {
			t.Fatalf("\t%s\tShould report the chain length, got %d.", failed, s.QueryChainLength())
		}
		t.Logf("\t%s\tShould list balances after the commit.", success)
	}
}
