package database_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/omoto202/mycoin3/foundation/blockchain/database"
	"github.com/omoto202/mycoin3/foundation/blockchain/genesis"
	"github.com/omoto202/mycoin3/foundation/blockchain/reward"
	"github.com/omoto202/mycoin3/foundation/blockchain/signature"
	"github.com/shopspring/decimal"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const pkHexKey = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"

func noop(v string, args ...any) {}

func testGenesis() genesis.Genesis {
	gen := genesis.Default()
	gen.Difficulty = 1
	return gen
}

// mine seals the next block on top of the database and writes it.
func mine(t *testing.T, db *database.Database, miner string, trans []database.Tx) database.Block {
	gen := testGenesis()

	block, err := database.POW(context.Background(), database.POWArgs{
		Miner:      miner,
		Difficulty: gen.Difficulty,
		Reward:     reward.Current(db.TotalIssued(), gen.BaseReward, gen.MaxSupply),
		PrevBlock:  db.LatestBlock(),
		Trans:      trans,
		EvHandler:  noop,
	})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to mine a block: %v", failed, err)
	}

	if err := block.ValidateBlock(db.LatestBlock(), gen.Difficulty, noop); err != nil {
		t.Fatalf("\t%s\tShould be able to validate the mined block: %v", failed, err)
	}

	db.Write(block)
	return block
}

// flipLast changes the last character of a hash.
func flipLast(hash string) string {
	last := "0"
	if strings.HasSuffix(hash, "0") {
		last = "1"
	}
	return hash[:len(hash)-1] + last
}

// =============================================================================

func Test_Genesis(t *testing.T) {
	t.Log("Given the need to build a deterministic genesis block.")
	{
		date := genesis.Default().Date

		b1 := database.NewGenesisBlock(date)
		b2 := database.NewGenesisBlock(date)

		if b1.Hash != b2.Hash {
			t.Fatalf("\t%s\tShould get the same genesis hash twice.", failed)
		}
		t.Logf("\t%s\tShould get the same genesis hash twice.", success)

		if err := b1.ValidateGenesis(); err != nil {
			t.Fatalf("\t%s\tShould be a valid genesis block: %v", failed, err)
		}
		t.Logf("\t%s\tShould be a valid genesis block.", success)

		if b1.PreviousHash != signature.ZeroHash {
			t.Fatalf("\t%s\tShould have the zero previous hash.", failed)
		}
		t.Logf("\t%s\tShould have the zero previous hash.", success)
	}
}

func Test_POW(t *testing.T) {
	t.Log("Given the need to seal blocks with proof of work.")
	{
		db := database.New(testGenesis())

		for _, difficulty := range []uint{0, 1, 2} {
			block, err := database.POW(context.Background(), database.POWArgs{
				Miner:      "M1",
				Difficulty: difficulty,
				Reward:     decimal.NewFromInt(50),
				PrevBlock:  db.LatestBlock(),
				EvHandler:  noop,
			})
			if err != nil {
				t.Fatalf("\t%s\tShould be able to mine at difficulty %d: %v", failed, difficulty, err)
			}

			if block.ComputeHash() != block.Hash {
				t.Fatalf("\t%s\tShould reproduce the block hash at difficulty %d.", failed, difficulty)
			}

			if !strings.HasPrefix(block.Hash, strings.Repeat("0", int(difficulty))) {
				t.Fatalf("\t%s\tShould have %d leading zeros: %s", failed, difficulty, block.Hash)
			}

			if block.Index != 1 || block.PreviousHash != db.LatestBlock().Hash {
				t.Fatalf("\t%s\tShould link the block to the tip.", failed)
			}

			if !block.Transactions[0].IsCoinbase() || block.Transactions[0].Recipient != "M1" {
				t.Fatalf("\t%s\tShould put the coinbase first.", failed)
			}
			t.Logf("\t%s\tShould be able to mine at difficulty %d.", success, difficulty)
		}
	}
}

func Test_POWCancel(t *testing.T) {
	t.Log("Given the need to abandon a proof of work search.")
	{
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := database.POW(ctx, database.POWArgs{
			Miner:      "M1",
			Difficulty: 64,
			Reward:     decimal.NewFromInt(50),
			PrevBlock:  database.NewGenesisBlock(time.Now()),
			EvHandler:  noop,
		})
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("\t%s\tShould get a deadline error, got %v.", failed, err)
		}
		t.Logf("\t%s\tShould get a deadline error.", success)
	}
}

func Test_Transactions(t *testing.T) {
	t.Log("Given the need to apply mined transactions to balances.")
	{
		db := database.New(testGenesis())

		mine(t, db, "M1", nil)
		if !db.Balance("M1").Equal(decimal.NewFromInt(50)) {
			t.Fatalf("\t%s\tShould credit the miner with the reward: %s", failed, db.Balance("M1"))
		}
		t.Logf("\t%s\tShould credit the miner with the reward.", success)

		tx := database.NewTx("M1", "A", decimal.NewFromInt(10))
		mine(t, db, "M2", []database.Tx{tx})

		final := map[string]string{"M1": "40", "A": "10", "M2": "50"}
		for id, exp := range final {
			if got := db.Balance(id); !got.Equal(decimal.RequireFromString(exp)) {
				t.Fatalf("\t%s\tShould have balance %s for %s, got %s.", failed, exp, id, got)
			}
		}
		t.Logf("\t%s\tShould apply the transfer to both parties.", success)

		if !db.TotalIssued().Equal(database.TotalIssued(db.Chain())) {
			t.Fatalf("\t%s\tShould keep issuance equal to a recomputation.", failed)
		}
		t.Logf("\t%s\tShould keep issuance equal to a recomputation.", success)
	}
}

func Test_ValidateChain(t *testing.T) {
	t.Log("Given the need to validate a candidate chain.")
	{
		gen := testGenesis()
		db := database.New(gen)
		mine(t, db, "M1", nil)
		mine(t, db, "M1", []database.Tx{database.NewTx("M1", "A", decimal.NewFromInt(5))})

		if err := database.ValidateChain(db.Chain(), gen, noop); err != nil {
			t.Fatalf("\t%s\tShould accept a mined chain: %v", failed, err)
		}
		t.Logf("\t%s\tShould accept a mined chain.", success)

		tt := []struct {
			name   string
			tamper func(chain []database.Block)
		}{
			{"tampered hash", func(c []database.Block) { c[1].Hash = flipLast(c[1].Hash) }},
			{"tampered amount", func(c []database.Block) {
				trans := append([]database.Tx{}, c[2].Transactions...)
				trans[1].Amount = decimal.NewFromInt(500)
				c[2].Transactions = trans
			}},
			{"broken link", func(c []database.Block) { c[2].PreviousHash = signature.ZeroHash }},
			{"bad genesis", func(c []database.Block) { c[0].PreviousHash = c[1].Hash }},
			{"foreign genesis", func(c []database.Block) { c[0] = database.NewGenesisBlock(gen.Date.Add(time.Hour)) }},
		}

		for testID, tst := range tt {
			chain := db.Chain()
			tst.tamper(chain)

			if err := database.ValidateChain(chain, gen, noop); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould reject a chain with a %s.", failed, testID, tst.name)
			}
			t.Logf("\t%s\tTest %d:\tShould reject a chain with a %s.", success, testID, tst.name)
		}

		if err := database.ValidateChain(nil, gen, noop); err == nil {
			t.Fatalf("\t%s\tShould reject an empty chain.", failed)
		}
		t.Logf("\t%s\tShould reject an empty chain.", success)
	}
}

func Test_ValidateCoinbase(t *testing.T) {
	t.Log("Given the need to reject blocks that over issue.")
	{
		gen := testGenesis()
		db := database.New(gen)

		block, err := database.POW(context.Background(), database.POWArgs{
			Miner:      "M1",
			Difficulty: gen.Difficulty,
			Reward:     decimal.NewFromInt(1_000_000),
			PrevBlock:  db.LatestBlock(),
			EvHandler:  noop,
		})
		if err != nil {
			t.Fatalf("\t%s\tShould be able to mine a block: %v", failed, err)
		}

		chain := append(db.Chain(), block)
		if err := database.ValidateChain(chain, gen, noop); err == nil {
			t.Fatalf("\t%s\tShould reject a coinbase above the schedule.", failed)
		}
		t.Logf("\t%s\tShould reject a coinbase above the schedule.", success)
	}
}

func Test_ValidateAmounts(t *testing.T) {
	t.Log("Given the need to reject blocks that move invalid amounts.")
	{
		gen := testGenesis()

		tt := []struct {
			name   string
			amount string
		}{
			{"negative amount", "-1000"},
			{"zero amount", "0"},
		}

		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling a block with a %s.", testID, tst.name)
			{
				db := database.New(gen)

				block, err := database.POW(context.Background(), database.POWArgs{
					Miner:      "Attacker",
					Difficulty: gen.Difficulty,
					Reward:     reward.Current(db.TotalIssued(), gen.BaseReward, gen.MaxSupply),
					PrevBlock:  db.LatestBlock(),
					Trans:      []database.Tx{database.NewTx("Attacker", "Victim", decimal.RequireFromString(tst.amount))},
					EvHandler:  noop,
				})
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to mine a block: %v", failed, testID, err)
				}

				if err := block.ValidateBlock(db.LatestBlock(), gen.Difficulty, noop); err == nil {
					t.Fatalf("\t%s\tTest %d:\tShould reject the block.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould reject the block.", success, testID)

				chain := append(db.Chain(), block)
				if err := database.ValidateChain(chain, gen, noop); err == nil {
					t.Fatalf("\t%s\tTest %d:\tShould reject the chain.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould reject the chain.", success, testID)
			}
		}
	}
}

func Test_SignedTx(t *testing.T) {
	t.Log("Given the need to sign and verify transactions.")
	{
		pk, err := crypto.HexToECDSA(pkHexKey)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to load the key: %v", failed, err)
		}

		tx, err := database.NewTx("", "A", decimal.RequireFromString("10.50")).Sign(pk)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to sign the transaction: %v", failed, err)
		}

		if tx.Sender != signature.PublicKeyToIdentity(pk.PublicKey) || tx.IssuerIdentity() != tx.Sender {
			t.Fatalf("\t%s\tShould set the sender to the key identity.", failed)
		}
		t.Logf("\t%s\tShould set the sender to the key identity.", success)

		if !tx.VerifySignature() {
			t.Fatalf("\t%s\tShould verify the signature.", failed)
		}
		t.Logf("\t%s\tShould verify the signature.", success)

		if string(tx.Message()) != `{"sender":"`+tx.Sender+`","recipient":"A","amount":"10.5"}` {
			t.Fatalf("\t%s\tShould get the canonical message: %s", failed, tx.Message())
		}
		t.Logf("\t%s\tShould get the canonical message.", success)

		tx.Amount = decimal.NewFromInt(11)
		if tx.VerifySignature() {
			t.Fatalf("\t%s\tShould not verify a modified transaction.", failed)
		}
		t.Logf("\t%s\tShould not verify a modified transaction.", success)
	}
}
