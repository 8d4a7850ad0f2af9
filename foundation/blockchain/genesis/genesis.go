// Package genesis maintains access to the genesis file.
package genesis

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
)

// Genesis represents the genesis file.
type Genesis struct {
	Date       time.Time       `json:"date"`        // Timestamp of the genesis block, shared by every node.
	Difficulty uint            `json:"difficulty"`  // Number of leading 0's needed to solve the hash solution.
	BaseReward decimal.Decimal `json:"base_reward"` // Subsidy for mining a block before any halving.
	MaxSupply  decimal.Decimal `json:"max_supply"`  // Hard cap on the total amount ever issued.
}

// Default returns the genesis information used when no file is provided.
func Default() Genesis {
	return Genesis{
		Date:       time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		Difficulty: 3,
		BaseReward: decimal.NewFromInt(50),
		MaxSupply:  decimal.NewFromInt(21_000_000),
	}
}

// =============================================================================

// Load opens and consumes the genesis file. Fields missing from the file
// keep their default values.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	genesis := Default()
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, err
	}

	if err := genesis.Validate(); err != nil {
		return Genesis{}, err
	}

	return genesis, nil
}

// Validate checks the genesis values are usable by the ledger.
func (g Genesis) Validate() error {
	if g.Difficulty > 64 {
		return fmt.Errorf("difficulty %d is larger than the hash length", g.Difficulty)
	}

	if !g.BaseReward.IsPositive() {
		return fmt.Errorf("base reward must be positive, got %s", g.BaseReward)
	}

	if !g.MaxSupply.IsPositive() {
		return fmt.Errorf("max supply must be positive, got %s", g.MaxSupply)
	}

	return nil
}
