package public

import (
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/omoto202/mycoin3/business/sys/validate"
	"github.com/omoto202/mycoin3/foundation/blockchain/database"
	"github.com/shopspring/decimal"
)

// newTx is what a client submits to be added to the mempool.
type newTx struct {
	Sender          string          `json:"sender" validate:"required"`
	Recipient       string          `json:"recipient" validate:"required"`
	Amount          decimal.Decimal `json:"amount"`
	Signature       hexutil.Bytes   `json:"signature"`
	IssuerPublicKey hexutil.Bytes   `json:"issuer_public_key"`
	TimeStamp       uint64          `json:"timestamp"`
}

// Validate checks the data in the model is considered clean.
func (ntx newTx) Validate() error {
	return validate.Check(ntx)
}

func (ntx newTx) toTx() database.Tx {
	return database.Tx{
		Sender:          ntx.Sender,
		Recipient:       ntx.Recipient,
		Amount:          ntx.Amount,
		Signature:       ntx.Signature,
		IssuerPublicKey: ntx.IssuerPublicKey,
		TimeStamp:       ntx.TimeStamp,
	}
}

type submitResponse struct {
	Accepted     bool            `json:"accepted"`
	PendingCount int             `json:"pending_count"`
	Balance      decimal.Decimal `json:"balance"`
}

// =============================================================================

type mineRequest struct {
	Miner string `json:"miner" validate:"required"`
}

// Validate checks the data in the model is considered clean.
func (mr mineRequest) Validate() error {
	return validate.Check(mr)
}

type mineResponse struct {
	Block       database.Block `json:"block"`
	ChainLength int            `json:"chain_length"`
}

// =============================================================================

type syncRequest struct {
	Chain []database.Block `json:"chain" validate:"required,min=1"`
}

// Validate checks the data in the model is considered clean.
func (sr syncRequest) Validate() error {
	return validate.Check(sr)
}

type syncResponse struct {
	Adopted bool             `json:"adopted"`
	Reason  string           `json:"reason,omitempty"`
	Chain   []database.Block `json:"chain"`
}

// =============================================================================

type balanceResponse struct {
	Identity string          `json:"identity"`
	Name     string          `json:"name"`
	Balance  decimal.Decimal `json:"balance"`
}
