package database

import (
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/omoto202/mycoin3/foundation/blockchain/signature"
	"github.com/shopspring/decimal"
)

// SystemIdentity is the reserved sender of coinbase transactions.
const SystemIdentity = "SYSTEM"

// =============================================================================

// Tx is the transactional information between two parties. The field order
// is part of the block hash and must not change.
type Tx struct {
	Sender          string          `json:"sender"`                      // Identity paying the amount, SystemIdentity for coinbase.
	Recipient       string          `json:"recipient"`                   // Identity receiving the amount.
	Amount          decimal.Decimal `json:"amount"`                      // Value moved by this transaction.
	Signature       hexutil.Bytes   `json:"signature,omitempty"`         // [R|S|V] signature over Message, absent for coinbase.
	IssuerPublicKey hexutil.Bytes   `json:"issuer_public_key,omitempty"` // Public key that produced the signature.
	TimeStamp       uint64          `json:"timestamp"`                   // Time the transaction was created, informational only.
}

// NewTx constructs a new unsigned transaction.
func NewTx(sender string, recipient string, amount decimal.Decimal) Tx {
	return Tx{
		Sender:    sender,
		Recipient: recipient,
		Amount:    amount,
		TimeStamp: uint64(time.Now().UTC().Unix()),
	}
}

// NewCoinbaseTx constructs the transaction crediting the miner with the
// block subsidy.
func NewCoinbaseTx(miner string, amount decimal.Decimal, timeStamp uint64) Tx {
	return Tx{
		Sender:    SystemIdentity,
		Recipient: miner,
		Amount:    amount,
		TimeStamp: timeStamp,
	}
}

// IsCoinbase reports whether the transaction was issued by the system.
func (tx Tx) IsCoinbase() bool {
	return tx.Sender == SystemIdentity
}

// Message returns the canonical encoding of the fields covered by the
// signature. The timestamp and signature are not covered.
func (tx Tx) Message() []byte {
	msg := struct {
		Sender    string `json:"sender"`
		Recipient string `json:"recipient"`
		Amount    string `json:"amount"`
	}{
		Sender:    tx.Sender,
		Recipient: tx.Recipient,
		Amount:    tx.Amount.String(),
	}

	// Marshal can't fail for a struct of strings.
	data, _ := json.Marshal(msg)
	return data
}

// Sign uses the specified private key to sign the transaction. The sender
// is replaced with the identity of the key.
func (tx Tx) Sign(privateKey *ecdsa.PrivateKey) (Tx, error) {
	tx.Sender = signature.PublicKeyToIdentity(privateKey.PublicKey)

	sig, err := signature.Sign(tx.Message(), privateKey)
	if err != nil {
		return Tx{}, err
	}

	tx.Signature = sig
	tx.IssuerPublicKey = signature.PublicKeyBytes(privateKey.PublicKey)

	return tx, nil
}

// IsSigned reports whether the transaction carries a signature.
func (tx Tx) IsSigned() bool {
	return len(tx.Signature) > 0
}

// VerifySignature checks the signature against the issuer public key.
func (tx Tx) VerifySignature() bool {
	return signature.Verify(tx.IssuerPublicKey, tx.Signature, tx.Message())
}

// IssuerIdentity returns the identity string of the issuer public key.
func (tx Tx) IssuerIdentity() string {
	return hexutil.Encode(tx.IssuerPublicKey)
}

// String implements the fmt.Stringer interface for logging.
func (tx Tx) String() string {
	return fmt.Sprintf("%s->%s:%s", short(tx.Sender), short(tx.Recipient), tx.Amount)
}

// short trims long identities for logging.
func short(id string) string {
	if len(id) > 10 {
		return id[:10]
	}
	return id
}
