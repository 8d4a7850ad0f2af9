// Package signature provides helper functions for handling the blockchain
// hashing and signature needs.
package signature

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// ZeroHash represents a hash code of zeros. It is the previous hash of the
// genesis block.
const ZeroHash string = "0000000000000000000000000000000000000000000000000000000000000000"

// mycoinStamp is mixed into every digest that gets signed. This will make it
// clear that the signature comes from the mycoin ledger.
const mycoinStamp = "\x19Mycoin Signed Message:\n32"

// =============================================================================

// Hash returns the hex encoded SHA-256 of the JSON encoding of the value.
// The JSON encoding is canonical as long as the value is a struct, since
// struct fields are always encoded in declaration order.
func Hash(value any) string {
	data, err := json.Marshal(value)
	if err != nil {
		return ZeroHash
	}

	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// Sign uses the specified private key to sign the message. The signature is
// returned in the 65 byte [R|S|V] format.
func Sign(message []byte, privateKey *ecdsa.PrivateKey) ([]byte, error) {
	return crypto.Sign(stamp(message), privateKey)
}

// Verify reports whether sig is a valid signature of message by publicKey.
// Malformed keys and signatures are reported as false, never as a panic.
func Verify(publicKey []byte, sig []byte, message []byte) bool {
	switch len(sig) {
	case crypto.SignatureLength:

		// Drop the recovery id, only [R|S] takes part in verification.
		sig = sig[:crypto.RecoveryIDOffset]

	case crypto.RecoveryIDOffset:
	default:
		return false
	}

	switch len(publicKey) {
	case 33, 65:
	default:
		return false
	}

	return crypto.VerifySignature(publicKey, stamp(message), sig)
}

// PublicKeyToIdentity converts the public key into the identity string used
// as the sender and recipient of transactions.
func PublicKeyToIdentity(pk ecdsa.PublicKey) string {
	return hexutil.Encode(crypto.FromECDSAPub(&pk))
}

// PublicKeyBytes returns the uncompressed encoding of the public key that is
// carried on a signed transaction.
func PublicKeyBytes(pk ecdsa.PublicKey) []byte {
	return crypto.FromECDSAPub(&pk)
}

// =============================================================================

// stamp returns a hash of 32 bytes that represents this message with
// the mycoin stamp embedded into the final hash.
func stamp(message []byte) []byte {

	// Hash the message into a 32 byte array. This will provide
	// a data length consistency with all data.
	msgHash := crypto.Keccak256(message)

	// Hash the stamp and msgHash together in a final 32 byte array
	// that represents the message.
	return crypto.Keccak256([]byte(mycoinStamp), msgHash)
}
