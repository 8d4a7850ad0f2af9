package signature_test

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/omoto202/mycoin3/foundation/blockchain/signature"
)

const (
	pkHexKey = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
)

// =============================================================================

func Test_Signing(t *testing.T) {
	message := []byte(`{"sender":"a","recipient":"b","amount":"10"}`)

	pk, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to generate a private key: %s", err)
	}

	sig, err := signature.Sign(message, pk)
	if err != nil {
		t.Fatalf("Should be able to sign data: %s", err)
	}

	pub := signature.PublicKeyBytes(pk.PublicKey)
	if !signature.Verify(pub, sig, message) {
		t.Fatalf("Should be able to verify the signature.")
	}

	if !signature.Verify(crypto.CompressPubkey(&pk.PublicKey), sig[:64], message) {
		t.Fatalf("Should be able to verify with a compressed key and a 64 byte signature.")
	}

	other := []byte(`{"sender":"a","recipient":"b","amount":"11"}`)
	if signature.Verify(pub, sig, other) {
		t.Fatalf("Should not verify a signature over different data.")
	}
}

func Test_VerifyMalformed(t *testing.T) {
	message := []byte("value")

	pk, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to generate a private key: %s", err)
	}
	pub := signature.PublicKeyBytes(pk.PublicKey)

	sig, err := signature.Sign(message, pk)
	if err != nil {
		t.Fatalf("Should be able to sign data: %s", err)
	}

	tt := []struct {
		name string
		pub  []byte
		sig  []byte
	}{
		{"nil key", nil, sig},
		{"short key", pub[:10], sig},
		{"garbage key", make([]byte, 65), sig},
		{"nil signature", pub, nil},
		{"short signature", pub, sig[:20]},
		{"zero signature", pub, make([]byte, 65)},
	}

	for _, tst := range tt {
		if signature.Verify(tst.pub, tst.sig, message) {
			t.Fatalf("Should not verify with %s.", tst.name)
		}
	}
}

func Test_WrongKey(t *testing.T) {
	message := []byte("value")

	pk, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to generate a private key: %s", err)
	}

	other, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("Should be able to generate a private key: %s", err)
	}

	sig, err := signature.Sign(message, pk)
	if err != nil {
		t.Fatalf("Should be able to sign data: %s", err)
	}

	if signature.Verify(signature.PublicKeyBytes(other.PublicKey), sig, message) {
		t.Fatalf("Should not verify against another key.")
	}
}

func Test_Hash(t *testing.T) {
	value := struct {
		Name string
	}{
		Name: "Bill",
	}

	h := signature.Hash(value)
	if len(h) != 64 {
		t.Fatalf("Should get back a 64 character hash: %d", len(h))
	}

	if h2 := signature.Hash(value); h != h2 {
		t.Logf("got: %s", h2)
		t.Logf("exp: %s", h)
		t.Fatalf("Should get back the same hash twice.")
	}

	if strings.ToLower(h) != h {
		t.Fatalf("Should get back a lower case hash.")
	}
}

func Test_Identity(t *testing.T) {
	pk, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to generate a private key: %s", err)
	}

	id := signature.PublicKeyToIdentity(pk.PublicKey)
	if !strings.HasPrefix(id, "0x04") || len(id) != 132 {
		t.Fatalf("Should get back the uncompressed hex public key: %s", id)
	}
}
