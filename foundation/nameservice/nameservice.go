// Package nameservice reads the zblock/accounts folder and creates a name
// service lookup for the wallet identities.
package nameservice

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/omoto202/mycoin3/foundation/blockchain/signature"
)

// NameService maintains a map of identities for name lookup.
type NameService struct {
	names      map[string]string
	identities map[string]string
}

// New constructs a Name Service with identities from the key files found
// under root. A missing root produces an empty name service.
func New(root string) (*NameService, error) {
	ns := NameService{
		names:      make(map[string]string),
		identities: make(map[string]string),
	}

	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		return &ns, nil
	}

	fn := func(fileName string, info fs.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("walkdir failure: %w", err)
		}

		if path.Ext(fileName) != ".ecdsa" {
			return nil
		}

		privateKey, err := crypto.LoadECDSA(fileName)
		if err != nil {
			return err
		}

		id := signature.PublicKeyToIdentity(privateKey.PublicKey)
		name := strings.TrimSuffix(path.Base(fileName), ".ecdsa")

		ns.names[id] = name
		ns.identities[name] = id

		return nil
	}

	if err := filepath.Walk(root, fn); err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	return &ns, nil
}

// Lookup returns the name for the specified identity.
func (ns *NameService) Lookup(id string) string {
	name, exists := ns.names[id]
	if !exists {
		return id
	}
	return name
}

// Resolve returns the identity behind a known name. Anything else is
// returned as is, so identities pass through untouched.
func (ns *NameService) Resolve(nameOrID string) string {
	id, exists := ns.identities[nameOrID]
	if !exists {
		return nameOrID
	}
	return id
}

// Copy returns a copy of the map of identities and names.
func (ns *NameService) Copy() map[string]string {
	cpy := make(map[string]string, len(ns.names))
	for id, name := range ns.names {
		cpy[id] = name
	}
	return cpy
}
