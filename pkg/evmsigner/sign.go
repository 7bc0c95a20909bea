package evmsigner

import (
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/cypherock/x1wallet/pkg/cryptokit"
)

// SignDigest derives the BIP-44 "m/44'/60'/.../.../..." key at path from
// seed and signs a 32-byte digest, returning the 65-byte r‖s‖v signature
// go-ethereum's ecrecover expects (v ∈ {0,1}), the same shape hdwallet.go
// relied on crypto.Sign to produce.
func SignDigest(seed []byte, path []uint32, digest [32]byte) ([65]byte, error) {
	var sig [65]byte
	if err := ValidateDerivationPath(path); err != nil {
		return sig, err
	}
	master, err := cryptokit.NewMasterNode(seed)
	if err != nil {
		return sig, err
	}
	node, err := master.DerivePath(path)
	if err != nil {
		return sig, err
	}
	priv, err := node.ECPrivateKey()
	if err != nil {
		return sig, err
	}
	raw, err := crypto.Sign(digest[:], priv)
	if err != nil {
		return sig, err
	}
	copy(sig[:], raw)
	return sig, nil
}
