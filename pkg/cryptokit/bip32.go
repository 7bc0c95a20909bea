package cryptokit

import (
	"crypto/ecdsa"

	btcec_ecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
)

// HardenedOffset is the child index at and above which derivation is
// "hardened" (private-key-only), per BIP-32.
const HardenedOffset = uint32(1) << 31

// HDNode wraps a btcutil extended key, exposing only the private/public
// derivation semantics spec §4.2 requires: hardened segments are only valid
// on the private path, derive-from-public never panics on a hardened index,
// it reports ErrHardenedFromPublic.
type HDNode struct {
	key *hdkeychain.ExtendedKey
}

// NewMasterNode builds the root of the HD tree from a BIP-39 seed, per
// spec §4.2 and hdwallet.go's newWallet.
func NewMasterNode(seed []byte) (*HDNode, error) {
	key, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, err
	}
	return &HDNode{key: key}, nil
}

// IsPrivate reports whether the node carries private key material.
func (n *HDNode) IsPrivate() bool {
	return n.key.IsPrivate()
}

// Neuter strips private key material, returning a public-only node that can
// still derive non-hardened children.
func (n *HDNode) Neuter() (*HDNode, error) {
	pub, err := n.key.Neuter()
	if err != nil {
		return nil, err
	}
	return &HDNode{key: pub}, nil
}

// DeriveChild derives a single child at the given BIP-32 index. Hardened
// indices (index >= HardenedOffset) require a private node; attempting to
// derive one from a public-only node returns ErrHardenedFromPublic instead
// of the underlying library's generic error, per spec §4.2.
func (n *HDNode) DeriveChild(index uint32) (*HDNode, error) {
	if index >= HardenedOffset && !n.key.IsPrivate() {
		return nil, ErrHardenedFromPublic
	}
	child, err := n.key.Derive(index)
	if err != nil {
		return nil, err
	}
	return &HDNode{key: child}, nil
}

// DerivePath walks a full derivation path from the current node.
func (n *HDNode) DerivePath(path []uint32) (*HDNode, error) {
	cur := n
	for _, idx := range path {
		next, err := cur.DeriveChild(idx)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// ECPrivateKey returns the node's ECDSA private key. Only valid for
// private nodes.
func (n *HDNode) ECPrivateKey() (*ecdsa.PrivateKey, error) {
	priv, err := n.key.ECPrivKey()
	if err != nil {
		return nil, err
	}
	return priv.ToECDSA(), nil
}

// ECPublicKey returns the node's ECDSA public key, valid for both private
// and public-only nodes.
func (n *HDNode) ECPublicKey() (*ecdsa.PublicKey, error) {
	pub, err := n.key.ECPubKey()
	if err != nil {
		return nil, err
	}
	return pub.ToECDSA(), nil
}

// CompressedPublicKey returns the 33-byte SEC1-compressed public key.
func (n *HDNode) CompressedPublicKey() ([]byte, error) {
	pub, err := n.key.ECPubKey()
	if err != nil {
		return nil, err
	}
	return pub.SerializeCompressed(), nil
}

// SignLowS signs digest (a 32-byte hash) with the node's private key.
// btcec/v2's ecdsa.Sign always normalizes s to the lower half of the curve
// order, satisfying spec §4.2's "low-s normalisation" requirement.
func (n *HDNode) SignLowS(digest []byte) (*btcec_ecdsa.Signature, error) {
	priv, err := n.key.ECPrivKey()
	if err != nil {
		return nil, err
	}
	return btcec_ecdsa.Sign(priv, digest), nil
}
