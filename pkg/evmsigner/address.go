package evmsigner

import (
	"errors"

	"github.com/cypherock/x1wallet/pkg/cryptokit"
)

var ErrInvalidDerivationPath = errors.New("evmsigner: invalid derivation path")

// ValidateDerivationPath enforces the BIP-44 "m/44'/60'/account'/change/
// address_index" shape hdwallet.go's DefaultBaseDerivationPath assumed
// implicitly: depth 5, the first three levels hardened, coin_type 60'.
func ValidateDerivationPath(path []uint32) error {
	if len(path) != 5 {
		return ErrInvalidDerivationPath
	}
	for i := 0; i < 3; i++ {
		if path[i] < cryptokit.HardenedOffset {
			return ErrInvalidDerivationPath
		}
	}
	if path[0]-cryptokit.HardenedOffset != 44 || path[1]-cryptokit.HardenedOffset != 60 {
		return ErrInvalidDerivationPath
	}
	for i := 3; i < 5; i++ {
		if path[i] >= cryptokit.HardenedOffset {
			return ErrInvalidDerivationPath
		}
	}
	return nil
}

// DeriveAddress walks path from the seed's master node and returns the
// 20-byte EVM address, the Go-idiomatic counterpart of hdwallet.go's
// deriveAddress/crypto.PubkeyToAddress (address = last 20 bytes of
// Keccak-256 of the uncompressed public key's X||Y, dropping the leading
// 0x04 prefix byte).
func DeriveAddress(seed []byte, path []uint32) ([20]byte, error) {
	if err := ValidateDerivationPath(path); err != nil {
		return [20]byte{}, err
	}
	master, err := cryptokit.NewMasterNode(seed)
	if err != nil {
		return [20]byte{}, err
	}
	node, err := master.DerivePath(path)
	if err != nil {
		return [20]byte{}, err
	}
	pub, err := node.ECPublicKey()
	if err != nil {
		return [20]byte{}, err
	}

	uncompressed := make([]byte, 64)
	pub.X.FillBytes(uncompressed[:32])
	pub.Y.FillBytes(uncompressed[32:])

	hash := cryptokit.Keccak256(uncompressed)
	var addr [20]byte
	copy(addr[:], hash[12:])
	return addr, nil
}
