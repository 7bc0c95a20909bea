package evmsigner

import "github.com/ethereum/go-ethereum/signer/core/apitypes"

// TypedData re-exports go-ethereum's EIP-712 typed-data type so callers
// need only import this package.
type TypedData = apitypes.TypedData

// HashTypedData implements spec §4.9's EIP-712 digest:
// keccak256(0x1901 ∥ hashStruct(domain) ∥ hashStruct(message)), delegating
// the recursive type/struct encoding to go-ethereum's apitypes package
// rather than re-deriving it.
func HashTypedData(td TypedData) ([32]byte, error) {
	hash, _, err := apitypes.TypedDataAndHash(td)
	if err != nil {
		return [32]byte{}, err
	}
	var out [32]byte
	copy(out[:], hash)
	return out, nil
}
