package evmsigner

import "errors"

var (
	ErrZeroGasLimit = errors.New("evmsigner: gas limit is zero")
	ErrZeroGasPrice = errors.New("evmsigner: gas price (or max fee per gas) is zero")
)

// ValidateTransaction implements eth_validate_unsigned_txn's checks beyond
// chain-id matching (already enforced by DecodeTransaction): nonzero gas
// limit/price, and — if the payload decodes to a whitelisted ERC-20
// transfer — a zero outer value, since the transferred amount lives in the
// ABI-encoded argument instead.
func ValidateTransaction(tx *Transaction, whitelist []WhitelistedToken) error {
	if tx.GasLimit == 0 {
		return ErrZeroGasLimit
	}
	if tx.GasPrice == 0 {
		return ErrZeroGasPrice
	}
	if _, _, _, ok := ClassifyTokenTransfer(tx, whitelist); ok {
		if !tx.Value.IsZero() {
			return ErrTokenTransferNonZero
		}
	}
	return nil
}
