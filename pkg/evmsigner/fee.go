package evmsigner

import (
	"fmt"

	"github.com/holiman/uint256"
)

// Fee implements spec §4.9's fee display formula: gas_price × gas_limit for
// legacy/EIP-2930, or max_fee_per_gas × gas_limit for EIP-1559. Both
// operands are capped at 8 bytes (eth_get_fee_string's own ASSERT), so the
// product always fits in a uint256 widening multiply — mirroring the
// original's mul128-into-two-uint64 trick without its overflow ceiling.
func Fee(tx *Transaction) *uint256.Int {
	price := new(uint256.Int).SetUint64(tx.GasPrice)
	limit := new(uint256.Int).SetUint64(tx.GasLimit)
	return new(uint256.Int).Mul(price, limit)
}

// FormatAmount renders a wei-scale integer amount at decimals precision,
// the Go equivalent of convert_byte_array_to_decimal_string.
func FormatAmount(amount *uint256.Int, decimals uint8) string {
	if decimals == 0 {
		return amount.Dec()
	}
	s := amount.Dec()
	for len(s) <= int(decimals) {
		s = "0" + s
	}
	intPart := s[:len(s)-int(decimals)]
	fracPart := s[len(s)-int(decimals):]
	return fmt.Sprintf("%s.%s", intPart, fracPart)
}
