package evmsigner

import (
	"errors"
	"strconv"

	"github.com/cypherock/x1wallet/pkg/cryptokit"
)

var ErrEthSignRequiresHash = errors.New("evmsigner: eth_sign requires a 32-byte message")

// PersonalSignDigest implements spec §4.9's personal_sign digest:
// keccak256("\x19Ethereum Signed Message:\n" || decimal(len(msg)) || msg).
func PersonalSignDigest(msg []byte) [32]byte {
	prefix := []byte("\x19Ethereum Signed Message:\n" + strconv.Itoa(len(msg)))
	var out [32]byte
	copy(out[:], cryptokit.Keccak256(prefix, msg))
	return out
}

// EthSignDigest implements the legacy, explicitly unsafe eth_sign digest:
// keccak256(msg) for an exactly 32-byte msg.
func EthSignDigest(msg []byte) ([32]byte, error) {
	if len(msg) != 32 {
		return [32]byte{}, ErrEthSignRequiresHash
	}
	var out [32]byte
	copy(out[:], cryptokit.Keccak256(msg))
	return out, nil
}
