package evmsigner

import (
	"github.com/cypherock/x1wallet/pkg/codec"
	"github.com/cypherock/x1wallet/pkg/cryptokit"
)

// SigningDigest re-encodes tx as its canonical unsigned RLP form and
// returns the Keccak-256 hash a signature is produced over: EIP-155's
// 9-field legacy list, or a type-byte-prefixed EIP-2930/EIP-1559 list,
// matching DecodeTransaction's own field order exactly so decode then
// re-encode round-trips (spec §8 invariant 4).
func SigningDigest(tx *Transaction) [32]byte {
	to := []byte{}
	if tx.ToPresent {
		to = tx.To[:]
	}
	valueBytes := tx.Value.Bytes()
	accessList := tx.AccessList
	if accessList == nil {
		accessList = []byte{}
	}

	var body []byte
	switch tx.Type {
	case TxLegacy:
		body = codec.EncodeRLPList(
			codec.EncodeRLPUint(tx.Nonce),
			codec.EncodeRLPUint(tx.GasPrice),
			codec.EncodeRLPUint(tx.GasLimit),
			codec.EncodeRLPString(to),
			codec.EncodeRLPString(valueBytes),
			codec.EncodeRLPString(tx.Data),
			codec.EncodeRLPUint(tx.ChainID),
			codec.EncodeRLPUint(0),
			codec.EncodeRLPUint(0),
		)
		return toDigest(cryptokit.Keccak256(body))

	case TxEIP2930:
		body = codec.EncodeRLPList(
			codec.EncodeRLPUint(tx.ChainID),
			codec.EncodeRLPUint(tx.Nonce),
			codec.EncodeRLPUint(tx.GasPrice),
			codec.EncodeRLPUint(tx.GasLimit),
			codec.EncodeRLPString(to),
			codec.EncodeRLPString(valueBytes),
			codec.EncodeRLPString(tx.Data),
			codec.WrapRLPList(accessList),
		)
		return toDigest(cryptokit.Keccak256(append([]byte{0x01}, body...)))

	default: // TxEIP1559
		body = codec.EncodeRLPList(
			codec.EncodeRLPUint(tx.ChainID),
			codec.EncodeRLPUint(tx.Nonce),
			codec.EncodeRLPUint(tx.MaxPriorityFeePerGas),
			codec.EncodeRLPUint(tx.GasPrice),
			codec.EncodeRLPUint(tx.GasLimit),
			codec.EncodeRLPString(to),
			codec.EncodeRLPString(valueBytes),
			codec.EncodeRLPString(tx.Data),
			codec.WrapRLPList(accessList),
		)
		return toDigest(cryptokit.Keccak256(append([]byte{0x02}, body...)))
	}
}

func toDigest(h []byte) [32]byte {
	var out [32]byte
	copy(out[:], h)
	return out
}
