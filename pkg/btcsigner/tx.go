package btcsigner

import (
	"encoding/binary"
	"errors"

	"github.com/cypherock/x1wallet/pkg/cryptokit"
)

var (
	ErrMalformedTransaction = errors.New("btcsigner: malformed raw transaction")
	ErrTransactionTooShort  = errors.New("btcsigner: raw transaction too short")
)

// TxInput mirrors btc_txn_input_t's wire fields (prev_txn_hash stored in the
// transaction's internal, non-reversed byte order, matching raw_txn).
type TxInput struct {
	PrevTxHash [32]byte
	PrevIndex  uint32
	ScriptSig  []byte
	Sequence   uint32
	Witness    [][]byte

	// Value is the input's claimed spend amount as declared by the host
	// (btc_txn_input_t.value), not part of the raw transaction wire
	// encoding itself — it is checked against the referenced previous
	// output by VerifyPrevOutput.
	Value uint64
}

// TxOutput mirrors btc_txn_output_t.
type TxOutput struct {
	Value        uint64
	ScriptPubKey []byte
}

// RawTransaction is a decoded Bitcoin transaction (BIP-144 segwit-aware).
type RawTransaction struct {
	Version    uint32
	HasWitness bool
	Inputs     []TxInput
	Outputs    []TxOutput
	LockTime   uint32
}

// readCompactSize decodes a Bitcoin CompactSize ("varint") integer, unlike
// codec.ReadUvarint which is LEB128 (the RLP/EVM encoding) — Bitcoin's wire
// format uses its own 0xfd/0xfe/0xff prefixed scheme, so it is decoded here
// rather than shared with codec.
func readCompactSize(b []byte) (uint64, int, error) {
	if len(b) < 1 {
		return 0, 0, ErrTransactionTooShort
	}
	switch {
	case b[0] < 0xfd:
		return uint64(b[0]), 1, nil
	case b[0] == 0xfd:
		if len(b) < 3 {
			return 0, 0, ErrTransactionTooShort
		}
		return uint64(binary.LittleEndian.Uint16(b[1:3])), 3, nil
	case b[0] == 0xfe:
		if len(b) < 5 {
			return 0, 0, ErrTransactionTooShort
		}
		return uint64(binary.LittleEndian.Uint32(b[1:5])), 5, nil
	default:
		if len(b) < 9 {
			return 0, 0, ErrTransactionTooShort
		}
		return binary.LittleEndian.Uint64(b[1:9]), 9, nil
	}
}

func putCompactSize(dst []byte, v uint64) []byte {
	switch {
	case v < 0xfd:
		return append(dst, byte(v))
	case v <= 0xffff:
		dst = append(dst, 0xfd, 0, 0)
		binary.LittleEndian.PutUint16(dst[len(dst)-2:], uint16(v))
		return dst
	case v <= 0xffffffff:
		dst = append(dst, 0xfe, 0, 0, 0, 0)
		binary.LittleEndian.PutUint32(dst[len(dst)-4:], uint32(v))
		return dst
	default:
		dst = append(dst, 0xff, 0, 0, 0, 0, 0, 0, 0, 0)
		binary.LittleEndian.PutUint64(dst[len(dst)-8:], v)
		return dst
	}
}

// ParseRawTransaction decodes raw, handling the BIP-144 segwit marker/flag
// the same way btc_verify_input_utxo's "raw_txn[4] == 0" check does.
func ParseRawTransaction(raw []byte) (*RawTransaction, error) {
	if len(raw) < 10 {
		return nil, ErrTransactionTooShort
	}
	tx := &RawTransaction{Version: binary.LittleEndian.Uint32(raw[0:4])}
	offset := 4

	if raw[offset] == 0x00 {
		if len(raw) < offset+2 || raw[offset+1] != 0x01 {
			return nil, ErrMalformedTransaction
		}
		tx.HasWitness = true
		offset += 2
	}

	inCount, n, err := readCompactSize(raw[offset:])
	if err != nil {
		return nil, err
	}
	offset += n

	tx.Inputs = make([]TxInput, inCount)
	for i := range tx.Inputs {
		if len(raw) < offset+36 {
			return nil, ErrTransactionTooShort
		}
		copy(tx.Inputs[i].PrevTxHash[:], raw[offset:offset+32])
		tx.Inputs[i].PrevIndex = binary.LittleEndian.Uint32(raw[offset+32 : offset+36])
		offset += 36

		scriptLen, n, err := readCompactSize(raw[offset:])
		if err != nil {
			return nil, err
		}
		offset += n
		if len(raw) < offset+int(scriptLen)+4 {
			return nil, ErrTransactionTooShort
		}
		tx.Inputs[i].ScriptSig = raw[offset : offset+int(scriptLen)]
		offset += int(scriptLen)
		tx.Inputs[i].Sequence = binary.LittleEndian.Uint32(raw[offset : offset+4])
		offset += 4
	}

	outCount, n, err := readCompactSize(raw[offset:])
	if err != nil {
		return nil, err
	}
	offset += n

	tx.Outputs = make([]TxOutput, outCount)
	for i := range tx.Outputs {
		if len(raw) < offset+8 {
			return nil, ErrTransactionTooShort
		}
		tx.Outputs[i].Value = binary.LittleEndian.Uint64(raw[offset : offset+8])
		offset += 8
		scriptLen, n, err := readCompactSize(raw[offset:])
		if err != nil {
			return nil, err
		}
		offset += n
		if len(raw) < offset+int(scriptLen) {
			return nil, ErrTransactionTooShort
		}
		tx.Outputs[i].ScriptPubKey = raw[offset : offset+int(scriptLen)]
		offset += int(scriptLen)
	}

	if tx.HasWitness {
		for i := range tx.Inputs {
			itemCount, n, err := readCompactSize(raw[offset:])
			if err != nil {
				return nil, err
			}
			offset += n
			items := make([][]byte, itemCount)
			for j := range items {
				itemLen, n, err := readCompactSize(raw[offset:])
				if err != nil {
					return nil, err
				}
				offset += n
				if len(raw) < offset+int(itemLen) {
					return nil, ErrTransactionTooShort
				}
				items[j] = raw[offset : offset+int(itemLen)]
				offset += int(itemLen)
			}
			tx.Inputs[i].Witness = items
		}
	}

	if len(raw) < offset+4 {
		return nil, ErrTransactionTooShort
	}
	tx.LockTime = binary.LittleEndian.Uint32(raw[offset : offset+4])
	return tx, nil
}

// SerializeNonWitness reconstructs the legacy (pre-BIP-144) serialization
// used for both txid hashing and btc_verify_input_utxo's UTXO hash check.
func (tx *RawTransaction) SerializeNonWitness() []byte {
	out := make([]byte, 4)
	binary.LittleEndian.PutUint32(out, tx.Version)
	out = putCompactSize(out, uint64(len(tx.Inputs)))
	for _, in := range tx.Inputs {
		out = append(out, in.PrevTxHash[:]...)
		idx := make([]byte, 4)
		binary.LittleEndian.PutUint32(idx, in.PrevIndex)
		out = append(out, idx...)
		out = putCompactSize(out, uint64(len(in.ScriptSig)))
		out = append(out, in.ScriptSig...)
		seq := make([]byte, 4)
		binary.LittleEndian.PutUint32(seq, in.Sequence)
		out = append(out, seq...)
	}
	out = putCompactSize(out, uint64(len(tx.Outputs)))
	for _, o := range tx.Outputs {
		val := make([]byte, 8)
		binary.LittleEndian.PutUint64(val, o.Value)
		out = append(out, val...)
		out = putCompactSize(out, uint64(len(o.ScriptPubKey)))
		out = append(out, o.ScriptPubKey...)
	}
	lt := make([]byte, 4)
	binary.LittleEndian.PutUint32(lt, tx.LockTime)
	out = append(out, lt...)
	return out
}

// TxID returns the double-SHA256 of the non-witness serialization.
func (tx *RawTransaction) TxID() [32]byte {
	return cryptokit.DoubleSHA256(tx.SerializeNonWitness())
}
