// Package evmsigner implements EVM-family transaction decode, payload
// classification, EIP-712/personal-sign digests and fee formatting for the
// device's chain-signer flow (spec §4.9).
package evmsigner

import (
	"errors"

	"github.com/cypherock/x1wallet/pkg/codec"
	"github.com/holiman/uint256"
)

// TxType identifies which of the three wire encodings a transaction used.
type TxType int

const (
	TxLegacy TxType = iota
	TxEIP2930
	TxEIP1559
)

var (
	ErrInvalidTransaction = errors.New("evmsigner: invalid transaction encoding")
	ErrChainIDMismatch    = errors.New("evmsigner: chain id does not match configured chain")
	ErrTrailingBytes      = errors.New("evmsigner: trailing bytes after transaction")
)

// Transaction is the decoded, chain-agnostic view of a legacy, EIP-2930 or
// EIP-1559 transaction, mirroring evm_unsigned_txn/evm_txn_context_t.
type Transaction struct {
	Type                 TxType
	ChainID              uint64
	Nonce                uint64
	GasPrice             uint64 // legacy/EIP-2930's gasPrice, or EIP-1559's maxFeePerGas
	MaxPriorityFeePerGas uint64 // EIP-1559 only
	GasLimit             uint64
	ToPresent            bool
	To                   [20]byte
	Value                *uint256.Int
	Data                 []byte
	AccessList           []byte // raw, undecoded RLP content — not user-relevant (spec §4.9)
}

// DecodeTransaction dispatches on the leading type byte (spec §4.9:
// "≤0x7f equals 1 → EIP-2930, equals 2 → EIP-1559, otherwise legacy") and
// requires the entire buffer be consumed and chain_id to match
// expectedChainID.
func DecodeTransaction(raw []byte, expectedChainID uint64) (*Transaction, error) {
	if len(raw) == 0 {
		return nil, ErrInvalidTransaction
	}

	var tx *Transaction
	var err error
	switch raw[0] {
	case 0x01:
		tx, err = decodeTypedFields(raw[1:], TxEIP2930)
	case 0x02:
		tx, err = decodeTypedFields(raw[1:], TxEIP1559)
	default:
		tx, err = decodeLegacy(raw)
	}
	if err != nil {
		return nil, err
	}
	if tx.ChainID != expectedChainID {
		return nil, ErrChainIDMismatch
	}
	return tx, nil
}

// decodeLegacy parses {nonce, gas_price, gas_limit, to, value, data,
// chain_id, 0, 0} per EIP-155's unsigned encoding.
func decodeLegacy(raw []byte) (*Transaction, error) {
	root, err := codec.DecodeRLPItem(raw)
	if err != nil {
		return nil, err
	}
	if root.Kind != codec.RLPKindShortList && root.Kind != codec.RLPKindLongList {
		return nil, ErrInvalidTransaction
	}
	if root.Consumed != len(raw) {
		return nil, ErrTrailingBytes
	}
	fields, err := codec.DecodeRLPList(root.Content)
	if err != nil {
		return nil, err
	}
	if len(fields) != 9 {
		return nil, ErrInvalidTransaction
	}

	tx := &Transaction{Type: TxLegacy}
	tx.Nonce = beUint64(fields[0].Content)
	tx.GasPrice = beUint64(fields[1].Content)
	tx.GasLimit = beUint64(fields[2].Content)
	if err := setTo(tx, fields[3].Content); err != nil {
		return nil, err
	}
	tx.Value = beUint256(fields[4].Content)
	tx.Data = fields[5].Content
	tx.ChainID = beUint64(fields[6].Content)
	return tx, nil
}

// decodeTypedFields parses the RLP-list body following a type byte, for
// both EIP-2930 (8 fields) and EIP-1559 (9 fields, with an extra leading
// max_priority_fee_per_gas).
func decodeTypedFields(body []byte, kind TxType) (*Transaction, error) {
	root, err := codec.DecodeRLPItem(body)
	if err != nil {
		return nil, err
	}
	if root.Kind != codec.RLPKindShortList && root.Kind != codec.RLPKindLongList {
		return nil, ErrInvalidTransaction
	}
	if root.Consumed != len(body) {
		return nil, ErrTrailingBytes
	}
	fields, err := codec.DecodeRLPList(root.Content)
	if err != nil {
		return nil, err
	}

	tx := &Transaction{Type: kind}
	i := 0
	next := func() []byte {
		c := fields[i].Content
		i++
		return c
	}

	switch kind {
	case TxEIP2930:
		if len(fields) != 8 {
			return nil, ErrInvalidTransaction
		}
		tx.ChainID = beUint64(next())
		tx.Nonce = beUint64(next())
		tx.GasPrice = beUint64(next())
		tx.GasLimit = beUint64(next())
		if err := setTo(tx, next()); err != nil {
			return nil, err
		}
		tx.Value = beUint256(next())
		tx.Data = next()
		tx.AccessList = fields[i].Content

	case TxEIP1559:
		if len(fields) != 9 {
			return nil, ErrInvalidTransaction
		}
		tx.ChainID = beUint64(next())
		tx.Nonce = beUint64(next())
		tx.MaxPriorityFeePerGas = beUint64(next())
		tx.GasPrice = beUint64(next()) // max_fee_per_gas
		tx.GasLimit = beUint64(next())
		if err := setTo(tx, next()); err != nil {
			return nil, err
		}
		tx.Value = beUint256(next())
		tx.Data = next()
		tx.AccessList = fields[i].Content
	}
	return tx, nil
}

func setTo(tx *Transaction, content []byte) error {
	if len(content) == 0 {
		tx.ToPresent = false
		return nil
	}
	if len(content) != 20 {
		return ErrInvalidTransaction
	}
	tx.ToPresent = true
	copy(tx.To[:], content)
	return nil
}

func beUint64(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

func beUint256(b []byte) *uint256.Int {
	return new(uint256.Int).SetBytes(b)
}
