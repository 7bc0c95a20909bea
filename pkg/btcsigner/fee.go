package btcsigner

import "errors"

var (
	ErrOutputExceedsInputs  = errors.New("btcsigner: single output exceeds total input value")
	ErrInsufficientInputs   = errors.New("btcsigner: outputs exceed total input value")
	ErrFeeExceedsThreshold  = errors.New("btcsigner: fee exceeds the configured per-kilobyte threshold")
)

// UnsignedInput is one input of a transaction being constructed for
// signing: the previous output it spends (value and scriptPubKey, both
// supplied and verified by VerifyPrevOutput) plus the key path that signs
// it.
type UnsignedInput struct {
	PrevTxHash     [32]byte
	PrevIndex      uint32
	ScriptPubKey   []byte
	Value          uint64
	Sequence       uint32
	DerivationPath []uint32
}

// IsSegwit reports whether the referenced output is spent via a witness
// program, mirroring get_transaction_weight's "script_pub_key.bytes[0] ==
// 0" segwit-detection shortcut (true for P2WPKH/P2WSH; wrapped segwit
// inputs carry a non-segwit P2SH scriptPubKey and are not detected here,
// matching the original).
func (in UnsignedInput) IsSegwit() bool {
	return len(in.ScriptPubKey) > 0 && in.ScriptPubKey[0] == 0x00
}

// UnsignedOutput is one output of a transaction being constructed.
type UnsignedOutput struct {
	Value        uint64
	ScriptPubKey []byte
}

// UnsignedTransaction is the in-progress transaction the device signs,
// the Go counterpart of btc_txn_context_t.
type UnsignedTransaction struct {
	Version  uint32
	Inputs   []UnsignedInput
	Outputs  []UnsignedOutput
	LockTime uint32
}

// TransactionWeight implements get_transaction_weight: a non-witness size
// estimate multiplied by 4, plus a flat segwit overhead per witness input
// (the original's own "// TODO: fix weight for segwit transactions"
// simplification, carried forward unchanged).
func TransactionWeight(tx *UnsignedTransaction) uint32 {
	var weight uint32
	var segwitCount uint32

	weight += 4 // version
	weight += 1 // input count (assumes < 253 inputs, as the original does)

	for _, in := range tx.Inputs {
		weight += 32 // prev tx hash
		weight += 4  // prev output index
		weight += 1  // script length size
		weight += uint32(len(in.ScriptPubKey))
		weight += 4 // sequence
		if in.IsSegwit() {
			segwitCount++
		}
	}

	weight += 1 // output count size

	for _, out := range tx.Outputs {
		weight += 8 // value
		weight += 1 // script length size
		weight += uint32(len(out.ScriptPubKey))
	}

	weight += 4 // locktime
	weight *= 4

	if segwitCount > 0 {
		weight += 2                 // segwit marker+flag
		weight += 106 * segwitCount // flat per-input witness estimate
	}
	return weight
}

// FeeThreshold implements get_transaction_fee_threshold: the maximum fee
// (in satoshis) that does not require extra user confirmation, scaled by
// the configured max fee per kilobyte.
func FeeThreshold(tx *UnsignedTransaction, maxFeePerKB uint64) uint64 {
	return (maxFeePerKB / 1000) * uint64(TransactionWeight(tx)/4)
}

// Fee implements btc_get_txn_fee: total input value minus total output
// value.
func Fee(tx *UnsignedTransaction) uint64 {
	var totalIn, totalOut uint64
	for _, in := range tx.Inputs {
		totalIn += in.Value
	}
	for _, out := range tx.Outputs {
		totalOut += out.Value
	}
	return totalIn - totalOut
}

// ValidateBalance enforces spec §4.8's balance-sanity checks: no single
// output may exceed the sum of inputs, and total outputs must not exceed
// total inputs.
func ValidateBalance(tx *UnsignedTransaction) error {
	var totalIn uint64
	for _, in := range tx.Inputs {
		totalIn += in.Value
	}
	var totalOut uint64
	for _, out := range tx.Outputs {
		if out.Value > totalIn {
			return ErrOutputExceedsInputs
		}
		totalOut += out.Value
	}
	if totalOut > totalIn {
		return ErrInsufficientInputs
	}
	return nil
}

// RequiresFeeConfirmation reports whether the transaction's fee exceeds
// maxFeePerKB's threshold and therefore needs an extra user confirmation
// before signing.
func RequiresFeeConfirmation(tx *UnsignedTransaction, maxFeePerKB uint64) bool {
	return Fee(tx) > FeeThreshold(tx, maxFeePerKB)
}
