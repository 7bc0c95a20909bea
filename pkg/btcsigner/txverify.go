package btcsigner

import "errors"

var (
	ErrPrevOutputNotFound  = errors.New("btcsigner: prev_output_index not found in raw transaction")
	ErrPrevTxHashMismatch  = errors.New("btcsigner: raw transaction hash does not match declared prev_txn_hash")
	ErrPrevOutputValueMismatch = errors.New("btcsigner: raw transaction output value does not match declared input value")
)

// VerifyPrevOutput implements btc_verify_input_utxo: the host supplies the
// full previous transaction alongside an input's claimed prev_txn_hash,
// prev_output_index and value; this recomputes the previous transaction's
// hash from its raw bytes and checks both the hash and the referenced
// output's value, so a malicious host cannot lie about an input's amount.
func VerifyPrevOutput(rawPrevTx []byte, input TxInput) error {
	tx, err := ParseRawTransaction(rawPrevTx)
	if err != nil {
		return err
	}
	if int(input.PrevIndex) >= len(tx.Outputs) {
		return ErrPrevOutputNotFound
	}

	gotHash := tx.TxID()
	if gotHash != input.PrevTxHash {
		return ErrPrevTxHashMismatch
	}

	if tx.Outputs[input.PrevIndex].Value != input.Value {
		return ErrPrevOutputValueMismatch
	}
	return nil
}
