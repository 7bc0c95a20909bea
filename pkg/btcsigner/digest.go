package btcsigner

import (
	"encoding/binary"

	"github.com/cypherock/x1wallet/pkg/cryptokit"
)

// SighashAll is the only sighash type the device exposes to the signing
// flow (spec §4.8 scope).
const SighashAll uint32 = 1

// DigestCache holds the three transaction-wide hashes BIP-143 reuses
// across every segwit input, so they are computed once per transaction
// rather than once per input.
type DigestCache struct {
	HashPrevouts [32]byte
	HashSequence [32]byte
	HashOutputs  [32]byte
}

// NewDigestCache precomputes hashPrevouts, hashSequence and hashOutputs
// for SIGHASH_ALL signing of every input in tx.
func NewDigestCache(tx *UnsignedTransaction) DigestCache {
	var prevouts, sequences, outputs []byte
	for _, in := range tx.Inputs {
		prevouts = append(prevouts, in.PrevTxHash[:]...)
		idx := make([]byte, 4)
		binary.LittleEndian.PutUint32(idx, in.PrevIndex)
		prevouts = append(prevouts, idx...)

		seq := make([]byte, 4)
		binary.LittleEndian.PutUint32(seq, in.Sequence)
		sequences = append(sequences, seq...)
	}
	for _, out := range tx.Outputs {
		val := make([]byte, 8)
		binary.LittleEndian.PutUint64(val, out.Value)
		outputs = append(outputs, val...)
		outputs = putCompactSize(outputs, uint64(len(out.ScriptPubKey)))
		outputs = append(outputs, out.ScriptPubKey...)
	}
	return DigestCache{
		HashPrevouts: cryptokit.DoubleSHA256(prevouts),
		HashSequence: cryptokit.DoubleSHA256(sequences),
		HashOutputs:  cryptokit.DoubleSHA256(outputs),
	}
}

// p2pkhScriptCode builds the P2PKH-equivalent scriptCode BIP-143 requires
// in place of a P2WPKH witness program for the input being signed.
func p2pkhScriptCode(pubKeyHash []byte) []byte {
	script := []byte{byte(opDup), byte(opHash160), 20}
	script = append(script, pubKeyHash...)
	script = append(script, byte(opEqualverify), byte(opChecksig))
	return script
}

// SegwitDigest implements the BIP-143 sighash algorithm for a single
// witness input (SIGHASH_ALL only).
func SegwitDigest(tx *UnsignedTransaction, cache DigestCache, inputIndex int, scriptCode []byte, value uint64) [32]byte {
	in := tx.Inputs[inputIndex]

	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, tx.Version)

	preimage := append([]byte{}, buf...)
	preimage = append(preimage, cache.HashPrevouts[:]...)
	preimage = append(preimage, cache.HashSequence[:]...)
	preimage = append(preimage, in.PrevTxHash[:]...)

	idx := make([]byte, 4)
	binary.LittleEndian.PutUint32(idx, in.PrevIndex)
	preimage = append(preimage, idx...)

	preimage = putCompactSize(preimage, uint64(len(scriptCode)))
	preimage = append(preimage, scriptCode...)

	val := make([]byte, 8)
	binary.LittleEndian.PutUint64(val, value)
	preimage = append(preimage, val...)

	seq := make([]byte, 4)
	binary.LittleEndian.PutUint32(seq, in.Sequence)
	preimage = append(preimage, seq...)

	preimage = append(preimage, cache.HashOutputs[:]...)

	lt := make([]byte, 4)
	binary.LittleEndian.PutUint32(lt, tx.LockTime)
	preimage = append(preimage, lt...)

	sh := make([]byte, 4)
	binary.LittleEndian.PutUint32(sh, SighashAll)
	preimage = append(preimage, sh...)

	return cryptokit.DoubleSHA256(preimage)
}

// LegacyDigest implements the pre-segwit sighash algorithm: every input's
// scriptSig is blanked except inputIndex's, which is set to
// scriptPubKey, then SIGHASH_ALL is appended before double-SHA-256.
func LegacyDigest(tx *UnsignedTransaction, inputIndex int, scriptPubKey []byte) [32]byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, tx.Version)
	out := append([]byte{}, buf...)

	out = putCompactSize(out, uint64(len(tx.Inputs)))
	for i, in := range tx.Inputs {
		out = append(out, in.PrevTxHash[:]...)
		idx := make([]byte, 4)
		binary.LittleEndian.PutUint32(idx, in.PrevIndex)
		out = append(out, idx...)

		var script []byte
		if i == inputIndex {
			script = scriptPubKey
		}
		out = putCompactSize(out, uint64(len(script)))
		out = append(out, script...)

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

	sh := make([]byte, 4)
	binary.LittleEndian.PutUint32(sh, SighashAll)
	out = append(out, sh...)

	return cryptokit.DoubleSHA256(out)
}
