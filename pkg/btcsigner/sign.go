package btcsigner

import (
	"errors"

	"github.com/cypherock/x1wallet/pkg/cryptokit"
)

var ErrUnsupportedSigningPurpose = errors.New("btcsigner: input's derivation path purpose cannot be signed")

// pushData prepends a single-byte length to data, Bitcoin script's minimal
// push encoding for the short (<76 byte) pushes a signature, public key or
// redeem script require.
func pushData(data []byte) []byte {
	out := make([]byte, 0, len(data)+1)
	out = append(out, byte(len(data)))
	return append(out, data...)
}

// SignedInput carries the scriptSig and/or witness stack produced for one
// input, ready to splice into the final transaction.
type SignedInput struct {
	ScriptSig []byte
	Witness   [][]byte
}

// SignInput derives the private key at in.DerivationPath from seed and
// produces the scriptSig/witness for spending in, dispatching on the
// purpose level the path encodes (spec §4.8's per-purpose signing rules).
func SignInput(seed []byte, tx *UnsignedTransaction, cache DigestCache, inputIndex int) (SignedInput, error) {
	in := tx.Inputs[inputIndex]
	if err := ValidateDerivationPath(in.DerivationPath, Purpose(in.DerivationPath[0]-cryptokit.HardenedOffset)); err != nil {
		return SignedInput{}, err
	}
	purpose := Purpose(in.DerivationPath[0] - cryptokit.HardenedOffset)

	master, err := cryptokit.NewMasterNode(seed)
	if err != nil {
		return SignedInput{}, err
	}
	node, err := master.DerivePath(in.DerivationPath)
	if err != nil {
		return SignedInput{}, err
	}
	pubKey, err := node.CompressedPublicKey()
	if err != nil {
		return SignedInput{}, err
	}

	switch purpose {
	case PurposeLegacy:
		digest := LegacyDigest(tx, inputIndex, in.ScriptPubKey)
		sigWithType, err := signWithSighashByte(node, digest)
		if err != nil {
			return SignedInput{}, err
		}
		scriptSig := append(pushData(sigWithType), pushData(pubKey)...)
		return SignedInput{ScriptSig: scriptSig}, nil

	case PurposeWrappedSegwit:
		h := cryptokit.Hash160(pubKey)
		scriptCode := p2pkhScriptCode(h[:])
		digest := SegwitDigest(tx, cache, inputIndex, scriptCode, in.Value)
		sigWithType, err := signWithSighashByte(node, digest)
		if err != nil {
			return SignedInput{}, err
		}
		redeem := append([]byte{0x00, 0x14}, h[:]...)
		return SignedInput{
			ScriptSig: pushData(redeem),
			Witness:   [][]byte{sigWithType, pubKey},
		}, nil

	case PurposeNativeSegwit:
		h := cryptokit.Hash160(pubKey)
		scriptCode := p2pkhScriptCode(h[:])
		digest := SegwitDigest(tx, cache, inputIndex, scriptCode, in.Value)
		sigWithType, err := signWithSighashByte(node, digest)
		if err != nil {
			return SignedInput{}, err
		}
		return SignedInput{Witness: [][]byte{sigWithType, pubKey}}, nil

	default:
		return SignedInput{}, ErrUnsupportedSigningPurpose
	}
}

// signWithSighashByte signs digest and appends the single SIGHASH_ALL byte
// Bitcoin's scriptSig/witness signature encoding requires after the DER
// signature.
func signWithSighashByte(node *cryptokit.HDNode, digest [32]byte) ([]byte, error) {
	sig, err := node.SignLowS(digest[:])
	if err != nil {
		return nil, err
	}
	return append(sig.Serialize(), byte(SighashAll)), nil
}
