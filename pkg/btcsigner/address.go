// Package btcsigner implements Bitcoin-family address derivation, script
// classification, previous-transaction verification, BIP-143 digests and
// signing for the device's chain-signer flow (spec §4.8).
package btcsigner

import (
	"errors"

	"github.com/cypherock/x1wallet/pkg/codec"
	"github.com/cypherock/x1wallet/pkg/cryptokit"
)

// Purpose identifies the BIP-44-style purpose level of a derivation path
// (spec §4.8: "purpose ∈ {44, 49, 84, 86}").
type Purpose uint32

const (
	PurposeLegacy       Purpose = 44
	PurposeWrappedSegwit Purpose = 49
	PurposeNativeSegwit  Purpose = 84
	PurposeTaproot       Purpose = 86
)

var (
	ErrInvalidDerivationPath = errors.New("btcsigner: invalid derivation path")
	ErrUnsupportedPurpose    = errors.New("btcsigner: unsupported purpose")
	ErrZeroTweak             = errors.New("btcsigner: taproot tweak scalar is zero")
)

// Params carries the chain-specific address-encoding parameters a
// btc_app_config_t would hold on-device (p2pkh/p2sh version bytes, bech32
// HRP); set per coin (Bitcoin, Litecoin, ...).
type Params struct {
	P2PKHVersion byte
	P2SHVersion  byte
	Bech32HRP    string
}

// MainnetParams are Bitcoin mainnet's address parameters.
var MainnetParams = Params{P2PKHVersion: 0x00, P2SHVersion: 0x05, Bech32HRP: "bc"}

// ValidateDerivationPath enforces spec §4.8's "depth 3 or 5, hardening
// enforced on the first three levels" and restricts change ∈ {0,1} for a
// depth-5 path.
func ValidateDerivationPath(path []uint32, purpose Purpose) error {
	if len(path) != 3 && len(path) != 5 {
		return ErrInvalidDerivationPath
	}
	for i := 0; i < 3; i++ {
		if path[i] < cryptokit.HardenedOffset {
			return ErrInvalidDerivationPath
		}
	}
	if (path[0] - cryptokit.HardenedOffset) != uint32(purpose) {
		return ErrInvalidDerivationPath
	}
	if len(path) == 5 {
		for i := 3; i < 5; i++ {
			if path[i] >= cryptokit.HardenedOffset {
				return ErrInvalidDerivationPath
			}
		}
		if path[3] != 0 && path[3] != 1 {
			return ErrInvalidDerivationPath
		}
	}
	switch purpose {
	case PurposeLegacy, PurposeWrappedSegwit, PurposeNativeSegwit, PurposeTaproot:
	default:
		return ErrUnsupportedPurpose
	}
	return nil
}

// DeriveAddress walks path from the master node derived from seed and
// renders the address per spec §4.8's per-purpose encoding rules.
func DeriveAddress(seed []byte, path []uint32, params Params) (string, error) {
	purpose := Purpose(path[0] - cryptokit.HardenedOffset)
	if err := ValidateDerivationPath(path, purpose); err != nil {
		return "", err
	}

	master, err := cryptokit.NewMasterNode(seed)
	if err != nil {
		return "", err
	}
	node, err := master.DerivePath(path)
	if err != nil {
		return "", err
	}
	pubKey, err := node.CompressedPublicKey()
	if err != nil {
		return "", err
	}

	switch purpose {
	case PurposeLegacy:
		return legacyAddress(pubKey, params), nil
	case PurposeWrappedSegwit:
		return wrappedSegwitAddress(pubKey, params), nil
	case PurposeNativeSegwit:
		return nativeSegwitAddress(pubKey, params)
	case PurposeTaproot:
		return taprootAddress(pubKey, params)
	default:
		return "", ErrUnsupportedPurpose
	}
}

func legacyAddress(pubKey []byte, params Params) string {
	h := cryptokit.Hash160(pubKey)
	return codec.Base58CheckEncode(params.P2PKHVersion, h[:])
}

func wrappedSegwitAddress(pubKey []byte, params Params) string {
	h := cryptokit.Hash160(pubKey)
	redeem := append([]byte{0x00, 0x14}, h[:]...)
	redeemHash := cryptokit.Hash160(redeem)
	return codec.Base58CheckEncode(params.P2SHVersion, redeemHash[:])
}

func nativeSegwitAddress(pubKey []byte, params Params) (string, error) {
	h := cryptokit.Hash160(pubKey)
	return codec.EncodeSegwitAddress(params.Bech32HRP, 0, h[:])
}

// tapTweakTag is BIP-341's tagged hash domain for key-path-only taproot
// outputs (merkle_root is empty, spec §4.8).
const tapTweakTag = "TapTweak"

func taprootAddress(pubKey []byte, params Params) (string, error) {
	point, err := cryptokit.DecompressPoint(pubKey)
	if err != nil {
		return "", err
	}
	if cryptokit.IsOddY(point) {
		point = cryptokit.NegateY(point)
	}
	xOnly := point.X.Bytes()
	if len(xOnly) < 32 {
		padded := make([]byte, 32)
		copy(padded[32-len(xOnly):], xOnly)
		xOnly = padded
	}

	tagHash := cryptokit.SHA256([]byte(tapTweakTag))
	tweakInput := append(append(append([]byte{}, tagHash[:]...), tagHash[:]...), xOnly...)
	tweakScalar := cryptokit.SHA256(tweakInput)

	tweakPoint, err := cryptokit.GeneratorMultiply(tweakScalar[:])
	if err != nil {
		return "", ErrZeroTweak
	}
	outputPoint, err := cryptokit.PointAdd(point, tweakPoint)
	if err != nil {
		return "", err
	}
	outX := outputPoint.X.Bytes()
	if len(outX) < 32 {
		padded := make([]byte, 32)
		copy(padded[32-len(outX):], outX)
		outX = padded
	}
	return codec.EncodeSegwitAddress(params.Bech32HRP, 1, outX)
}
