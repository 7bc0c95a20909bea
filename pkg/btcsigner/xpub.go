package btcsigner

import (
	"errors"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
)

var ErrUnsupportedXpubPurpose = errors.New("btcsigner: no SLIP-132 prefix for this purpose")

// slip132Version returns the 4-byte HD public/private key version prefixes
// SLIP-132 defines per BIP-44 purpose (xpub/xprv for legacy, ypub/yprv for
// P2SH-wrapped segwit, zpub/zprv for native segwit). Taproot (86') has no
// SLIP-132 entry of its own; wallets commonly reuse the plain xpub prefix,
// which this mirrors.
func slip132Version(purpose Purpose) (pub, priv [4]byte, err error) {
	switch purpose {
	case PurposeLegacy, PurposeTaproot:
		return [4]byte{0x04, 0x88, 0xb2, 0x1e}, [4]byte{0x04, 0x88, 0xad, 0xe4}, nil
	case PurposeWrappedSegwit:
		return [4]byte{0x04, 0x9d, 0x7c, 0xb2}, [4]byte{0x04, 0x9d, 0x78, 0x78}, nil
	case PurposeNativeSegwit:
		return [4]byte{0x04, 0xb2, 0x47, 0x46}, [4]byte{0x04, 0xb2, 0x43, 0x0c}, nil
	default:
		return [4]byte{}, [4]byte{}, ErrUnsupportedXpubPurpose
	}
}

// DeriveXpub derives the account-level (or any-depth) extended public key
// at path and serialises it with the SLIP-132 version prefix matching the
// path's purpose — e.g. a "m/84'/0'/0'" path yields a zpub (spec scenario
// S1). path must be a prefix a caller would then extend with
// non-hardened change/index segments; depth/hardening beyond the purpose
// level is not otherwise restricted here.
func DeriveXpub(seed []byte, path []uint32, purpose Purpose) (string, error) {
	pubVer, privVer, err := slip132Version(purpose)
	if err != nil {
		return "", err
	}
	params := chaincfg.Params{HDPublicKeyID: pubVer, HDPrivateKeyID: privVer}

	key, err := hdkeychain.NewMaster(seed, &params)
	if err != nil {
		return "", err
	}
	for _, idx := range path {
		key, err = key.Derive(idx)
		if err != nil {
			return "", err
		}
	}
	pub, err := key.Neuter()
	if err != nil {
		return "", err
	}
	return pub.String(), nil
}
