// Package cryptokit implements the device's cryptographic primitives:
// secp256k1 group arithmetic, BIP-32/BIP-39 key derivation, hashing, AES-CBC
// and a ChaCha20-backed deterministic random bit generator.
package cryptokit

import "errors"

var (
	ErrInvalidPoint        = errors.New("cryptokit: invalid curve point")
	ErrInvalidScalar       = errors.New("cryptokit: invalid scalar")
	ErrHardenedFromPublic  = errors.New("cryptokit: cannot derive hardened child from public key")
	ErrInvalidMnemonic     = errors.New("cryptokit: invalid mnemonic")
	ErrInvalidEntropyBits  = errors.New("cryptokit: invalid entropy bit length")
	ErrInvalidSeedLength   = errors.New("cryptokit: invalid seed length")
	ErrInvalidKeyLength    = errors.New("cryptokit: invalid key length")
	ErrInvalidIVLength     = errors.New("cryptokit: invalid IV length")
	ErrCiphertextAlignment = errors.New("cryptokit: ciphertext not a multiple of the block size")
	ErrInvalidEncodingPadding = errors.New("cryptokit: invalid pkcs7 padding")
)
