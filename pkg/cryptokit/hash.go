package cryptokit

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // ripemd160 is required by HASH160, not a choice
)

// SHA256 returns the SHA-256 digest of data.
func SHA256(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// DoubleSHA256 returns SHA-256(SHA-256(data)), as used by Bitcoin's
// base58check, tx hashing and BIP-143 prevouts/sequence/outputs caches.
func DoubleSHA256(data []byte) [32]byte {
	first := sha256.Sum256(data)
	return sha256.Sum256(first[:])
}

// SHA512 returns the SHA-512 digest of data.
func SHA512(data []byte) [64]byte {
	return sha512.Sum512(data)
}

// RIPEMD160 returns the RIPEMD-160 digest of data.
func RIPEMD160(data []byte) [20]byte {
	h := ripemd160.New()
	h.Write(data)
	var out [20]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Hash160 computes RIPEMD160(SHA256(data)), the public-key-hash used by
// P2PKH/P2WPKH/P2SH-P2WPKH Bitcoin addresses.
func Hash160(data []byte) [20]byte {
	sha := sha256.Sum256(data)
	return RIPEMD160(sha[:])
}

// Keccak256 returns the Keccak-256 digest of data, via go-ethereum's crypto
// package (the teacher's direct dependency).
func Keccak256(data ...[]byte) []byte {
	return ethcrypto.Keccak256(data...)
}

// HMACSHA256 computes HMAC-SHA-256(key, data).
func HMACSHA256(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}

// HMACSHA512 computes HMAC-SHA-512(key, data), the PRF BIP-32 uses for
// child-key derivation.
func HMACSHA512(key, data []byte) []byte {
	mac := hmac.New(sha512.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}

// ConstantTimeCompare reports whether a and b are equal, in time
// independent of their contents (but not their lengths).
func ConstantTimeCompare(a, b []byte) bool {
	return hmac.Equal(a, b)
}
