package codec

import (
	"crypto/sha256"

	"github.com/btcsuite/btcd/btcutil/base58"
)

// Base58CheckEncode encodes payload with a version byte and a trailing
// 4-byte double-SHA-256 checksum, as used for legacy and P2SH Bitcoin
// addresses (spec §4.8 purpose 44'/49').
func Base58CheckEncode(version byte, payload []byte) string {
	return base58.CheckEncode(payload, version)
}

// Base58CheckEncodeRaw encodes payload verbatim (no separate version byte —
// the caller has already folded any version prefix into payload) followed
// by a trailing 4-byte double-SHA-256 checksum, the form extended public/
// private keys use (their 4-byte SLIP-132 version prefix is part of the
// 78-byte payload itself, unlike the single version byte legacy addresses
// use).
func Base58CheckEncodeRaw(payload []byte) string {
	sum := doubleSHA256(payload)
	full := append(append([]byte{}, payload...), sum[:4]...)
	return base58.Encode(full)
}

func doubleSHA256(b []byte) [32]byte {
	first := sha256.Sum256(b)
	return sha256.Sum256(first[:])
}

// Base58CheckDecode reverses Base58CheckEncode, verifying the checksum.
func Base58CheckDecode(s string) (payload []byte, version byte, err error) {
	payload, version, err = base58.CheckDecode(s)
	if err != nil {
		if err == base58.ErrChecksum {
			return nil, 0, ErrChecksumMismatch
		}
		return nil, 0, ErrInvalidEncoding
	}
	return payload, version, nil
}
