// Package codec implements the wire-level primitives shared by every chain
// signer and by the host protocol: hex/endian conversions, base58check,
// bech32/bech32m, RLP length-prefix parsing, DER<->raw signature conversion
// and CRC-16/XMODEM.
package codec

import "errors"

// Errors returned by codec primitives. These cross package boundaries so a
// caller can map them onto the host protocol's error kinds (spec §7).
var (
	ErrInvalidEncoding  = errors.New("codec: invalid encoding")
	ErrTruncated        = errors.New("codec: truncated input")
	ErrChecksumMismatch = errors.New("codec: checksum mismatch")
	ErrOutOfRange       = errors.New("codec: value out of range")
)
